// Package validator checks extracted field values before they are committed
// to a conversation. The set of validators is closed: the engine only knows
// validators registered by name, and custom checks plug in through Register
// rather than through inline callbacks in agent definitions.
package validator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tbxark/fieldagent/errx"
)

// Config carries the per-field validator parameters from the agent
// definition, e.g. {"min_digits": 10} for a phone field.
type Config map[string]any

// Validator checks a single raw value. A nil return commits the value; a
// non-nil return is surfaced to the user as a re-prompt.
type Validator interface {
	Name() string
	Validate(value string, cfg Config) error
}

// Registry maps validator names to implementations. The zero value is not
// usable, construct with NewRegistry.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

// NewRegistry returns a registry preloaded with the builtin validators.
func NewRegistry() *Registry {
	r := &Registry{validators: make(map[string]Validator)}
	for _, v := range builtins() {
		r.validators[v.Name()] = v
	}
	return r
}

// Register adds or replaces a validator under its own name.
func (r *Registry) Register(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[v.Name()] = v
}

// Get looks up a validator by name.
func (r *Registry) Get(name string) (Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[name]
	return v, ok
}

// Names returns the registered validator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate runs the named validator against value. An unknown validator
// name is a definition error, not a validation failure.
func (r *Registry) Validate(name, value string, cfg Config) error {
	v, ok := r.Get(name)
	if !ok {
		return errx.Newf(errx.KindMalformedDefinition, "unknown validator %q", name)
	}
	return v.Validate(value, cfg)
}

func invalid(format string, args ...any) error {
	return errx.New(errx.KindValidation, fmt.Sprintf(format, args...))
}

func (c Config) intOr(key string, def int) int {
	raw, ok := c[key]
	if !ok {
		return def
	}
	switch n := raw.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func (c Config) floatOr(key string, def float64) (float64, bool) {
	raw, ok := c[key]
	if !ok {
		return def, false
	}
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return def, false
	}
}
