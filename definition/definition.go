// Package definition models the declarative description of a collection
// agent: which fields to ask for, in what order, under which conditions,
// and what happens on completion.
package definition

import (
	"fmt"
	"strings"

	"github.com/tbxark/fieldagent/errx"
	"github.com/tbxark/fieldagent/validator"
)

// Kind is the semantic type of a field. It drives fast-path extraction and
// the default validator.
type Kind string

const (
	KindText    Kind = "text"
	KindName    Kind = "name"
	KindEmail   Kind = "email"
	KindPhone   Kind = "phone"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
)

func (k Kind) valid() bool {
	switch k {
	case KindText, KindName, KindEmail, KindPhone, KindNumber, KindBoolean:
		return true
	}
	return false
}

// DefaultValidator returns the builtin validator name for the kind, or ""
// when the kind has no validator of its own.
func (k Kind) DefaultValidator() string {
	switch k {
	case KindEmail:
		return "email"
	case KindPhone:
		return "phone"
	case KindNumber:
		return "number"
	case KindName:
		return "name"
	default:
		return ""
	}
}

// FieldSpec describes one field to collect.
type FieldSpec struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"type"`
	Question    string `json:"question"`
	Description string `json:"description,omitempty"`
	// Optional fields are offered after all required fields are collected
	// and may be declined.
	Optional bool `json:"optional,omitempty"`
	// Validator overrides the kind's default validator by name.
	Validator       string           `json:"validator,omitempty"`
	ValidatorConfig validator.Config `json:"validator_config,omitempty"`
	// Condition activates the field only when another collected field holds
	// (or does not hold) a given value, e.g. "contact_method == email".
	Condition string `json:"condition,omitempty"`
	// Patterns are extra regexes for the fast extraction path. The first
	// capture group, or the whole match, becomes the candidate value.
	Patterns []string `json:"patterns,omitempty"`
	// Iterative fields collect one item per turn until the user declines.
	Iterative bool `json:"iterative,omitempty"`
}

// ValidatorName resolves the effective validator for the field.
func (f *FieldSpec) ValidatorName() string {
	if f.Validator != "" {
		return f.Validator
	}
	return f.Kind.DefaultValidator()
}

// CompletionSpec controls what happens once every field is resolved.
type CompletionSpec struct {
	// Template is the final message, with {field_name} placeholders.
	Template string `json:"template"`
	// Action is "log", "webhook:<url>" or "custom".
	Action string `json:"action,omitempty"`
}

// AgentDefinition is one complete agent document.
type AgentDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Greeting    string         `json:"greeting,omitempty"`
	Fields      []FieldSpec    `json:"fields"`
	Completion  CompletionSpec `json:"completion"`

	// MaxRetries bounds consecutive failed extraction attempts per field.
	MaxRetries int `json:"max_retries,omitempty"`
	// MaxConfirmationAttempts bounds unclear confirmation responses before
	// the summary is treated as approved.
	MaxConfirmationAttempts int `json:"max_confirmation_attempts,omitempty"`
	// ConfidenceThreshold is the minimum model extraction confidence.
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`

	conditions map[string]Condition
}

const (
	DefaultMaxRetries              = 3
	DefaultMaxConfirmationAttempts = 3
	DefaultConfidenceThreshold     = 0.6
)

// Validate checks the document shape and parses all conditions. It reports
// every problem found, not just the first one.
func (d *AgentDefinition) Validate() error {
	var problems []string
	if d.ID == "" {
		problems = append(problems, "missing key: id")
	}
	if d.Name == "" {
		problems = append(problems, "missing key: name")
	}
	if d.Description == "" {
		problems = append(problems, "missing key: description")
	}
	if len(d.Fields) == 0 {
		problems = append(problems, "missing key: fields")
	}
	seen := make(map[string]bool, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		label := f.Name
		if label == "" {
			label = fmt.Sprintf("fields[%d]", i)
			problems = append(problems, fmt.Sprintf("%s: missing key: name", label))
		}
		if f.Question == "" {
			problems = append(problems, fmt.Sprintf("%s: missing key: question", label))
		}
		if f.Kind == "" {
			problems = append(problems, fmt.Sprintf("%s: missing key: type", label))
		} else if !f.Kind.valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown type %q", label, f.Kind))
		}
		if f.Name != "" {
			if seen[f.Name] {
				problems = append(problems, fmt.Sprintf("%s: duplicate field name", f.Name))
			}
			seen[f.Name] = true
		}
	}
	d.conditions = make(map[string]Condition)
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Condition == "" {
			continue
		}
		cond, err := ParseCondition(f.Condition)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}
		if !seen[cond.Field] {
			problems = append(problems, fmt.Sprintf("%s: condition references unknown field %q", f.Name, cond.Field))
			continue
		}
		d.conditions[f.Name] = cond
	}
	if len(problems) > 0 {
		return errx.Newf(errx.KindMalformedDefinition, "agent %q: %s", d.ID, strings.Join(problems, "; "))
	}
	d.applyDefaults()
	return nil
}

func (d *AgentDefinition) applyDefaults() {
	if d.MaxRetries <= 0 {
		d.MaxRetries = DefaultMaxRetries
	}
	if d.MaxConfirmationAttempts <= 0 {
		d.MaxConfirmationAttempts = DefaultMaxConfirmationAttempts
	}
	if d.ConfidenceThreshold <= 0 {
		d.ConfidenceThreshold = DefaultConfidenceThreshold
	}
}

// Field looks up a field by name.
func (d *AgentDefinition) Field(name string) (*FieldSpec, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

// FieldActive reports whether the field's activation condition holds given
// the collected values. Unconditional fields are always active.
func (d *AgentDefinition) FieldActive(f *FieldSpec, collected map[string]string) bool {
	cond, ok := d.conditions[f.Name]
	if !ok {
		return true
	}
	return cond.Eval(collected)
}

// MissingRequired returns active required fields not yet collected, in
// definition order.
func (d *AgentDefinition) MissingRequired(collected map[string]string) []string {
	var missing []string
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Optional {
			continue
		}
		if _, ok := collected[f.Name]; ok {
			continue
		}
		if d.FieldActive(f, collected) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// PendingOptional returns active optional fields not yet collected and not
// declined, in definition order.
func (d *AgentDefinition) PendingOptional(collected map[string]string, declined map[string]bool) []string {
	var pending []string
	for i := range d.Fields {
		f := &d.Fields[i]
		if !f.Optional {
			continue
		}
		if _, ok := collected[f.Name]; ok {
			continue
		}
		if declined[f.Name] {
			continue
		}
		if d.FieldActive(f, collected) {
			pending = append(pending, f.Name)
		}
	}
	return pending
}

// RequiredCount counts active required fields for progress reporting.
func (d *AgentDefinition) RequiredCount(collected map[string]string) int {
	n := 0
	for i := range d.Fields {
		f := &d.Fields[i]
		if !f.Optional && d.FieldActive(f, collected) {
			n++
		}
	}
	return n
}

// Progress reports collected required fields over all active required
// fields as a percentage. Optional fields never move the number, so a
// skipped or early-answered optional cannot mask missing required fields.
func (d *AgentDefinition) Progress(collected map[string]string) float64 {
	total := d.RequiredCount(collected)
	if total <= 0 {
		return 100
	}
	done := total - len(d.MissingRequired(collected))
	if done < 0 {
		done = 0
	}
	return float64(done) / float64(total) * 100
}
