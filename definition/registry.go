package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/tbxark/fieldagent/errx"
)

// Registry holds the loaded agent definitions, keyed by agent id.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*AgentDefinition
}

func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*AgentDefinition)}
}

// LoadDir parses every *.json document in dir and registers the valid ones.
// A malformed document aborts the load with the document's path and the
// full problem list.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read agent dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		def, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := r.Register(def); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// LoadFile parses and validates a single agent document.
func LoadFile(path string) (*AgentDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes and validates an agent document from raw JSON.
func Parse(raw []byte) (*AgentDefinition, error) {
	var def AgentDefinition
	if err := sonic.Unmarshal(raw, &def); err != nil {
		return nil, errx.Wrap(errx.KindMalformedDefinition, "invalid agent document", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Register adds a validated definition. Registering an id twice replaces
// the earlier definition, which lets hot reloads work without an explicit
// unregister.
func (r *Registry) Register(def *AgentDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[def.ID] = def
	return nil
}

// Unregister removes an agent by id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}

// Get looks up an agent by id.
func (r *Registry) Get(id string) (*AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.agents[id]
	if !ok {
		return nil, errx.Newf(errx.KindNotFound, "agent %q not registered", id)
	}
	return def, nil
}

// IDs returns the registered agent ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
