package toolbridge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// Registry is the flat tool registry spec.md §4.4 calls for — "read_file,
// edit_file, run_check, search_code, run_tests, complete, escalate,
// cannot_fix, etc." — grounded on tarsy's MCPServerRegistry/ChainRegistry
// RWMutex-guarded map pattern.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]ToolDefinition
	impls map[string]Backend
}

// NewRegistry returns an empty tool Registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:  make(map[string]ToolDefinition),
		impls: make(map[string]Backend),
	}
}

// MustRegister panics if name is already registered — intended for startup
// wiring of the built-in tool set, where a collision is a programming error.
func (r *Registry) MustRegister(def ToolDefinition, backend Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		panic(fmt.Sprintf("toolbridge: tool %q already registered", def.Name))
	}
	r.defs[def.Name] = def
	r.impls[def.Name] = backend
}

// Definition returns a registered tool's definition.
func (r *Registry) Definition(name string) (ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return ToolDefinition{}, errorkind.New(errorkind.NotFound, "tool not registered: "+name)
	}
	return def, nil
}

// Backend returns a registered tool's implementation.
func (r *Registry) Backend(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.impls[name]
	if !ok {
		return nil, errorkind.New(errorkind.NotFound, "tool not registered: "+name)
	}
	return b, nil
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
