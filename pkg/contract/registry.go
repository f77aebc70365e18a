package contract

import (
	"fmt"
	"sync"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// SemanticCheckFunc evaluates one SemanticRule against a decoded artifact
// value, appending any ValidationErrors it finds to errs.
type SemanticCheckFunc func(value any, rule SemanticRule) []ValidationError

// Registry holds contract Specs and semantic check implementations in
// memory with thread-safe access, grounded on tarsy's ChainRegistry /
// MCPServerRegistry pattern: RWMutex-guarded maps, defensive copies on read.
type Registry struct {
	mu             sync.RWMutex
	specs          map[string]*Spec
	semanticChecks map[string]SemanticCheckFunc
}

// NewRegistry returns an empty Registry with the built-in semantic checks
// pre-registered.
func NewRegistry() *Registry {
	r := &Registry{
		specs:          make(map[string]*Spec),
		semanticChecks: make(map[string]SemanticCheckFunc),
	}
	registerBuiltinChecks(r)
	return r
}

// RegisterSpec adds or replaces a contract Spec under its own ID.
func (r *Registry) RegisterSpec(spec *Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.ID] = spec
}

// RegisterSemanticCheck adds or replaces the implementation for a named
// semantic check kind.
func (r *Registry) RegisterSemanticCheck(kind string, fn SemanticCheckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.semanticChecks[kind] = fn
}

// Get retrieves a contract Spec by id.
func (r *Registry) Get(id string) (*Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[id]
	if !ok {
		return nil, errorkind.New(errorkind.NotFound, fmt.Sprintf("contract not found: %s", id))
	}
	return spec, nil
}

// Has reports whether a contract id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.specs[id]
	return ok
}

// IDs returns every registered contract id.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) checkFunc(kind string) (SemanticCheckFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.semanticChecks[kind]
	return fn, ok
}
