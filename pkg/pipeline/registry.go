package pipeline

import (
	"sort"
	"sync"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// Registry holds pipeline templates in memory with thread-safe access,
// the same RWMutex-guarded map shape as tarsy's ChainRegistry.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Register adds a template under its ID. Refuses a duplicate ID.
func (r *Registry) Register(t *Template) error {
	if t.ID == "" {
		return errorkind.New(errorkind.InvalidInput, "pipeline template missing id")
	}
	if len(t.Stages) == 0 {
		return errTemplateEmpty(t.ID)
	}
	seen := make(map[string]bool, len(t.Stages))
	for _, s := range t.Stages {
		if s.Name == "" {
			return errorkind.New(errorkind.InvalidInput, "template "+t.ID+": stage missing name")
		}
		if seen[s.Name] {
			return errorkind.New(errorkind.InvalidInput, "template "+t.ID+": duplicate stage name "+s.Name)
		}
		seen[s.Name] = true
		if s.AgentRole == "" {
			return errorkind.New(errorkind.InvalidInput, "template "+t.ID+": stage "+s.Name+" missing agent role")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[t.ID]; exists {
		return errorkind.New(errorkind.AlreadyExists, "pipeline template "+t.ID+" already registered")
	}
	r.templates[t.ID] = t
	return nil
}

// Get returns the template by id, or errorkind.NotFound.
func (r *Registry) Get(id string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, errTemplateNotFound(id)
	}
	return t, nil
}

// GetByGoalType returns the first template declaring goalType among its
// GoalTypes, mirroring ChainRegistry.GetByAlertType.
func (r *Registry) GetByGoalType(goalType string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.templates {
		for _, g := range t.GoalTypes {
			if g == goalType {
				return t, nil
			}
		}
	}
	return nil, errTemplateNotFoundForGoalType(goalType)
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[id]
	return ok
}

// IDs returns every registered template id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
