package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// ContractExists reports whether contractID names a registered contract —
// satisfied by (*contract.Registry).Has, kept as a narrow function type
// here so registry has no import-time dependency on the contract package.
type ContractExists func(contractID string) bool

// Registry holds validated agent definitions, the same RWMutex-guarded
// map shape as tarsy's AgentRegistry/ChainRegistry/MCPServerRegistry.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]AgentDefinition
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]AgentDefinition)}
}

// Register validates def and adds it under def.Role. A broken definition
// refuses registration, per spec.md §4.7: "Invariants checked at load:
// allowed ∩ forbidden = ∅; referenced contracts exist; referenced role
// ids in orchestration metadata exist. A broken definition refuses
// registration."
//
// Orchestration role-id references are checked against every definition
// registered so far, plus any names in knownRoles (roles registered
// later in the same load batch) — callers load a whole directory and
// validate orchestration references in a second pass via ValidateCrossReferences.
func (r *Registry) Register(def AgentDefinition, contractExists ContractExists) error {
	if def.Role == "" {
		return errorkind.New(errorkind.InvalidInput, "agent definition missing role id")
	}
	if err := checkAllowedForbiddenDisjoint(def); err != nil {
		return err
	}
	if def.OutputContractID == "" {
		return errorkind.New(errorkind.InvalidInput, fmt.Sprintf("agent %s: missing output contract", def.Role))
	}
	if contractExists != nil && !contractExists(def.OutputContractID) {
		return errorkind.New(errorkind.InvalidInput, fmt.Sprintf("agent %s: output contract %q is not registered", def.Role, def.OutputContractID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Role]; exists {
		return errorkind.New(errorkind.AlreadyExists, fmt.Sprintf("agent role %q already registered", def.Role))
	}
	r.defs[def.Role] = def
	return nil
}

func checkAllowedForbiddenDisjoint(def AgentDefinition) error {
	forbidden := make(map[string]bool, len(def.ForbiddenTools))
	for _, t := range def.ForbiddenTools {
		forbidden[t] = true
	}
	for _, t := range def.AllowedTools {
		if forbidden[t] {
			return errorkind.New(errorkind.InvalidInput, fmt.Sprintf("agent %s: tool %q is both allowed and forbidden", def.Role, t))
		}
	}
	return nil
}

// ValidateOrchestrationReferences checks that every role id named in each
// definition's orchestration metadata refers to a registered role,
// per spec.md §4.7. Run this after every definition in a batch has been
// registered, since roles may reference each other regardless of load
// order.
func (r *Registry) ValidateOrchestrationReferences() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for role, def := range r.defs {
		for _, ref := range allReferencedRoles(def.Orchestration) {
			if _, ok := r.defs[ref]; !ok {
				return errorkind.New(errorkind.InvalidInput, fmt.Sprintf("agent %s: orchestration references unknown role %q", role, ref))
			}
		}
	}
	return nil
}

func allReferencedRoles(o OrchestrationMeta) []string {
	var out []string
	out = append(out, o.ReceivesFrom...)
	out = append(out, o.HandsOffTo...)
	out = append(out, o.Reviews...)
	out = append(out, o.ReviewedBy...)
	return out
}

// Get returns the definition for role, or errorkind.NotFound.
func (r *Registry) Get(role string) (AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[role]
	if !ok {
		return AgentDefinition{}, errorkind.New(errorkind.NotFound, fmt.Sprintf("agent role %q not found", role))
	}
	return def, nil
}

// Has reports whether role is registered.
func (r *Registry) Has(role string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[role]
	return ok
}

// Roles returns every registered role id, sorted.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make([]string, 0, len(r.defs))
	for role := range r.defs {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// NewInstance binds def to (taskID, stage, iteration) and builds its
// system prompt, per spec.md §3's Agent instance definition.
func (r *Registry) NewInstance(role, taskID, stage string, iteration int) (*Instance, error) {
	def, err := r.Get(role)
	if err != nil {
		return nil, err
	}
	return &Instance{
		Definition:   def,
		TaskID:       taskID,
		Stage:        stage,
		Iteration:    iteration,
		SystemPrompt: BuildSystemPrompt(def),
	}, nil
}
