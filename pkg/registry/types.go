// Package registry implements AgentForge's Agent Registry (spec.md §4.7,
// C7): loads agent definitions, validates them at load time, builds each
// agent's system prompt, and binds instances to a stage-scoped tool
// bridge policy.
package registry

// AgentDefinition is spec.md §3's data: "Fields: role id, display name,
// identity prose, allowed tool set, forbidden tool set, per-tool path
// constraints (glob patterns, possibly negated), output contract id,
// verification predicates, orchestration metadata." Plain data + a small
// dispatch table, per spec.md §9: no class hierarchy for agent roles.
type AgentDefinition struct {
	Role              string              `yaml:"role"`
	DisplayName       string              `yaml:"display_name"`
	Identity          string              `yaml:"identity"`
	Expertise         string              `yaml:"expertise,omitempty"`
	ThinkingStyle     string              `yaml:"thinking_style,omitempty"`
	AllowedTools      []string            `yaml:"allowed_tools"`
	ForbiddenTools    []string            `yaml:"forbidden_tools,omitempty"`
	PathConstraints   map[string][]string `yaml:"path_constraints,omitempty"` // tool name -> glob patterns
	OutputContractID  string              `yaml:"output_contract"`
	MustVerify        []string            `yaml:"must_verify,omitempty"` // contract/predicate ids an artifact must pass
	Constraints       []string            `yaml:"constraints,omitempty"`
	Orchestration     OrchestrationMeta   `yaml:"orchestration,omitempty"`
}

// OrchestrationMeta names how this role relates to others in a pipeline,
// spec.md §3: "receives_from/hands_off_to/reviews/reviewed_by."
type OrchestrationMeta struct {
	ReceivesFrom []string `yaml:"receives_from,omitempty"`
	HandsOffTo   []string `yaml:"hands_off_to,omitempty"`
	Reviews      []string `yaml:"reviews,omitempty"`
	ReviewedBy   []string `yaml:"reviewed_by,omitempty"`
}

// Instance is spec.md §3's Agent instance: "Created per stage execution
// from a definition; binds definition to a (task, stage, iteration) and
// to a tool-bridge configured with its restrictions. Destroyed when stage
// ends."
type Instance struct {
	Definition   AgentDefinition
	TaskID       string
	Stage        string
	Iteration    int
	SystemPrompt string
}
