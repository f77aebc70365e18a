package toolbridge

import (
	"context"
	"fmt"
	"slices"
)

// Bridge enforces a Policy around a Registry's tools, matching
// pkg/mcp/executor.go's ToolExecutor.Execute flow: resolve, check
// allow/deny, check path constraints, dispatch, mask, return — with every
// rejection surfacing as a structured ToolResult instead of a Go error
// (spec.md §4.4).
type Bridge struct {
	registry *Registry
	masker   *Masker // nil disables masking
}

// New constructs a Bridge over registry. masker may be nil.
func New(registry *Registry, masker *Masker) *Bridge {
	return &Bridge{registry: registry, masker: masker}
}

// Execute dispatches call under policy. It never returns a Go error for
// policy violations or backend failures — those become ToolResult.IsError
// — only for call-shape issues the agent could not have anticipated (none
// currently exist; the error return exists for forward compatibility with
// context cancellation propagation).
func (b *Bridge) Execute(ctx context.Context, policy Policy, call ToolCall) (*ToolResult, error) {
	if violation := checkPolicy(policy, call); violation != "" {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: violation, IsError: true}, nil
	}

	def, err := b.registry.Definition(call.Name)
	if err != nil {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: err.Error(), IsError: true}, nil
	}

	if violation := checkPathConstraints(policy, def, call); violation != "" {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: violation, IsError: true}, nil
	}

	backend, err := b.registry.Backend(call.Name)
	if err != nil {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: err.Error(), IsError: true}, nil
	}

	content, isError, err := backend.Invoke(ctx, call)
	if err != nil {
		return &ToolResult{CallID: call.ID, Name: call.Name, Content: fmt.Sprintf("tool execution failed: %s", err), IsError: true}, nil
	}

	if b.masker != nil {
		content = b.masker.Mask(content)
	}

	return &ToolResult{CallID: call.ID, Name: call.Name, Content: content, IsError: isError}, nil
}

// checkPolicy returns a non-empty violation message if call.Name is denied
// by policy, empty otherwise. Forbidden always wins over Allowed, per
// spec.md §4.4: "explicit forbidden tools override any base allow."
func checkPolicy(policy Policy, call ToolCall) string {
	if slices.Contains(policy.Forbidden, call.Name) {
		return fmt.Sprintf("tool %q is explicitly forbidden for this agent", call.Name)
	}
	if len(policy.Allowed) > 0 && !slices.Contains(policy.Allowed, call.Name) {
		return fmt.Sprintf("tool %q is not in this agent's allow-list (allowed: %v)", call.Name, policy.Allowed)
	}
	return ""
}

// checkPathConstraints validates every path-bearing argument of call
// against policy's constraints for that tool.
func checkPathConstraints(policy Policy, def ToolDefinition, call ToolCall) string {
	patterns, ok := policy.PathConstraints[call.Name]
	if !ok || len(patterns) == 0 {
		return ""
	}
	for _, paramName := range def.PathParams {
		raw, present := call.Arguments[paramName]
		if !present {
			continue
		}
		path, ok := raw.(string)
		if !ok {
			continue
		}
		if !matchPathConstraints(path, patterns) {
			return fmt.Sprintf("path %q for parameter %q violates the tool's path constraints %v", path, paramName, patterns)
		}
	}
	return ""
}
