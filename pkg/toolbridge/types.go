// Package toolbridge implements AgentForge's Tool Bridge (spec.md §4.4, C4):
// a flat registry of tool implementations wrapped with per-agent
// allow-list/deny-list and glob path-constraint enforcement.
package toolbridge

import "context"

// ToolCall is one agent-issued tool invocation, grounded on
// pkg/agent's ToolCall/ToolResult shape (kept identical so the executor
// and controller code that builds/consumes them carries over unchanged).
type ToolCall struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Arguments map[string]any `yaml:"arguments"`
}

// ToolResult is the outcome of dispatching a ToolCall. Policy violations
// are reported here, never as a Go error — spec.md §4.4: "tool violations
// return a well-formed failure result rather than raising."
type ToolResult struct {
	CallID  string `yaml:"call_id"`
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
	IsError bool   `yaml:"is_error"`
}

// ToolDefinition describes one registered tool: its name, a human/LLM
// facing description, and which of its parameters (if any) hold filesystem
// paths subject to PathConstraints.
type ToolDefinition struct {
	Name            string
	Description     string
	PathParams      []string // argument keys whose string value is a path
	ParametersSchema string
}

// Backend is the actual implementation behind a ToolDefinition.
type Backend interface {
	Invoke(ctx context.Context, call ToolCall) (content string, isError bool, err error)
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, call ToolCall) (string, bool, error)

func (f BackendFunc) Invoke(ctx context.Context, call ToolCall) (string, bool, error) {
	return f(ctx, call)
}

// Policy is the per-agent-instance restriction spec.md §4.4 describes:
// allow-list, explicit deny-list (always wins over allow), and per-tool
// path constraints.
type Policy struct {
	Allowed         []string            // empty means "all registered tools"
	Forbidden       []string            // explicit deny always overrides Allowed
	PathConstraints map[string][]string // tool name -> glob patterns (negation via "!pattern")
}
