// Package llmclient implements AgentForge's LLM Client (spec.md §1, C12):
// an abstract channel-of-chunks interface over four interchangeable
// backends (real, simulated, record, playback), selected by environment
// variable per spec.md §6. The wire protocol to any actual LLM provider is
// explicitly out of scope (spec.md §1); only the Go-side shapes are
// specified here.
package llmclient

import "context"

// Conversation message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ConversationMessage is one turn in the conversation sent to Generate.
type ConversationMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // assistant messages requesting tool execution
	ToolCallID string     // tool-result messages
	ToolName   string     // tool-result messages
}

// ToolDefinition describes one tool the LLM may call, mirroring
// toolbridge.ToolDefinition's shape without importing it (llmclient has no
// tool-execution dependency; the executor translates between the two).
type ToolDefinition struct {
	Name             string
	Description      string
	ParametersSchema string // JSON Schema
}

// ToolCall is the LLM's request to invoke a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON
}

// GenerateInput is one Generate request.
type GenerateInput struct {
	TaskID    string
	StageName string
	Messages  []ConversationMessage
	Tools     []ToolDefinition // nil = no tools offered
}

// ChunkType identifies the kind of streaming chunk.
type ChunkType string

const (
	ChunkTypeText     ChunkType = "text"
	ChunkTypeThinking ChunkType = "thinking"
	ChunkTypeToolCall ChunkType = "tool_call"
	ChunkTypeUsage    ChunkType = "usage"
	ChunkTypeError    ChunkType = "error"
)

// Chunk is the interface every streaming chunk type implements.
type Chunk interface {
	chunkType() ChunkType
}

// TextChunk is a fragment of the LLM's visible text response.
type TextChunk struct{ Content string }

// ThinkingChunk is a fragment of the LLM's internal reasoning, surfaced
// for audit but never treated as the agent's action.
type ThinkingChunk struct{ Content string }

// ToolCallChunk signals the LLM wants to invoke a tool.
type ToolCallChunk struct{ CallID, Name, Arguments string }

// UsageChunk reports token consumption for one Generate call; spec.md §6:
// "usage statistics are always accumulated," regardless of backend mode.
type UsageChunk struct{ InputTokens, OutputTokens, TotalTokens int }

// ErrorChunk signals a provider-side failure, delivered in-channel rather
// than as a Go error so partial output before the failure is preserved.
type ErrorChunk struct {
	Message   string
	Retryable bool
}

func (c *TextChunk) chunkType() ChunkType     { return ChunkTypeText }
func (c *ThinkingChunk) chunkType() ChunkType { return ChunkTypeThinking }
func (c *ToolCallChunk) chunkType() ChunkType { return ChunkTypeToolCall }
func (c *UsageChunk) chunkType() ChunkType    { return ChunkTypeUsage }
func (c *ErrorChunk) chunkType() ChunkType    { return ChunkTypeError }

// Backend is the common shape every mode implements.
type Backend interface {
	Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error)
	Close() error
}
