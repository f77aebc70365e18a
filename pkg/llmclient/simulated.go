package llmclient

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ScriptedChunk is one chunk entry in a simulated-mode script file, the
// YAML-friendly mirror of Chunk.
type ScriptedChunk struct {
	Type      string `yaml:"type"`
	Content   string `yaml:"content,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Arguments string `yaml:"arguments,omitempty"`
	Message   string `yaml:"message,omitempty"`
	Retryable bool   `yaml:"retryable,omitempty"`
}

// ScriptedResponse is one entry in the script: either matched by position
// (sequential calls consume entries in order when Match is empty) or by a
// regex against the most recent user message.
type ScriptedResponse struct {
	Match  string          `yaml:"match,omitempty"`
	Chunks []ScriptedChunk `yaml:"chunks"`
}

// Script is the top-level simulated-mode script file shape, spec.md §6:
// "returns scripted responses from a YAML script (per-step or
// pattern-matched)."
type Script struct {
	Responses []ScriptedResponse `yaml:"responses"`
}

// LoadScript reads and parses a simulated-mode script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read llm script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse llm script: %w", err)
	}
	return &s, nil
}

// simulatedBackend replays scripted responses; never makes a real network
// call, so the entire pipeline can run offline (spec.md §6).
type simulatedBackend struct {
	script   *Script
	position int
}

func newSimulatedBackend(script *Script) *simulatedBackend {
	return &simulatedBackend{script: script}
}

func (b *simulatedBackend) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	resp, err := b.next(input)
	if err != nil {
		return nil, err
	}
	out := make(chan Chunk, len(resp.Chunks))
	for _, sc := range resp.Chunks {
		out <- scriptedToChunk(sc)
	}
	close(out)
	return out, nil
}

// next picks the next scripted response: a pattern match against the
// latest user message wins if one matches, otherwise responses are
// consumed sequentially by call position.
func (b *simulatedBackend) next(input *GenerateInput) (*ScriptedResponse, error) {
	lastUser := lastUserMessage(input.Messages)
	for i := range b.script.Responses {
		r := &b.script.Responses[i]
		if r.Match == "" {
			continue
		}
		re, err := regexp.Compile(r.Match)
		if err != nil {
			return nil, fmt.Errorf("invalid script pattern %q: %w", r.Match, err)
		}
		if re.MatchString(lastUser) {
			return r, nil
		}
	}
	if b.position >= len(b.script.Responses) {
		return nil, fmt.Errorf("simulated script exhausted at call %d", b.position)
	}
	r := &b.script.Responses[b.position]
	b.position++
	return r, nil
}

func lastUserMessage(messages []ConversationMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func scriptedToChunk(sc ScriptedChunk) Chunk {
	switch sc.Type {
	case "text":
		return &TextChunk{Content: sc.Content}
	case "thinking":
		return &ThinkingChunk{Content: sc.Content}
	case "tool_call":
		return &ToolCallChunk{Name: sc.Name, Arguments: sc.Arguments}
	case "usage":
		return &UsageChunk{}
	default:
		return &ErrorChunk{Message: sc.Message, Retryable: sc.Retryable}
	}
}

func (b *simulatedBackend) Close() error { return nil }
