package llmclient

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRecording reads a recording file written by the record backend.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	var rec Recording
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse recording: %w", err)
	}
	return &rec, nil
}

// playbackBackend replays a recording's calls in order, never touching the
// network (spec.md §6: "replays a recording file").
type playbackBackend struct {
	recording *Recording
	position  int
}

func newPlaybackBackend(recording *Recording) *playbackBackend {
	return &playbackBackend{recording: recording}
}

func (b *playbackBackend) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	if b.position >= len(b.recording.Calls) {
		return nil, fmt.Errorf("recording exhausted at call %d", b.position)
	}
	call := b.recording.Calls[b.position]
	b.position++

	out := make(chan Chunk, len(call.Chunks))
	for _, rc := range call.Chunks {
		out <- recordedToChunk(rc)
	}
	close(out)
	return out, nil
}

func (b *playbackBackend) Close() error { return nil }

func recordedToChunk(rc RecordedChunk) Chunk {
	switch rc.Type {
	case "text":
		return &TextChunk{Content: rc.Content}
	case "thinking":
		return &ThinkingChunk{Content: rc.Content}
	case "tool_call":
		return &ToolCallChunk{CallID: rc.CallID, Name: rc.Name, Arguments: rc.Arguments}
	case "usage":
		return &UsageChunk{InputTokens: rc.Input, OutputTokens: rc.Output, TotalTokens: rc.Total}
	default:
		return &ErrorChunk{Message: rc.Message, Retryable: rc.Retryable}
	}
}
