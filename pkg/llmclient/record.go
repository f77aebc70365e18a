package llmclient

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RecordedChunk is the YAML-friendly mirror of Chunk persisted to a
// recording file.
type RecordedChunk struct {
	Type      string `yaml:"type"`
	Content   string `yaml:"content,omitempty"`
	CallID    string `yaml:"call_id,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Arguments string `yaml:"arguments,omitempty"`
	Input     int    `yaml:"input_tokens,omitempty"`
	Output    int    `yaml:"output_tokens,omitempty"`
	Total     int    `yaml:"total_tokens,omitempty"`
	Message   string `yaml:"message,omitempty"`
	Retryable bool   `yaml:"retryable,omitempty"`
}

// RecordedCall is one Generate call's chunk sequence, written in call
// order — record/playback match purely by position, the same simplicity
// simulated-mode script matching falls back to.
type RecordedCall struct {
	TaskID    string          `yaml:"task_id"`
	StageName string          `yaml:"stage_name"`
	Chunks    []RecordedChunk `yaml:"chunks"`
}

// Recording is the top-level recording file shape.
type Recording struct {
	Calls []RecordedCall `yaml:"calls"`
}

// recordBackend wraps a real backend, persisting every call's chunks to a
// recording file as they stream past (spec.md §6: "calls real and writes
// responses to a recording file").
type recordBackend struct {
	inner Backend
	path  string
}

func newRecordBackend(inner Backend, path string) *recordBackend {
	return &recordBackend{inner: inner, path: path}
}

func (b *recordBackend) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	inChunks, err := b.inner.Generate(ctx, input)
	if err != nil {
		return nil, err
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		var recorded []RecordedChunk
		for c := range inChunks {
			recorded = append(recorded, chunkToRecorded(c))
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		if err := appendRecordedCall(b.path, RecordedCall{
			TaskID:    input.TaskID,
			StageName: input.StageName,
			Chunks:    recorded,
		}); err != nil {
			out <- &ErrorChunk{Message: fmt.Sprintf("write recording: %v", err)}
		}
	}()
	return out, nil
}

func (b *recordBackend) Close() error { return b.inner.Close() }

func chunkToRecorded(c Chunk) RecordedChunk {
	switch v := c.(type) {
	case *TextChunk:
		return RecordedChunk{Type: "text", Content: v.Content}
	case *ThinkingChunk:
		return RecordedChunk{Type: "thinking", Content: v.Content}
	case *ToolCallChunk:
		return RecordedChunk{Type: "tool_call", CallID: v.CallID, Name: v.Name, Arguments: v.Arguments}
	case *UsageChunk:
		return RecordedChunk{Type: "usage", Input: v.InputTokens, Output: v.OutputTokens, Total: v.TotalTokens}
	case *ErrorChunk:
		return RecordedChunk{Type: "error", Message: v.Message, Retryable: v.Retryable}
	default:
		return RecordedChunk{Type: "unknown"}
	}
}

// appendRecordedCall loads any existing recording, appends call, and
// rewrites the file atomically via temp-file-plus-rename — the same
// idiom store and conformance each use independently for their own
// on-disk writes.
func appendRecordedCall(path string, call RecordedCall) error {
	rec := &Recording{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("parse existing recording: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read recording: %w", err)
	}
	rec.Calls = append(rec.Calls, call)

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal recording: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".recording-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp recording file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp recording file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp recording file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp recording file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
