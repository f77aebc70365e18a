package llmclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// Mode selects which backend a Client dispatches to, spec.md §6.
type Mode string

const (
	ModeReal      Mode = "real"
	ModeSimulated Mode = "simulated"
	ModeRecord    Mode = "record"
	ModePlayback  Mode = "playback"
)

// Config configures a Client. Exactly the fields relevant to Mode need be
// set; the rest are ignored.
type Config struct {
	Mode Mode

	// ModeReal / ModeRecord
	Provider ProviderClient

	// ModeSimulated
	Script *Script

	// ModeRecord
	RecordingPath string

	// ModePlayback
	Recording *Recording
}

// Client is the Generate front door every executor step calls through,
// regardless of which backend is actually wired up.
type Client struct {
	backend Backend

	mu    sync.Mutex
	usage UsageChunk // accumulated across every call, spec.md §6: "usage statistics are always accumulated"
}

// New constructs a Client for cfg.Mode, validating that the fields that
// mode needs are present.
func New(cfg Config) (*Client, error) {
	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{backend: backend}, nil
}

func buildBackend(cfg Config) (Backend, error) {
	switch cfg.Mode {
	case ModeReal:
		if cfg.Provider == nil {
			return nil, errorkind.New(errorkind.InvalidInput, "real mode requires a Provider")
		}
		return newRealBackend(cfg.Provider), nil
	case ModeSimulated:
		if cfg.Script == nil {
			return nil, errorkind.New(errorkind.InvalidInput, "simulated mode requires a Script")
		}
		return newSimulatedBackend(cfg.Script), nil
	case ModeRecord:
		if cfg.Provider == nil {
			return nil, errorkind.New(errorkind.InvalidInput, "record mode requires a Provider")
		}
		if cfg.RecordingPath == "" {
			return nil, errorkind.New(errorkind.InvalidInput, "record mode requires a RecordingPath")
		}
		return newRecordBackend(newRealBackend(cfg.Provider), cfg.RecordingPath), nil
	case ModePlayback:
		if cfg.Recording == nil {
			return nil, errorkind.New(errorkind.InvalidInput, "playback mode requires a Recording")
		}
		return newPlaybackBackend(cfg.Recording), nil
	default:
		return nil, errorkind.New(errorkind.InvalidInput, fmt.Sprintf("unknown llm client mode %q", cfg.Mode))
	}
}

// Generate dispatches to the configured backend, accumulating any usage
// chunk it observes before returning the channel to the caller untouched.
func (c *Client) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	chunks, err := c.backend.Generate(ctx, input)
	if err != nil {
		return nil, errorkind.Wrap(errorkind.LLMFailure, "generate failed", err)
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		for chunk := range chunks {
			if u, ok := chunk.(*UsageChunk); ok {
				c.recordUsage(u)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) recordUsage(u *UsageChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.InputTokens += u.InputTokens
	c.usage.OutputTokens += u.OutputTokens
	c.usage.TotalTokens += u.TotalTokens
}

// Usage returns the cumulative token usage observed across every Generate
// call this Client has made.
func (c *Client) Usage() UsageChunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Close releases the underlying backend.
func (c *Client) Close() error {
	return c.backend.Close()
}
