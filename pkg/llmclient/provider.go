package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProviderClient is the real backend's dependency on an actual LLM
// provider. The teacher's real backend speaks gRPC to a protoc-generated
// sidecar stub (proto/llmv1); regenerating faithful protobuf/gRPC code by
// hand without running protoc is not reliable, and spec.md §1 treats "LLM
// provider wire protocol" as an external collaborator abstracted behind an
// interface — so the real backend here is this pluggable HTTP-based
// interface instead of a concrete gRPC client (see DESIGN.md).
type ProviderClient interface {
	Stream(ctx context.Context, req ProviderRequest) (<-chan wireChunk, error)
}

// ProviderRequest is what crosses the abstraction boundary to an actual
// provider.
type ProviderRequest struct {
	Messages []ConversationMessage
	Tools    []ToolDefinition
}

// wireChunk is the wire-level chunk shape a ProviderClient streams back,
// translated into Chunk by realBackend before reaching callers.
type wireChunk struct {
	Type      string `json:"type"` // "text" | "thinking" | "tool_call" | "usage" | "error"
	Content   string `json:"content,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Input     int    `json:"input_tokens,omitempty"`
	Output    int    `json:"output_tokens,omitempty"`
	Total     int    `json:"total_tokens,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// HTTPProviderConfig configures HTTPProviderClient.
type HTTPProviderConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPProviderClient streams newline-delimited JSON chunks from a single
// HTTP endpoint — the simplest wire shape that can stand in for any actual
// provider's SDK without pulling in a provider-specific client library the
// retrieved corpus never uses.
type HTTPProviderClient struct {
	cfg    HTTPProviderConfig
	client *http.Client
}

// NewHTTPProviderClient constructs an HTTPProviderClient with cfg.Timeout
// defaulting to 60s if unset.
func NewHTTPProviderClient(cfg HTTPProviderConfig) *HTTPProviderClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &HTTPProviderClient{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Stream posts req to the configured endpoint and streams the
// newline-delimited JSON response body as wireChunk values.
func (p *HTTPProviderClient) Stream(ctx context.Context, req ProviderRequest) (<-chan wireChunk, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	out := make(chan wireChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var c wireChunk
			if err := json.Unmarshal(line, &c); err != nil {
				select {
				case out <- wireChunk{Type: "error", Message: err.Error()}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// toChunk translates a wireChunk into the public Chunk type.
func toChunk(w wireChunk) Chunk {
	switch w.Type {
	case "text":
		return &TextChunk{Content: w.Content}
	case "thinking":
		return &ThinkingChunk{Content: w.Content}
	case "tool_call":
		return &ToolCallChunk{CallID: w.CallID, Name: w.Name, Arguments: w.Arguments}
	case "usage":
		return &UsageChunk{InputTokens: w.Input, OutputTokens: w.Output, TotalTokens: w.Total}
	default:
		return &ErrorChunk{Message: w.Message, Retryable: w.Retryable}
	}
}

// realBackend adapts a ProviderClient into a Backend.
type realBackend struct {
	provider ProviderClient
}

func newRealBackend(provider ProviderClient) *realBackend {
	return &realBackend{provider: provider}
}

func (b *realBackend) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	wire, err := b.provider.Stream(ctx, ProviderRequest{Messages: input.Messages, Tools: input.Tools})
	if err != nil {
		return nil, err
	}
	out := make(chan Chunk)
	go func() {
		defer close(out)
		for w := range wire {
			select {
			case out <- toChunk(w):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *realBackend) Close() error { return nil }
