package conformance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	layer   Layer
	calls   int
	passing bool
}

func (s *stubChecker) Layer() Layer { return s.layer }

func (s *stubChecker) Check(_ context.Context, _ Target) (VerificationResult, error) {
	s.calls++
	var violations []Violation
	if !s.passing {
		violations = []Violation{{RuleID: "x", Message: "failed"}}
	}
	return VerificationResult{Layer: s.layer, Passed: s.passing, Violations: violations, CheckedAt: nowUTC()}, nil
}

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	return NewGate(cache)
}

func TestGateRunsAllRegisteredLayers(t *testing.T) {
	g := newTestGate(t)
	syntax := &stubChecker{layer: LayerSyntax, passing: true}
	style := &stubChecker{layer: LayerStyle, passing: true}
	g.Register(syntax)
	g.Register(style)

	bundle, err := g.Run(context.Background(), Target{FilePath: "a.go", Content: []byte("package a")})
	require.NoError(t, err)
	assert.True(t, bundle.Passed())
	assert.Equal(t, 1, syntax.calls)
	assert.Equal(t, 1, style.calls)
}

func TestGateSkipsLaterLayersWhenSyntaxFails(t *testing.T) {
	g := newTestGate(t)
	syntax := &stubChecker{layer: LayerSyntax, passing: false}
	style := &stubChecker{layer: LayerStyle, passing: true}
	g.Register(syntax)
	g.Register(style)

	bundle, err := g.Run(context.Background(), Target{FilePath: "a.go", Content: []byte("broken")})
	require.NoError(t, err)
	assert.False(t, bundle.Passed())
	assert.Equal(t, 0, style.calls, "style checker must not run once syntax fails")

	result, ok := bundle.Result(LayerStyle)
	require.True(t, ok)
	assert.True(t, result.Skipped)
}

func TestGateCachesUnchangedFile(t *testing.T) {
	g := newTestGate(t)
	syntax := &stubChecker{layer: LayerSyntax, passing: true}
	g.Register(syntax)

	content := []byte("package a")
	_, err := g.Run(context.Background(), Target{FilePath: "a.go", Content: content})
	require.NoError(t, err)
	_, err = g.Run(context.Background(), Target{FilePath: "a.go", Content: content})
	require.NoError(t, err)

	assert.Equal(t, 1, syntax.calls, "unchanged file must reuse the cached result")
}

func TestGateRunsAgainForDifferentContent(t *testing.T) {
	g := newTestGate(t)
	syntax := &stubChecker{layer: LayerSyntax, passing: true}
	g.Register(syntax)

	_, err := g.Run(context.Background(), Target{FilePath: "a.go", Content: []byte("v1")})
	require.NoError(t, err)
	_, err = g.Run(context.Background(), Target{FilePath: "a.go", Content: []byte("v2")})
	require.NoError(t, err)

	assert.Equal(t, 2, syntax.calls)
}
