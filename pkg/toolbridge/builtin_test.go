package toolbridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryEditThenReadFileRoundTrips(t *testing.T) {
	root := t.TempDir()
	r := NewDefaultRegistry(root)
	b := NewMasker(nil, nil)
	bridge := New(r, b)
	policy := Policy{}

	_, err := bridge.Execute(context.Background(), policy, ToolCall{
		ID: "1", Name: ToolEditFile,
		Arguments: map[string]any{"path": "src/foo.go", "content": "package foo"},
	})
	require.NoError(t, err)

	result, err := bridge.Execute(context.Background(), policy, ToolCall{
		ID: "2", Name: ToolReadFile, Arguments: map[string]any{"path": "src/foo.go"},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "package foo", result.Content)
}

func TestDefaultRegistryEditFileRejectsEscapingPath(t *testing.T) {
	root := t.TempDir()
	r := NewDefaultRegistry(root)
	bridge := New(r, NewMasker(nil, nil))

	result, err := bridge.Execute(context.Background(), Policy{}, ToolCall{
		ID: "1", Name: ToolEditFile,
		Arguments: map[string]any{"path": "../outside.go", "content": "x"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDefaultRegistrySearchCodeFindsMatch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("func Foo() {}\n"), 0o644))
	r := NewDefaultRegistry(root)
	bridge := New(r, NewMasker(nil, nil))

	result, err := bridge.Execute(context.Background(), Policy{}, ToolCall{
		ID: "1", Name: ToolSearchCode, Arguments: map[string]any{"pattern": "func Foo"},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content, "a.go")
}

func TestDefaultRegistryListDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))
	r := NewDefaultRegistry(root)
	bridge := New(r, NewMasker(nil, nil))

	result, err := bridge.Execute(context.Background(), Policy{}, ToolCall{
		ID: "1", Name: ToolListDir, Arguments: map[string]any{"path": "."},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content, "a.txt")
}
