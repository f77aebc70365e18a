package contract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSpecFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stage-report.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: stage-report
schema:
  type: object
  required: [summary]
  properties:
    summary:
      type: string
`), 0o644))

	spec, err := LoadSpecFile(path)
	require.NoError(t, err)
	assert.Equal(t, "stage-report", spec.ID)
	assert.Equal(t, TypeObject, spec.Schema.Type)
}

func TestLoadSpecFileDefaultsIDFromFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "untitled.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema:\n  type: object\n"), 0o644))

	spec, err := LoadSpecFile(path)
	require.NoError(t, err)
	assert.Equal(t, "untitled", spec.ID)
}

func TestLoadDirRegistersAllContracts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("id: a\nschema:\n  type: object\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("id: b\nschema:\n  type: object\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("ignored"), 0o644))

	r := NewRegistry()
	n, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, r.Has("a"))
	assert.True(t, r.Has("b"))
}
