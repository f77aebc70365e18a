package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
agent: fixer
display_name: Conformance Fixer
identity: You resolve conformance violations.
capabilities:
  tools:
    allowed: [read_file, edit_file]
    forbidden: [run_tests]
    path_constraints:
      edit_file: ["src/**", "!src/generated/**"]
  output:
    contract: fix-report
    must_verify: [style]
constraints:
  - never touch pkg/contract
orchestration:
  hands_off_to: [reviewer]
`

const reviewerYAML = `
agent: reviewer
display_name: Reviewer
identity: You review fixes.
capabilities:
  output:
    contract: review-report
orchestration:
  receives_from: [fixer]
`

func TestLoadDefinitionFileParsesNestedShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	def, err := LoadDefinitionFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fixer", def.Role)
	assert.Equal(t, []string{"read_file", "edit_file"}, def.AllowedTools)
	assert.Equal(t, []string{"run_tests"}, def.ForbiddenTools)
	assert.Equal(t, "fix-report", def.OutputContractID)
	assert.Equal(t, []string{"style"}, def.MustVerify)
	assert.Equal(t, []string{"never touch pkg/contract"}, def.Constraints)
	assert.Equal(t, []string{"reviewer"}, def.Orchestration.HandsOffTo)
	assert.Equal(t, []string{"src/**", "!src/generated/**"}, def.PathConstraints["edit_file"])
}

func TestLoadDirRegistersAndValidatesCrossReferences(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixer.yaml"), []byte(validYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reviewer.yaml"), []byte(reviewerYAML), 0o644))

	r := NewRegistry()
	count, err := r.LoadDir(dir, alwaysExists)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, r.Has("fixer"))
	assert.True(t, r.Has("reviewer"))
}

func TestLoadDirFailsOnDanglingOrchestrationReference(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixer.yaml"), []byte(validYAML), 0o644))

	r := NewRegistry()
	_, err := r.LoadDir(dir, alwaysExists)
	assert.Error(t, err, "fixer hands off to reviewer, which was never loaded")
}

func TestLoadDefinitionFileMissingFile(t *testing.T) {
	_, err := LoadDefinitionFile("/nonexistent/agent.yaml")
	assert.Error(t, err)
}
