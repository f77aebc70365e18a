package llmclient

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScriptParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	content := `
responses:
  - match: "^fix"
    chunks:
      - type: text
        content: fixing it
  - chunks:
      - type: tool_call
        name: run_tests
        arguments: "{}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	script, err := LoadScript(path)
	require.NoError(t, err)
	require.Len(t, script.Responses, 2)
	assert.Equal(t, "^fix", script.Responses[0].Match)
	assert.Equal(t, "run_tests", script.Responses[1].Chunks[0].Name)
}

func TestLoadScriptMissingFile(t *testing.T) {
	_, err := LoadScript("/nonexistent/script.yaml")
	assert.Error(t, err)
}

func TestLastUserMessagePicksMostRecent(t *testing.T) {
	messages := []ConversationMessage{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
	}
	assert.Equal(t, "second", lastUserMessage(messages))
}

func TestLastUserMessageNoneReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", lastUserMessage(nil))
}
