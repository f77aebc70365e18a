package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSystemPromptIncludesAllSections(t *testing.T) {
	def := AgentDefinition{
		Role:             "fixer",
		DisplayName:      "Conformance Fixer",
		Identity:         "You resolve conformance violations precisely.",
		Expertise:        "Deep knowledge of Go idioms.",
		ThinkingStyle:    "methodical, minimal diffs",
		AllowedTools:     []string{"edit_file", "read_file"},
		Constraints:      []string{"never touch pkg/contract"},
		OutputContractID: "fix-report",
		MustVerify:       []string{"style", "tests"},
	}
	prompt := BuildSystemPrompt(def)

	assert.Contains(t, prompt, "Conformance Fixer")
	assert.Contains(t, prompt, "resolve conformance violations")
	assert.Contains(t, prompt, "Deep knowledge of Go idioms")
	assert.Contains(t, prompt, "methodical, minimal diffs")
	assert.Contains(t, prompt, "never touch pkg/contract")
	assert.Contains(t, prompt, "edit_file")
	assert.Contains(t, prompt, "fix-report")
	assert.Contains(t, prompt, "style")
}

func TestBuildSystemPromptOmitsEmptySections(t *testing.T) {
	def := AgentDefinition{
		Role:             "minimal",
		DisplayName:      "Minimal Agent",
		Identity:         "You do the minimum.",
		OutputContractID: "noop",
	}
	prompt := BuildSystemPrompt(def)
	assert.NotContains(t, prompt, "Thinking style")
	assert.NotContains(t, prompt, "Constraints:")
	assert.NotContains(t, prompt, "Available tools")
}
