package slack

import (
	"strings"
	"testing"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEscalationOpenedMessage(t *testing.T) {
	blocks := BuildEscalationOpenedMessage(EscalationOpenedInput{
		EscalationID: "esc-123",
		TaskID:       "task-1",
		Stage:        "draft",
		Reason:       "contract revision limit reached",
	}, "https://agentforge.example.com")

	require.Len(t, blocks, 1)

	section, ok := blocks[0].(*goslack.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, section.Text.Text, ":rotating_light:")
	assert.Contains(t, section.Text.Text, "draft")
	assert.Contains(t, section.Text.Text, "contract revision limit reached")
	assert.Contains(t, section.Text.Text, "https://agentforge.example.com/tasks/task-1")
}

func TestBuildEscalationResolvedMessage_Resolved(t *testing.T) {
	input := EscalationResolvedInput{
		EscalationID: "esc-1",
		TaskID:       "task-1",
		Stage:        "draft",
		Status:       "resolved",
		Resolution:   "use the v2 schema instead",
	}
	blocks := BuildEscalationResolvedMessage(input, "https://dash.example.com")

	require.Len(t, blocks, 3)

	header := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, header.Text.Text, ":white_check_mark:")
	assert.Contains(t, header.Text.Text, "Escalation Resolved")
	assert.Contains(t, header.Text.Text, "draft")

	content := blocks[1].(*goslack.SectionBlock)
	assert.Contains(t, content.Text.Text, "use the v2 schema instead")

	action := blocks[2].(*goslack.ActionBlock)
	require.Len(t, action.Elements.ElementSet, 1)
	btn, ok := action.Elements.ElementSet[0].(*goslack.ButtonBlockElement)
	require.True(t, ok)
	assert.Equal(t, "View Task", btn.Text.Text)
	assert.Contains(t, btn.URL, "https://dash.example.com/tasks/task-1")
}

func TestBuildEscalationResolvedMessage_ResolvedNoResolutionText(t *testing.T) {
	input := EscalationResolvedInput{
		EscalationID: "esc-2",
		TaskID:       "task-2",
		Stage:        "draft",
		Status:       "resolved",
	}
	blocks := BuildEscalationResolvedMessage(input, "https://dash.example.com")

	require.Len(t, blocks, 2)
	header := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, header.Text.Text, "Escalation Resolved")
}

func TestBuildEscalationResolvedMessage_Aborted(t *testing.T) {
	input := EscalationResolvedInput{
		EscalationID: "esc-3",
		TaskID:       "task-3",
		Stage:        "polish",
		Status:       "aborted",
	}
	blocks := BuildEscalationResolvedMessage(input, "https://dash.example.com")

	header := blocks[0].(*goslack.SectionBlock)
	assert.Contains(t, header.Text.Text, ":no_entry_sign:")
	assert.Contains(t, header.Text.Text, "Escalation Aborted")
	assert.Contains(t, header.Text.Text, "polish")
}

func TestTruncateForSlack(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", truncateForSlack("hello"))
	})

	t.Run("exact limit unchanged", func(t *testing.T) {
		text := strings.Repeat("a", maxBlockTextLength)
		assert.Equal(t, text, truncateForSlack(text))
	})

	t.Run("over limit truncated", func(t *testing.T) {
		text := strings.Repeat("a", maxBlockTextLength+100)
		result := truncateForSlack(text)
		assert.True(t, len(result) < len(text))
		assert.Contains(t, result, "truncated")
	})

	t.Run("multi-byte runes not split", func(t *testing.T) {
		text := strings.Repeat("🔥", maxBlockTextLength+10)
		result := truncateForSlack(text)
		assert.Contains(t, result, "truncated")
		// Verify it's valid UTF-8 by ensuring no broken runes.
		assert.True(t, utf8.ValidString(result), "result should be valid UTF-8")
		// Should contain exactly maxBlockTextLength emoji runes before the suffix.
		prefix := strings.Split(result, "\n\n_...")[0]
		assert.Equal(t, maxBlockTextLength, utf8.RuneCountInString(prefix))
	})
}
