package ctxbuild

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapErrorMessageLeavesShortMessageUntouched(t *testing.T) {
	msg := "short error"
	assert.Equal(t, msg, capErrorMessage(msg))
}

func TestCapErrorMessageTruncatesLongMessage(t *testing.T) {
	msg := strings.Repeat("x", 1000)
	capped := capErrorMessage(msg)
	assert.LessOrEqual(t, len(capped), maxErrorMessageChars+40)
	assert.Contains(t, capped, "truncated")
}

func TestCapListUnderLimitUnchanged(t *testing.T) {
	items := []string{"a", "b"}
	assert.Equal(t, items, capList(items, 5))
}

func TestCapListOverLimitAddsMarker(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	capped := capList(items, 2)
	assert.Equal(t, []string{"a", "b", "... and 2 more"}, capped)
}

func TestTruncateAroundFocusLineShortContentUnchanged(t *testing.T) {
	content := "line1\nline2\nline3"
	assert.Equal(t, content, truncateAroundFocusLine(content, 1, 40))
}

func TestTruncateAroundFocusLineElidesMiddle(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("line\n")
	}
	out := truncateAroundFocusLine(b.String(), 100, 5)
	assert.Contains(t, out, "elided")
	assert.Less(t, len(out), len(b.String()))
}

func TestSummarizeToolOutputLineCollapsesMultiline(t *testing.T) {
	out := summarizeToolOutputLine("first line\nsecond line\nthird line")
	assert.Equal(t, "first line ...", out)
}

func TestSummarizeToolOutputLineEmptyInput(t *testing.T) {
	assert.Equal(t, "(empty output)", summarizeToolOutputLine("   "))
}

func TestApplyCompressionStopsWhenNoProgress(t *testing.T) {
	ctx := &Context{
		SystemPrompt: "fits fine",
	}
	applyCompression(ctx) // must not hang even though nothing can shrink
	assert.Equal(t, "fits fine", ctx.SystemPrompt)
}
