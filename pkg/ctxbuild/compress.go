package ctxbuild

import (
	"fmt"
	"strings"
)

// maxErrorMessageChars is spec.md §4.5's compression-strategy cap:
// "cap error messages at 500 chars."
const maxErrorMessageChars = 500

// capErrorMessage truncates msg to maxErrorMessageChars, matching
// pkg/mcp/tokens.go's truncateAtLineBoundary style of appending a visible
// marker rather than silently dropping content.
func capErrorMessage(msg string) string {
	if len(msg) <= maxErrorMessageChars {
		return msg
	}
	return msg[:maxErrorMessageChars] + fmt.Sprintf("... [truncated, %d chars total]", len(msg))
}

// capList replaces a list beyond n items with the first n plus an
// "and K more" marker, spec.md §4.5: "replace lists beyond N items with
// 'and K more'."
func capList(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	more := len(items) - n
	out := make([]string, 0, n+1)
	out = append(out, items[:n]...)
	out = append(out, fmt.Sprintf("... and %d more", more))
	return out
}

// truncateAroundFocusLine keeps firstN lines, lastN lines, and a window
// around focusLine (if set), eliding the rest with a marker — spec.md
// §4.5: "truncate file bodies around a focus line; first N / last N lines
// with middle elided."
func truncateAroundFocusLine(content string, focusLine, window int) string {
	lines := strings.Split(content, "\n")
	total := len(lines)
	if total <= 2*window+1 {
		return content
	}

	keep := make(map[int]bool, 2*window*2)
	for i := 0; i < window && i < total; i++ {
		keep[i] = true
	}
	for i := total - window; i < total; i++ {
		if i >= 0 {
			keep[i] = true
		}
	}
	if focusLine > 0 {
		for i := focusLine - window; i <= focusLine+window; i++ {
			if i >= 0 && i < total {
				keep[i] = true
			}
		}
	}

	var out []string
	elided := 0
	for i, line := range lines {
		if keep[i] {
			if elided > 0 {
				out = append(out, fmt.Sprintf("... [%d lines elided] ...", elided))
				elided = 0
			}
			out = append(out, line)
		} else {
			elided++
		}
	}
	if elided > 0 {
		out = append(out, fmt.Sprintf("... [%d lines elided] ...", elided))
	}
	return strings.Join(out, "\n")
}

// summarizeToolOutputLine reduces a multi-line tool output to one line,
// spec.md §4.5: "summarise tool outputs to one line," used when the
// recent-actions section must shrink further.
func summarizeToolOutputLine(output string) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "(empty output)"
	}
	firstLine := trimmed
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine = trimmed[:idx] + " ..."
	}
	return firstLine
}

// compressionStep is one stage of the fixed compression order spec.md
// §4.5 prescribes, applied in sequence until the section fits its budget.
type compressionStep func(ctx *Context) bool // returns true if it changed anything

// compressionOrder is "applied in order" exactly as spec.md §4.5 lists it.
func compressionOrder() []compressionStep {
	return []compressionStep{
		compressTruncateCurrentState,
		compressKeepLastTwoActions,
		compressSummarizeToolOutputs,
		compressCapErrorMessages,
	}
}

func compressTruncateCurrentState(ctx *Context) bool {
	before := ctx.CurrentState
	ctx.CurrentState = truncateAroundFocusLine(ctx.CurrentState, 0, 40)
	return before != ctx.CurrentState
}

func compressKeepLastTwoActions(ctx *Context) bool {
	lines := strings.Split(strings.TrimSpace(ctx.RecentActions), "\n\n")
	if len(lines) <= 2 {
		return false
	}
	ctx.RecentActions = strings.Join(lines[len(lines)-2:], "\n\n")
	return true
}

func compressSummarizeToolOutputs(ctx *Context) bool {
	before := ctx.RecentActions
	ctx.RecentActions = summarizeToolOutputLine(ctx.RecentActions)
	return before != ctx.RecentActions
}

func compressCapErrorMessages(ctx *Context) bool {
	before := ctx.CurrentState
	ctx.CurrentState = capErrorMessage(ctx.CurrentState)
	return before != ctx.CurrentState
}

// applyCompression runs compressionOrder against any section exceeding its
// budget until every section fits or no step makes further progress.
func applyCompression(ctx *Context) {
	for {
		overBudget := false
		for section, body := range ctx.sections() {
			if EstimateTokens(*body) > sectionBudget[section] {
				overBudget = true
				break
			}
		}
		if !overBudget {
			return
		}
		progressed := false
		for _, step := range compressionOrder() {
			if step(ctx) {
				progressed = true
			}
		}
		if !progressed {
			return // nothing left to compress; ship it over budget rather than loop forever
		}
	}
}
