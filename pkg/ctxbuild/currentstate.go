package ctxbuild

import (
	"fmt"
	"sort"
	"strings"
)

// renderCurrentState renders the current-state section body for cs's
// TaskKind, spec.md §4.5: "the current-state body shape is selected by
// task kind." Each kind gets its own ordering of the same underlying
// fields, matching how pkg/agent/context/stage_context.go varies its
// per-stage header by investigation phase rather than using one template
// for every phase.
func renderCurrentState(cs CurrentState) string {
	switch cs.Kind {
	case TaskKindFixViolation:
		return renderFixViolation(cs)
	case TaskKindWriteTests:
		return renderWriteTests(cs)
	case TaskKindDesign:
		return renderDesign(cs)
	case TaskKindImplementFeature:
		fallthrough
	default:
		return renderImplementFeature(cs)
	}
}

func renderFixViolation(cs CurrentState) string {
	var b strings.Builder
	b.WriteString("## Current state: fix violation\n\n")
	writeInputs(&b, cs.Inputs)
	writeFileView(&b, cs.FileView)
	writeIterationFeedback(&b, cs.IterationFeedback)
	return b.String()
}

func renderImplementFeature(cs CurrentState) string {
	var b strings.Builder
	b.WriteString("## Current state: implement feature\n\n")
	writeInputs(&b, cs.Inputs)
	writeFileView(&b, cs.FileView)
	writeIterationFeedback(&b, cs.IterationFeedback)
	return b.String()
}

func renderWriteTests(cs CurrentState) string {
	var b strings.Builder
	b.WriteString("## Current state: write tests\n\n")
	writeInputs(&b, cs.Inputs)
	writeFileView(&b, cs.FileView)
	writeIterationFeedback(&b, cs.IterationFeedback)
	return b.String()
}

func renderDesign(cs CurrentState) string {
	var b strings.Builder
	b.WriteString("## Current state: design\n\n")
	writeInputs(&b, cs.Inputs)
	writeIterationFeedback(&b, cs.IterationFeedback)
	return b.String()
}

func writeInputs(b *strings.Builder, inputs map[string]string) {
	if len(inputs) == 0 {
		return
	}
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteString("### Verified inputs\n\n")
	for _, name := range names {
		fmt.Fprintf(b, "--- %s ---\n%s\n\n", name, inputs[name])
	}
}

func writeFileView(b *strings.Builder, fv *FileView) {
	if fv == nil {
		return
	}
	content := fv.Content
	if fv.Truncated {
		content = truncateAroundFocusLine(content, fv.FocusLine, 40)
	}
	fmt.Fprintf(b, "### File: %s\n\n%s\n\n", fv.Path, content)
}

func writeIterationFeedback(b *strings.Builder, feedback []string) {
	if len(feedback) == 0 {
		return
	}
	b.WriteString("### Iteration feedback\n\n")
	for _, line := range capList(feedback, 10) {
		fmt.Fprintf(b, "- %s\n", line)
	}
}
