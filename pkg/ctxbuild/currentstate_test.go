package ctxbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderCurrentStateByKind(t *testing.T) {
	cases := []struct {
		kind   TaskKind
		expect string
	}{
		{TaskKindFixViolation, "fix violation"},
		{TaskKindImplementFeature, "implement feature"},
		{TaskKindWriteTests, "write tests"},
		{TaskKindDesign, "design"},
	}
	for _, c := range cases {
		out := renderCurrentState(CurrentState{Kind: c.kind})
		assert.Contains(t, out, c.expect)
	}
}

func TestRenderCurrentStateUnknownKindFallsBackToImplementFeature(t *testing.T) {
	out := renderCurrentState(CurrentState{Kind: TaskKind("something_new")})
	assert.Contains(t, out, "implement feature")
}

func TestRenderCurrentStateIncludesInputsSortedByName(t *testing.T) {
	out := renderCurrentState(CurrentState{
		Kind: TaskKindFixViolation,
		Inputs: map[string]string{
			"zeta":  "z content",
			"alpha": "a content",
		},
	})
	assert.Less(t, indexOf(out, "alpha"), indexOf(out, "zeta"))
}

func TestRenderCurrentStateIncludesFileView(t *testing.T) {
	out := renderCurrentState(CurrentState{
		Kind:     TaskKindImplementFeature,
		FileView: &FileView{Path: "pkg/x/y.go", Content: "package x"},
	})
	assert.Contains(t, out, "pkg/x/y.go")
	assert.Contains(t, out, "package x")
}

func TestRenderCurrentStateDesignOmitsFileView(t *testing.T) {
	out := renderCurrentState(CurrentState{
		Kind:     TaskKindDesign,
		FileView: &FileView{Path: "should-not-appear.go", Content: "x"},
	})
	assert.NotContains(t, out, "should-not-appear.go")
}

func TestRenderCurrentStateCapsIterationFeedback(t *testing.T) {
	feedback := make([]string, 20)
	for i := range feedback {
		feedback[i] = "feedback item"
	}
	out := renderCurrentState(CurrentState{Kind: TaskKindFixViolation, IterationFeedback: feedback})
	assert.Contains(t, out, "and 10 more")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
