package ctxbuild

// TaskKind selects which current-state body shape Build uses, spec.md
// §4.5: "Current-state body is selected by task kind (fix_violation,
// implement_feature, write_tests, design)."
type TaskKind string

const (
	TaskKindFixViolation     TaskKind = "fix_violation"
	TaskKindImplementFeature TaskKind = "implement_feature"
	TaskKindWriteTests       TaskKind = "write_tests"
	TaskKindDesign           TaskKind = "design"
)

// TaskFrame is the fixed task-frame section body.
type TaskFrame struct {
	TaskID          string
	GoalSentence    string
	SuccessCriteria []string
	Constraints     []string
	CurrentPhase    string
}

// StepSummary is one compressed prior-step record used by the recent-
// actions section.
type StepSummary struct {
	StepIndex int
	Summary   string
}

// VerificationSummary is the latest conformance bundle's one-section
// rollup.
type VerificationSummary struct {
	Passed         bool
	FailingLayers  []string
	ViolationCount int
}

// AvailableAction is one tool name + one-line description surfaced to the
// agent for this step.
type AvailableAction struct {
	Name        string
	Description string
}

// CurrentState is the phase-schema-specific body spec.md §4.5 describes:
// verified inputs to the current stage, an optional truncated file view,
// and the iteration-feedback record if the stage is iterating.
type CurrentState struct {
	Kind              TaskKind
	Inputs            map[string]string // verified input name -> content
	FileView          *FileView
	IterationFeedback []string
}

// FileView is a (possibly truncated) view of one file, used by the
// current-state section when the stage's work centers on a specific file.
type FileView struct {
	Path      string
	Content   string
	FocusLine int // 0 = no particular focus line
	Truncated bool
}

// Context is the Context Builder's fixed-schema output: six rendered
// sections plus the total token estimate used to verify the ±10%
// cross-step invariant spec.md §4.5 calls out.
type Context struct {
	SystemPrompt       string
	TaskFrame          string
	CurrentState       string
	RecentActions      string
	VerificationStatus string
	AvailableActions   string
	TotalTokens        int
}

// sections returns the six rendered sections in fixed order, for
// token-counting and compression passes.
func (c *Context) sections() map[Section]*string {
	return map[Section]*string{
		SectionSystemPrompt:       &c.SystemPrompt,
		SectionTaskFrame:          &c.TaskFrame,
		SectionCurrentState:       &c.CurrentState,
		SectionRecentActions:      &c.RecentActions,
		SectionVerificationStatus: &c.VerificationStatus,
		SectionAvailableActions:   &c.AvailableActions,
	}
}
