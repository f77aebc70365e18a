package cli

// Goal types and stage-name conventions the front-door commands rely on,
// per spec.md §1's pipeline ("intake, clarification, analysis,
// specification, test-authoring, implementation, refactoring and
// delivery") and §4.5's task-kind list ("fix_violation, implement_feature,
// write_tests, design"). These are conventions a loaded template is
// expected to follow, not hardcoded stage logic: any template whose
// stages use these names works with the front-door commands; a template
// that doesn't simply isn't reachable from `start`/`design`/`implement`/
// `test`/`fix` (it can still be run directly against a task created by
// `continue`).
const (
	GoalDesign           = "design"
	GoalImplementFeature = "implement_feature"
	GoalWriteTests       = "write_tests"
	GoalFixViolation     = "fix_violation"
	GoalFullPipeline     = "full_pipeline"

	StageIntake         = "intake"
	StageAnalysis       = "analysis"
	StageSpecification  = "specification"
	StageTestAuthoring  = "test_authoring"
	StageImplementation = "implementation"
	StageDelivery       = "delivery"

	// InputFromSpec and InputFromTask are the external input keys
	// `implement --from-spec`/`--from-task` declare to CreateTask. A
	// template that marks its specification stage
	// `accepts_external: from_spec` (or `from_task`) has that stage
	// dropped from the computed stage order whenever the corresponding
	// flag is used, instead of only being skipped once AdmitExternalInput
	// runs after the task already exists.
	InputFromSpec = "from_spec"
	InputFromTask = "from_task"
)
