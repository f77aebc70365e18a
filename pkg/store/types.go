// Package store implements AgentForge's State Store (spec.md §4.1, C1):
// durable, crash-safe, append-mostly persistence of task, stage, artifact,
// and escalation state as canonical YAML files on disk.
package store

import "time"

// schemaVersion1 is the version stamped on every persisted record type,
// per spec.md §9 ("tagged-variant serialization ... version field
// mandatory").
const schemaVersion1 = 1

// Task holds the immutable fields spec.md §3 assigns to a task: original
// request, goal type, creation time, template name, and declared entry/exit
// stages. Once written, task.yaml is never rewritten — all mutable state
// lives in StageState / TaskState.
type Task struct {
	SchemaVersion int       `yaml:"schema_version"`
	ID            string    `yaml:"id"`
	Request       string    `yaml:"request"`
	GoalType      string    `yaml:"goal_type"`
	Template      string    `yaml:"template"`
	EntryStage    string    `yaml:"entry_stage"`
	ExitStage     string    `yaml:"exit_stage"`
	Supervised    bool      `yaml:"supervised"`
	CreatedAt     time.Time `yaml:"created_at"`
}

// StageStatus is the stage-state machine from spec.md §3:
// pending → running → iterating? → reviewing? → approved → completed,
// plus terminal escalated / failed / skipped.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusRunning    StageStatus = "running"
	StageStatusIterating  StageStatus = "iterating"
	StageStatusReviewing  StageStatus = "reviewing"
	StageStatusApproved   StageStatus = "approved"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusEscalated  StageStatus = "escalated"
	StageStatusFailed     StageStatus = "failed"
	StageStatusSkipped    StageStatus = "skipped"
)

// ReviewVerdict records one reviewer's verdict on a stage's artifact.
type ReviewVerdict struct {
	ReviewerRole string   `yaml:"reviewer_role"`
	Mode         string   `yaml:"mode"` // "blocking" | "advisory"
	Blocking     []string `yaml:"blocking,omitempty"`
	Advisory     []string `yaml:"advisory,omitempty"`
}

// StageState is the mutable per-(task,stage) record spec.md §3 describes.
type StageState struct {
	Stage            string          `yaml:"stage"`
	Status           StageStatus     `yaml:"status"`
	ArtifactHash     string          `yaml:"artifact_hash,omitempty"`
	ArtifactVersion  int             `yaml:"artifact_version"`
	Iteration        int             `yaml:"iteration"`
	ReviewFeedback   []string        `yaml:"review_feedback,omitempty"`
	ReviewVerdicts   []ReviewVerdict `yaml:"review_verdicts,omitempty"`
	ValidationHash   string          `yaml:"validation_hash,omitempty"` // set when an external artifact replaced this stage's output
	UpdatedAt        time.Time       `yaml:"updated_at"`
}

// TaskState is the content of state.yaml: the current-stage pointer plus
// every stage's StageState, read-modify-written under the single-writer
// lock.
type TaskState struct {
	SchemaVersion int                    `yaml:"schema_version"`
	TaskID        string                 `yaml:"task_id"`
	CurrentStage  string                 `yaml:"current_stage"`
	StageOrder    []string               `yaml:"stage_order"`
	Stages        map[string]*StageState `yaml:"stages"`
	Extended      bool                   `yaml:"extended,omitempty"`
	UpdatedAt     time.Time              `yaml:"updated_at"`
}

// ArtifactLifecycle is the state machine from spec.md §3:
// draft → pending_review → approved → final (final is immutable), or for
// externally supplied artifacts: imported → validated → approved.
type ArtifactLifecycle string

const (
	ArtifactDraft         ArtifactLifecycle = "draft"
	ArtifactPendingReview ArtifactLifecycle = "pending_review"
	ArtifactApproved      ArtifactLifecycle = "approved"
	ArtifactFinal         ArtifactLifecycle = "final"
	ArtifactImported      ArtifactLifecycle = "imported"
	ArtifactValidated     ArtifactLifecycle = "validated"
)

// ArtifactMeta is the sidecar metadata persisted next to an artifact's
// content-addressed blob.
type ArtifactMeta struct {
	SchemaVersion int               `yaml:"schema_version"`
	Hash          string            `yaml:"hash"`
	ContractID    string            `yaml:"contract_id"`
	Stage         string            `yaml:"stage"`
	Lifecycle     ArtifactLifecycle `yaml:"lifecycle"`
	CreatedAt     time.Time         `yaml:"created_at"`
}

// EscalationStatus is the state machine from spec.md §3.
type EscalationStatus string

const (
	EscalationPending  EscalationStatus = "pending"
	EscalationResolved EscalationStatus = "resolved"
	EscalationAborted  EscalationStatus = "aborted"
)

// Escalation is the persistent human-intervention request of spec.md §3.
type Escalation struct {
	SchemaVersion      int              `yaml:"schema_version"`
	ID                 string           `yaml:"id"`
	TaskID             string           `yaml:"task_id"`
	Stage              string           `yaml:"stage"`
	Reason             string           `yaml:"reason"`
	ContextSnapshotRef string           `yaml:"context_snapshot_ref,omitempty"`
	CreatedAt          time.Time        `yaml:"created_at"`
	Status             EscalationStatus `yaml:"status"`
	Resolution         string           `yaml:"resolution,omitempty"`
	ResolvedAt         *time.Time       `yaml:"resolved_at,omitempty"`
}
