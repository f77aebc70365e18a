// Package escalation implements AgentForge's Escalation Manager (spec.md
// §4.10, C10): a thin service over the state store's escalation CRUD,
// built in the same service-layer idiom as tarsy's pkg/services/*_service.go
// — a struct wrapping the store, validating input, translating store errors
// into this package's own sentinel errors.
package escalation

import (
	"time"

	"github.com/agentforge/agentforge/pkg/store"
)

// Status mirrors store.EscalationStatus so callers outside pkg/store never
// need to import it directly to work with an escalation's lifecycle.
type Status = store.EscalationStatus

const (
	StatusPending  = store.EscalationPending
	StatusResolved = store.EscalationResolved
	StatusAborted  = store.EscalationAborted
)

// Record is the manager's view of one escalation — store.Escalation
// re-exported under this package so callers depend on escalation, not
// store, for the shape of a human-intervention request.
type Record struct {
	ID                 string
	TaskID             string
	Stage              string
	Reason             string
	ContextSnapshotRef string
	CreatedAt          time.Time
	Status             Status
	Resolution         string
	ResolvedAt         *time.Time
}

func fromStore(e store.Escalation) Record {
	return Record{
		ID: e.ID, TaskID: e.TaskID, Stage: e.Stage, Reason: e.Reason,
		ContextSnapshotRef: e.ContextSnapshotRef, CreatedAt: e.CreatedAt,
		Status: e.Status, Resolution: e.Resolution, ResolvedAt: e.ResolvedAt,
	}
}

// CreateInput is the data needed to open a new escalation, per spec.md
// §4.10's create(esc).
type CreateInput struct {
	ID                 string // caller-assigned; pipeline.Controller mints "esc-"+uuid
	TaskID             string
	Stage              string
	Reason             string
	ContextSnapshotRef string
}
