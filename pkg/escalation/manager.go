package escalation

import (
	"github.com/google/uuid"

	"github.com/agentforge/agentforge/pkg/store"
)

// Manager is the C10 contract: create/pending/resolve/abort over one
// store. pipeline.Controller calls store.CreateEscalation directly when a
// stage or review loop escalates mid-run (it already holds the task's
// state-update transaction); Manager is the entry point for everything
// else that touches an escalation from outside a running pipeline step —
// a CLI `escalations list`/`resolve` command, a notifier, an operator
// console — so every caller resolves/aborts through the same validation
// and error-translation path.
type Manager struct {
	store *store.Store
}

// NewManager constructs a Manager over store s.
func NewManager(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Create opens a new escalation, minting an id if the caller didn't supply
// one. Per spec.md §4.10: "create(esc) appends to the store."
func (m *Manager) Create(in CreateInput) (Record, error) {
	if in.TaskID == "" {
		return Record{}, errMissingTaskID()
	}
	if in.Stage == "" {
		return Record{}, errMissingStage()
	}
	if in.Reason == "" {
		return Record{}, errMissingReason()
	}
	id := in.ID
	if id == "" {
		id = "esc-" + uuid.New().String()
	}
	esc := store.Escalation{
		ID: id, TaskID: in.TaskID, Stage: in.Stage, Reason: in.Reason,
		ContextSnapshotRef: in.ContextSnapshotRef,
	}
	if err := m.store.CreateEscalation(esc); err != nil {
		return Record{}, err
	}
	loaded, err := m.store.LoadEscalation(in.TaskID, id)
	if err != nil {
		return Record{}, err
	}
	return fromStore(*loaded), nil
}

// Get loads one escalation by id.
func (m *Manager) Get(taskID, escID string) (Record, error) {
	e, err := m.store.LoadEscalation(taskID, escID)
	if err != nil {
		return Record{}, err
	}
	return fromStore(*e), nil
}

// Pending returns a task's active (unresolved, unaborted) escalations, per
// spec.md §4.10's pending().
func (m *Manager) Pending(taskID string) ([]Record, error) {
	all, err := m.store.PendingEscalations(taskID)
	if err != nil {
		return nil, err
	}
	return toRecords(all), nil
}

// All returns every escalation recorded for a task, including resolved
// and aborted ones, for audit/history views.
func (m *Manager) All(taskID string) ([]Record, error) {
	all, err := m.store.AllEscalations(taskID)
	if err != nil {
		return nil, err
	}
	return toRecords(all), nil
}

// Resolve marks a pending escalation resolved and stores the human's
// resolution text, per spec.md §4.10's resolve(id, resolution). The
// resolution is read back by the controller on its next Run call and
// injected into the resumed stage's context as a structured field — never
// as free-form chat, per spec.md §4.10.
func (m *Manager) Resolve(taskID, escID, resolution string) (Record, error) {
	if resolution == "" {
		return Record{}, errMissingResolution()
	}
	if err := m.store.ResolveEscalation(taskID, escID, resolution); err != nil {
		return Record{}, err
	}
	return m.Get(taskID, escID)
}

// Abort marks a pending escalation aborted without a resolution — the
// operator decided the task itself should stop rather than continue.
func (m *Manager) Abort(taskID, escID string) (Record, error) {
	if err := m.store.AbortEscalation(taskID, escID); err != nil {
		return Record{}, err
	}
	return m.Get(taskID, escID)
}

func toRecords(all []store.Escalation) []Record {
	out := make([]Record, 0, len(all))
	for _, e := range all {
		out = append(out, fromStore(e))
	}
	return out
}
