package store

import (
	"os"
	"sort"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// CreateEscalation persists a new escalation file. spec.md §3 invariant: a
// task with a pending escalation on its current stage does not advance
// until the escalation is resolved — enforced by the pipeline controller,
// which checks PendingEscalations before advancing.
func (s *Store) CreateEscalation(esc Escalation) error {
	esc.SchemaVersion = schemaVersion1
	if esc.CreatedAt.IsZero() {
		esc.CreatedAt = nowUTC()
	}
	if esc.Status == "" {
		esc.Status = EscalationPending
	}
	if err := os.MkdirAll(escalationsDir(s.root, esc.TaskID), 0o755); err != nil {
		return err
	}
	return writeYAMLAtomic(escalationPath(s.root, esc.TaskID, esc.ID), esc)
}

// LoadEscalation reads one escalation by id.
func (s *Store) LoadEscalation(taskID, escID string) (*Escalation, error) {
	var e Escalation
	if err := readYAML(escalationPath(s.root, taskID, escID), &e); err != nil {
		if os.IsNotExist(err) {
			return nil, errEscalationNotFound(escID)
		}
		return nil, err
	}
	return &e, nil
}

// PendingEscalations returns every pending escalation for a task, in
// creation order.
func (s *Store) PendingEscalations(taskID string) ([]Escalation, error) {
	all, err := s.AllEscalations(taskID)
	if err != nil {
		return nil, err
	}
	var pending []Escalation
	for _, e := range all {
		if e.Status == EscalationPending {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// AllEscalations returns every escalation recorded for a task, sorted by id.
func (s *Store) AllEscalations(taskID string) ([]Escalation, error) {
	entries, err := os.ReadDir(escalationsDir(s.root, taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var result []Escalation
	for _, name := range names {
		var e Escalation
		if err := readYAML(escalationsDir(s.root, taskID)+"/"+name, &e); err != nil {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// ResolveEscalation marks a pending escalation resolved and stores the
// resolution text.
func (s *Store) ResolveEscalation(taskID, escID, resolution string) error {
	e, err := s.LoadEscalation(taskID, escID)
	if err != nil {
		return err
	}
	if e.Status != EscalationPending {
		return errorkind.New(errorkind.InvalidInput, "escalation is not pending: "+escID)
	}
	e.Status = EscalationResolved
	e.Resolution = resolution
	t := nowUTC()
	e.ResolvedAt = &t
	return writeYAMLAtomic(escalationPath(s.root, taskID, escID), e)
}

// AbortEscalation marks a pending escalation aborted.
func (s *Store) AbortEscalation(taskID, escID string) error {
	e, err := s.LoadEscalation(taskID, escID)
	if err != nil {
		return err
	}
	e.Status = EscalationAborted
	t := nowUTC()
	e.ResolvedAt = &t
	return writeYAMLAtomic(escalationPath(s.root, taskID, escID), e)
}
