package store

// AppendStep atomically appends record to a task's actions.log, assigning
// it the next monotonic step index, per spec.md §4.1: "append_step(id,
// record) — atomic append; record gains a monotonic step number." record
// need only implement Indexed; its concrete shape (step index, timestamp,
// task id, stage, agent role, action, result, usage, hashes) is owned by
// the caller (package audit), not by store — this keeps the audit record
// schema out of store without an import cycle.
func (s *Store) AppendStep(taskID string, record Indexed) (int, error) {
	lock := newTaskLock(lockPath(s.root, taskID))
	release, err := lock.acquire(lockTimeout)
	if err != nil {
		return 0, err
	}
	defer release()
	return appendLogEntry(actionsLogPath(s.root, taskID), record)
}

// ReadStepDocs returns every raw YAML document in a task's actions.log, in
// append order, for the caller to unmarshal into its own step-record type.
func (s *Store) ReadStepDocs(taskID string) ([][]byte, error) {
	return readLogEntries(actionsLogPath(s.root, taskID))
}
