package store

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// lockTimeout bounds how long update_state waits for the per-task write
// lock before giving up (spec.md §4.1: "single-writer per task via file
// lock").
const lockTimeout = 30 * time.Second

// Store is the durable, crash-safe state store of spec.md §4.1 (C1). All
// operations are rooted at a single directory; one Store instance can
// safely serve many tasks concurrently — each task's mutations are
// serialized by its own file lock, independent of every other task
// (spec.md §5: "Writers from different tasks are fully independent").
type Store struct {
	root string
}

// New creates a Store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// CreateTask persists a new task.yaml and its initial state.yaml. Fails with
// errorkind.AlreadyExists if the id is already in use.
func (s *Store) CreateTask(task Task, stageOrder []string) error {
	dir := taskDir(s.root, task.ID)
	if _, err := os.Stat(taskYAMLPath(s.root, task.ID)); err == nil {
		return errTaskExists(task.ID)
	}
	task.SchemaVersion = schemaVersion1
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create task dir %s: %w", dir, err)
	}
	if err := writeYAMLAtomic(taskYAMLPath(s.root, task.ID), task); err != nil {
		return fmt.Errorf("write task.yaml: %w", err)
	}

	stages := make(map[string]*StageState, len(stageOrder))
	for _, name := range stageOrder {
		stages[name] = &StageState{Stage: name, Status: StageStatusPending, UpdatedAt: time.Now().UTC()}
	}
	initial := &TaskState{
		SchemaVersion: schemaVersion1,
		TaskID:        task.ID,
		CurrentStage:  task.EntryStage,
		StageOrder:    stageOrder,
		Stages:        stages,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := writeYAMLAtomic(stateYAMLPath(s.root, task.ID), initial); err != nil {
		return fmt.Errorf("write state.yaml: %w", err)
	}
	return nil
}

// LoadTask reads task.yaml. Returns errorkind.NotFound if absent.
func (s *Store) LoadTask(id string) (*Task, error) {
	var t Task
	if err := readYAML(taskYAMLPath(s.root, id), &t); err != nil {
		if os.IsNotExist(err) {
			return nil, errTaskNotFound(id)
		}
		return nil, fmt.Errorf("read task.yaml: %w", err)
	}
	return &t, nil
}

// LoadState reads state.yaml. A YAML decode failure is reported as
// errorkind.StateCorrupted — spec.md §4.1: "Corruption of state.yaml is
// unrecoverable automatically — fails StateCorrupted and escalates."
func (s *Store) LoadState(id string) (*TaskState, error) {
	var st TaskState
	path := stateYAMLPath(s.root, id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errTaskNotFound(id)
	}
	if err := readYAML(path, &st); err != nil {
		return nil, errorkind.Wrap(errorkind.StateCorrupted, "state.yaml unreadable", err)
	}
	return &st, nil
}

// ListTasks returns every task id known to the store, sorted for
// deterministic output.
func (s *Store) ListTasks() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read store root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		if _, err := os.Stat(taskYAMLPath(s.root, e.Name())); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// UpdateState performs a read-modify-write of state.yaml under the task's
// single-writer lock: mutator receives the current state and mutates it in
// place; the result is persisted atomically. Returns errorkind.StateCorrupted
// if the existing file cannot be parsed.
func (s *Store) UpdateState(id string, mutator func(*TaskState) error) error {
	lock := newTaskLock(lockPath(s.root, id))
	release, err := lock.acquire(lockTimeout)
	if err != nil {
		return fmt.Errorf("acquire state lock for %s: %w", id, err)
	}
	defer release()

	st, err := s.LoadState(id)
	if err != nil {
		return err
	}
	if err := mutator(st); err != nil {
		return err
	}
	st.UpdatedAt = time.Now().UTC()
	return writeYAMLAtomic(stateYAMLPath(s.root, id), st)
}
