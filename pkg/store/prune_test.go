package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRemovesExpiredTerminalTask(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateTask(Task{ID: "task-1", EntryStage: "a"}, []string{"a"}))
	require.NoError(t, s.UpdateState("task-1", func(st *TaskState) error {
		st.Stages["a"].Status = StageStatusCompleted
		st.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
		return nil
	}))

	p := NewPruner(s, RetentionPolicy{CompletedTaskTTL: time.Hour, SweepInterval: time.Hour})
	p.sweep()

	_, err := os.Stat(taskDir(s.Root(), "task-1"))
	assert.True(t, os.IsNotExist(err))
}

func TestSweepKeepsRecentTerminalTask(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateTask(Task{ID: "task-1", EntryStage: "a"}, []string{"a"}))
	require.NoError(t, s.UpdateState("task-1", func(st *TaskState) error {
		st.Stages["a"].Status = StageStatusCompleted
		return nil
	}))

	p := NewPruner(s, RetentionPolicy{CompletedTaskTTL: time.Hour, SweepInterval: time.Hour})
	p.sweep()

	_, err := os.Stat(taskDir(s.Root(), "task-1"))
	require.NoError(t, err)
}

func TestSweepKeepsNonTerminalTask(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateTask(Task{ID: "task-1", EntryStage: "a"}, []string{"a"}))
	require.NoError(t, s.UpdateState("task-1", func(st *TaskState) error {
		st.UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
		return nil
	}))

	p := NewPruner(s, RetentionPolicy{CompletedTaskTTL: time.Hour, SweepInterval: time.Hour})
	p.sweep()

	_, err := os.Stat(taskDir(s.Root(), "task-1"))
	require.NoError(t, err, "pending stages must never be pruned regardless of age")
}
