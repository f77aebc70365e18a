package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/pkg/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.CreateTask(store.Task{ID: "task-1", Template: "tmpl"}, []string{"draft"}))
	return NewManager(s), s
}

func TestManagerCreateValidatesInput(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create(CreateInput{Stage: "draft", Reason: "needs a human"})
	assert.Error(t, err, "missing task id")

	_, err = m.Create(CreateInput{TaskID: "task-1", Reason: "needs a human"})
	assert.Error(t, err, "missing stage")

	_, err = m.Create(CreateInput{TaskID: "task-1", Stage: "draft"})
	assert.Error(t, err, "missing reason")
}

func TestManagerCreateMintsIDWhenAbsent(t *testing.T) {
	m, _ := newTestManager(t)

	rec, err := m.Create(CreateInput{TaskID: "task-1", Stage: "draft", Reason: "needs a human"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, StatusPending, rec.Status)
}

func TestManagerPendingAndAll(t *testing.T) {
	m, _ := newTestManager(t)

	rec1, err := m.Create(CreateInput{TaskID: "task-1", Stage: "draft", Reason: "first"})
	require.NoError(t, err)
	_, err = m.Create(CreateInput{TaskID: "task-1", Stage: "draft", Reason: "second"})
	require.NoError(t, err)

	_, err = m.Resolve("task-1", rec1.ID, "fixed it")
	require.NoError(t, err)

	pending, err := m.Pending("task-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "second", pending[0].Reason)

	all, err := m.All("task-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestManagerResolveRequiresResolutionText(t *testing.T) {
	m, _ := newTestManager(t)
	rec, err := m.Create(CreateInput{TaskID: "task-1", Stage: "draft", Reason: "needs a human"})
	require.NoError(t, err)

	_, err = m.Resolve("task-1", rec.ID, "")
	assert.Error(t, err)
}

func TestManagerResolveAndAbort(t *testing.T) {
	m, _ := newTestManager(t)

	rec1, err := m.Create(CreateInput{TaskID: "task-1", Stage: "draft", Reason: "needs a human"})
	require.NoError(t, err)
	resolved, err := m.Resolve("task-1", rec1.ID, "use v2 schema")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, resolved.Status)
	assert.Equal(t, "use v2 schema", resolved.Resolution)

	rec2, err := m.Create(CreateInput{TaskID: "task-1", Stage: "draft", Reason: "needs a human again"})
	require.NoError(t, err)
	aborted, err := m.Abort("task-1", rec2.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, aborted.Status)
}
