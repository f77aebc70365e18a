package escalation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyingManagerWorksWithoutSlackConfigured(t *testing.T) {
	m, _ := newTestManager(t)
	n := NewNotifyingManager(m, nil)

	rec, err := n.Create(context.Background(), CreateInput{TaskID: "task-1", Stage: "draft", Reason: "needs a human"})
	require.NoError(t, err)

	resolved, err := n.Resolve(context.Background(), "task-1", rec.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, resolved.Status)
}
