package escalation

import (
	"context"
	"sync"

	"github.com/agentforge/agentforge/pkg/slack"
)

// NotifyingManager wraps a Manager with an optional Slack notification
// channel: every create/resolve/abort that succeeds in the store also
// fires a best-effort notification, so a human watching the channel
// learns about a new escalation without polling `escalations list`.
// slack.Service is nil-safe, so Notifier works unconfigured (notifications
// silently skipped) exactly as well as configured.
type NotifyingManager struct {
	*Manager
	slack *slack.Service

	mu           sync.Mutex
	threadByTask map[string]string
}

// NewNotifyingManager wraps m with notifications delivered through svc
// (which may be nil to disable notifications entirely).
func NewNotifyingManager(m *Manager, svc *slack.Service) *NotifyingManager {
	return &NotifyingManager{Manager: m, slack: svc, threadByTask: make(map[string]string)}
}

// Create opens an escalation and announces it.
func (n *NotifyingManager) Create(ctx context.Context, in CreateInput) (Record, error) {
	rec, err := n.Manager.Create(in)
	if err != nil {
		return Record{}, err
	}
	threadTS := n.slack.NotifyEscalationOpened(ctx, slack.EscalationOpenedInput{
		EscalationID: rec.ID, TaskID: rec.TaskID, Stage: rec.Stage, Reason: rec.Reason,
	})
	if threadTS != "" {
		n.mu.Lock()
		n.threadByTask[rec.ID] = threadTS
		n.mu.Unlock()
	}
	return rec, nil
}

// Resolve resolves an escalation and announces the resolution.
func (n *NotifyingManager) Resolve(ctx context.Context, taskID, escID, resolution string) (Record, error) {
	rec, err := n.Manager.Resolve(taskID, escID, resolution)
	if err != nil {
		return Record{}, err
	}
	n.slack.NotifyEscalationResolved(ctx, slack.EscalationResolvedInput{
		EscalationID: rec.ID, TaskID: rec.TaskID, Stage: rec.Stage,
		Status: string(rec.Status), Resolution: rec.Resolution,
		ThreadTS: n.popThread(rec.ID),
	})
	return rec, nil
}

// Abort aborts an escalation and announces it.
func (n *NotifyingManager) Abort(ctx context.Context, taskID, escID string) (Record, error) {
	rec, err := n.Manager.Abort(taskID, escID)
	if err != nil {
		return Record{}, err
	}
	n.slack.NotifyEscalationResolved(ctx, slack.EscalationResolvedInput{
		EscalationID: rec.ID, TaskID: rec.TaskID, Stage: rec.Stage,
		Status: string(rec.Status), ThreadTS: n.popThread(rec.ID),
	})
	return rec, nil
}

func (n *NotifyingManager) popThread(escID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ts := n.threadByTask[escID]
	delete(n.threadByTask, escID)
	return ts
}
