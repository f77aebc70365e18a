package store

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// RetentionPolicy controls Pruner's background sweep of completed tasks,
// adapted from the retention knobs the original cleanup service exposed
// (session retention days / sweep interval), applied here to task
// directories instead of database rows.
type RetentionPolicy struct {
	CompletedTaskTTL time.Duration
	SweepInterval    time.Duration
}

// DefaultRetentionPolicy matches spec.md's non-goal framing of retention as
// an operational knob, not a correctness concern: conservative defaults that
// keep everything unless explicitly configured tighter.
var DefaultRetentionPolicy = RetentionPolicy{
	CompletedTaskTTL: 30 * 24 * time.Hour,
	SweepInterval:    time.Hour,
}

// Pruner periodically removes task directories whose terminal stage
// completed more than Policy.CompletedTaskTTL ago. One pod/process should
// own a Pruner per store root; sweeps are idempotent and safe to overlap.
type Pruner struct {
	store  *Store
	policy RetentionPolicy

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPruner constructs a Pruner bound to s.
func NewPruner(s *Store, policy RetentionPolicy) *Pruner {
	return &Pruner{store: s, policy: policy}
}

// Start launches the background sweep loop. Calling Start twice is a no-op.
func (p *Pruner) Start(ctx context.Context) {
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go p.run(ctx)

	slog.Info("store pruner started",
		"completed_task_ttl", p.policy.CompletedTaskTTL,
		"interval", p.policy.SweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (p *Pruner) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	slog.Info("store pruner stopped")
}

func (p *Pruner) run(ctx context.Context) {
	defer close(p.done)

	p.sweep()

	ticker := time.NewTicker(p.policy.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *Pruner) sweep() {
	ids, err := p.store.ListTasks()
	if err != nil {
		slog.Error("pruner: list tasks failed", "error", err)
		return
	}
	cutoff := time.Now().UTC().Add(-p.policy.CompletedTaskTTL)
	removed := 0
	for _, id := range ids {
		st, err := p.store.LoadState(id)
		if err != nil {
			continue // leave anything unreadable for manual inspection
		}
		if !taskIsTerminal(st) {
			continue
		}
		if st.UpdatedAt.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(taskDir(p.store.root, id)); err != nil {
			slog.Error("pruner: remove task dir failed", "task_id", id, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("pruner: removed expired task directories", "count", removed)
	}
}

// taskIsTerminal reports whether every stage has reached a terminal status,
// i.e. the task as a whole is done and eligible for retention sweeps.
func taskIsTerminal(st *TaskState) bool {
	for _, name := range st.StageOrder {
		s, ok := st.Stages[name]
		if !ok {
			return false
		}
		switch s.Status {
		case StageStatusCompleted, StageStatusFailed, StageStatusSkipped:
		default:
			return false
		}
	}
	return len(st.StageOrder) > 0
}
