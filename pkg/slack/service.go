package slack

import (
	"context"
	"log/slog"
	"time"
)

// ServiceConfig holds the parameters needed to construct a Service.
type ServiceConfig struct {
	Token        string
	Channel      string
	DashboardURL string
}

// Service delivers escalation notifications to a Slack channel — one of
// the "any channel that ultimately writes to the store" spec.md §4.10
// allows for surfacing a pending escalation to a human.
// Nil-safe: all methods are no-ops when service is nil.
type Service struct {
	client       *Client
	dashboardURL string
	logger       *slog.Logger
}

// NewService creates a new Slack notification service.
// Returns nil if Token or Channel is empty.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	return &Service{
		client:       NewClient(cfg.Token, cfg.Channel),
		dashboardURL: cfg.DashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NewServiceWithClient creates a Service backed by a pre-built Client.
// Useful for testing with a mock API server.
func NewServiceWithClient(client *Client, dashboardURL string) *Service {
	return &Service{
		client:       client,
		dashboardURL: dashboardURL,
		logger:       slog.Default().With("component", "slack-service"),
	}
}

// NotifyEscalationOpened announces a new escalation. Returns the resolved
// threadTS for reuse by the terminal notification. Fail-open: errors are
// logged, never returned — a notification failure must never block the
// escalation itself from being recorded (spec.md §4.10's create(esc) has
// already succeeded in the store by the time this is called).
func (s *Service) NotifyEscalationOpened(ctx context.Context, input EscalationOpenedInput) string {
	if s == nil {
		return ""
	}
	blocks := BuildEscalationOpenedMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, "", 5*time.Second); err != nil {
		s.logger.Error("failed to send escalation-opened notification",
			"escalation_id", input.EscalationID, "task_id", input.TaskID, "error", err)
		return ""
	}
	threadTS, err := s.client.FindMessageByFingerprint(ctx, input.EscalationID)
	if err != nil {
		s.logger.Warn("failed to resolve thread for escalation",
			"escalation_id", input.EscalationID, "error", err)
	}
	return threadTS
}

// NotifyEscalationResolved sends a terminal status notification, threaded
// onto the opened notification when threadTS is known. Fail-open: errors
// are logged, never returned.
func (s *Service) NotifyEscalationResolved(ctx context.Context, input EscalationResolvedInput) {
	if s == nil {
		return
	}
	threadTS := input.ThreadTS
	if threadTS == "" {
		var err error
		threadTS, err = s.client.FindMessageByFingerprint(ctx, input.EscalationID)
		if err != nil {
			s.logger.Warn("failed to resolve thread for escalation",
				"escalation_id", input.EscalationID, "error", err)
		}
	}
	blocks := BuildEscalationResolvedMessage(input, s.dashboardURL)
	if err := s.client.PostMessage(ctx, blocks, threadTS, 10*time.Second); err != nil {
		s.logger.Error("failed to send escalation-resolved notification",
			"escalation_id", input.EscalationID, "status", input.Status, "error", err)
	}
}
