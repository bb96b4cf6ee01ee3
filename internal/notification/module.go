// Package notification provides event handlers for operator notifications in
// response to job events. Pipelines publish events and never talk to e-mail
// providers directly.
package notification

import (
	"context"
	"fmt"

	"nurture_backend/internal/email"
	"nurture_backend/internal/events"
	"nurture_backend/platform/logger"
)

// Module routes job events to the operator.
type Module struct {
	sender  email.Sender
	alertTo string
	log     *logger.Logger
}

// New creates the notification module. An empty alertTo disables e-mails.
func New(sender email.Sender, alertTo string, log *logger.Logger) *Module {
	return &Module{sender: sender, alertTo: alertTo, log: log}
}

// RegisterHandlers subscribes the module to job events.
func (m *Module) RegisterHandlers(bus events.Subscriber) {
	events.On(bus, m.handleJobFailed)
	events.On(bus, m.handleJobDelivered)
	m.log.Info("notification module registered event handlers")
}

func (m *Module) handleJobDelivered(ctx context.Context, e events.JobDelivered) error {
	m.log.WithContext(ctx).Info("job delivered", "kind", e.Kind, "jobId", e.JobID, "leadId", e.LeadID)
	return nil
}

func (m *Module) handleJobFailed(ctx context.Context, e events.JobFailed) error {
	log := m.log.WithContext(ctx).With("kind", e.Kind, "jobId", e.JobID, "stage", e.Stage)
	log.Warn("job failed", "reason", e.Reason)

	if m.alertTo == "" {
		return nil
	}
	err := m.sender.SendJobFailedAlert(ctx, m.alertTo, email.JobFailedAlert{
		Kind:     e.Kind,
		JobID:    e.JobID.String(),
		Stage:    e.Stage,
		Reason:   e.Reason,
		FailedAt: e.OccurredAt(),
	})
	if err != nil {
		log.Error("job failure alert not sent", "error", err)
		return fmt.Errorf("send job failed alert: %w", err)
	}
	return nil
}
