package notification

import (
	"context"
	"errors"
	"testing"

	"nurture_backend/internal/email"
	"nurture_backend/internal/events"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

type testSender struct {
	to     []string
	alerts []email.JobFailedAlert
	err    error
}

func (s *testSender) SendJobFailedAlert(_ context.Context, to string, alert email.JobFailedAlert) error {
	if s.err != nil {
		return s.err
	}
	s.to = append(s.to, to)
	s.alerts = append(s.alerts, alert)
	return nil
}

func failedEvent() events.JobFailed {
	return events.JobFailed{
		BaseEvent: events.NewBaseEvent(),
		Kind:      events.JobKindMusic,
		JobID:     uuid.New(),
		Stage:     "submit",
		Reason:    "provider rejected",
	}
}

func TestJobFailedSendsAlert(t *testing.T) {
	sender := &testSender{}
	bus := events.NewInMemoryBus(logger.Nop())
	New(sender, "ops@example.com", logger.Nop()).RegisterHandlers(bus)

	e := failedEvent()
	if err := bus.PublishSync(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(sender.alerts) != 1 || sender.to[0] != "ops@example.com" {
		t.Fatalf("expected one alert to ops, got %+v", sender.to)
	}
	got := sender.alerts[0]
	if got.JobID != e.JobID.String() || got.Stage != "submit" || got.Kind != events.JobKindMusic || got.FailedAt.IsZero() {
		t.Fatalf("unexpected alert %+v", got)
	}
}

func TestJobFailedWithoutRecipientOnlyLogs(t *testing.T) {
	sender := &testSender{}
	m := New(sender, "", logger.Nop())

	if err := m.handleJobFailed(context.Background(), failedEvent()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sender.alerts) != 0 {
		t.Fatal("expected no alert without a recipient")
	}
}

func TestJobFailedReportsSendError(t *testing.T) {
	m := New(&testSender{err: errors.New("smtp down")}, "ops@example.com", logger.Nop())
	if err := m.handleJobFailed(context.Background(), failedEvent()); err == nil {
		t.Fatal("expected send error")
	}
}
