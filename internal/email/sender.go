// Package email renders and delivers operator e-mails.
package email

import (
	"context"
	"time"
)

// JobFailedAlert describes a job that reached the error status.
type JobFailedAlert struct {
	Kind     string
	JobID    string
	Stage    string
	Reason   string
	FailedAt time.Time
}

// Sender delivers operator e-mails.
type Sender interface {
	SendJobFailedAlert(ctx context.Context, toEmail string, alert JobFailedAlert) error
}

// NoopSender drops every e-mail. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendJobFailedAlert(context.Context, string, JobFailedAlert) error {
	return nil
}
