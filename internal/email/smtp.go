package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"nurture_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender from the SMTP settings.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  "Nurture",
		fromEmail: cfg.GetSMTPFrom(),
	}
}

// NewSender returns an SMTP sender when alerts are enabled, otherwise a NoopSender.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsAlertEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendJobFailedAlert(ctx context.Context, toEmail string, alert JobFailedAlert) error {
	subject, content, err := renderJobFailed(alert)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func renderJobFailed(alert JobFailedAlert) (string, string, error) {
	kind := kindLabel(alert.Kind)
	content, err := renderEmailTemplate("job_failed.html", jobFailedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Trabajo en error",
			Heading: "Trabajo en error",
		},
		Kind:     kind,
		JobID:    alert.JobID,
		Stage:    alert.Stage,
		Reason:   alert.Reason,
		FailedAt: alert.FailedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectJobFailedFmt, kind, alert.Stage), content, nil
}
