package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"log/slog"

	"github.com/hibiken/asynq"
)

// Mailer delivers transactional email over SMTP.
type Mailer struct {
	addr   string
	from   string
	logger *slog.Logger
}

// NewMailer constructs a Mailer for the given SMTP endpoint.
func NewMailer(host string, port int, from string, logger *slog.Logger) *Mailer {
	return &Mailer{addr: fmt.Sprintf("%s:%d", host, port), from: from, logger: logger}
}

// Send delivers a single message.
func (m *Mailer) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg))
}

// HandleSendEmail processes TaskTypeSendEmail tasks.
func (m *Mailer) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}
	if err := m.Send(payload.To, payload.Subject, payload.Body); err != nil {
		m.logger.Warn("send email", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	m.logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

// HandleMaintenanceNotify processes TaskTypeMaintenanceNotify tasks by
// emailing the operations inbox.
func (m *Mailer) HandleMaintenanceNotify(opsInbox string) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload MaintenanceNotifyPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if opsInbox == "" {
			return nil
		}
		subject := fmt.Sprintf("[maintenance] %s (priority %s)", payload.Title, payload.Priority)
		body := fmt.Sprintf("Maintenance request #%d for property %d reported at %s.",
			payload.RequestID, payload.PropertyID, payload.ReportedAt.Format("2006-01-02 15:04"))
		if err := m.Send(opsInbox, subject, body); err != nil {
			m.logger.Warn("maintenance notify", slog.Int64("request_id", payload.RequestID), slog.Any("error", err))
			return err
		}
		return nil
	}
}
