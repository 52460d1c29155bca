package providers

import (
	"context"

	"batch-dispatch-service/internal/models"
	"batch-dispatch-service/pkg/email"
)

// EmailSender delivers alert emails over SMTP.
type EmailSender struct {
	server email.Server
	send   func(ctx context.Context, srv email.Server, to, subject, body string) error
}

func NewEmailSender(server email.Server) *EmailSender {
	return &EmailSender{server: server, send: email.Send}
}

func (s *EmailSender) SendEmail(ctx context.Context, p models.EmailPayload, alert models.AlertEvent) error {
	return s.send(ctx, s.server, p.To, p.Subject, p.Body)
}
