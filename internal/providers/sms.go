package providers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"batch-dispatch-service/internal/models"
	"batch-dispatch-service/pkg/sms"
)

// SMSSender adapts the provider client to the dispatcher.
type SMSSender struct {
	client *sms.Client
}

func NewSMSSender(client *sms.Client) *SMSSender {
	return &SMSSender{client: client}
}

// Send posts msg and returns the provider message id.
func (s *SMSSender) Send(ctx context.Context, auth models.AuthContext, msg models.OutboundMessage) (string, error) {
	req := sms.Request{
		RecipientPhone: msg.Recipient,
		Text:           msg.Body,
		LocalID:        uuid.NewString(),
		Private:        msg.IsPrivate,
		Author:         msg.Author,
	}
	if len(msg.Attachments) > 0 {
		req.MediaURL = msg.Attachments[0]
	}

	resp, err := s.client.Send(ctx, auth.Token, req)
	if err != nil {
		return "", fmt.Errorf("send to %s: %w", msg.Recipient, err)
	}
	return resp.ID, nil
}
