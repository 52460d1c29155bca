package providers

import (
	"context"
	"fmt"
	"strings"

	"batch-dispatch-service/internal/models"
	"batch-dispatch-service/internal/notification"
)

const telegramPrefix = "telegram:"

// ChatRouter picks the chat backend from the destination:
// "telegram:<chat_id>" goes to Telegram, anything else is a webhook URL.
type ChatRouter struct {
	Webhook  notification.ChatSender
	Telegram notification.ChatSender
}

func (r ChatRouter) SendChat(ctx context.Context, dest string, p models.ChatPayload, alert models.AlertEvent) error {
	if chat, ok := strings.CutPrefix(dest, telegramPrefix); ok {
		if r.Telegram == nil {
			return fmt.Errorf("telegram destination %s but Telegram is not configured", dest)
		}
		return r.Telegram.SendChat(ctx, chat, p, alert)
	}
	if r.Webhook == nil {
		return fmt.Errorf("no webhook sender for %s", dest)
	}
	return r.Webhook.SendChat(ctx, dest, p, alert)
}
