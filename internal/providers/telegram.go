package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"batch-dispatch-service/internal/models"
)

type telegramClient interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// TelegramSender posts alerts to Telegram chats through the bot API.
type TelegramSender struct {
	client  telegramClient
	limiter *rate.Limiter
}

// NewTelegramSender creates the bot client without calling getMe, so startup
// does not depend on Telegram being reachable.
func NewTelegramSender(token string, ratePerSecond int) (*TelegramSender, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return newTelegramSender(b, ratePerSecond), nil
}

func newTelegramSender(client telegramClient, ratePerSecond int) *TelegramSender {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	return &TelegramSender{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
	}
}

// SendChat sends to a numeric chat id.
func (s *TelegramSender) SendChat(ctx context.Context, chat string, p models.ChatPayload, alert models.AlertEvent) error {
	chatID, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid Telegram chat_id %q: %w", chat, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      telegramText(p),
		ParseMode: "Markdown",
	}
	if url := buttonURL(p); strings.HasPrefix(url, "http") {
		params.ReplyMarkup = &tgmodels.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
				{{Text: "View Monitoring", URL: url}},
			},
		}
	}

	if _, err := s.client.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", chatID, err)
	}
	return nil
}

// telegramText flattens the block message into Markdown.
func telegramText(p models.ChatPayload) string {
	var lines []string
	for _, block := range p.Blocks {
		switch block.Type {
		case "header":
			if block.Text != nil {
				lines = append(lines, "*"+block.Text.Text+"*", "")
			}
		case "section":
			for _, f := range block.Fields {
				lines = append(lines, strings.Replace(f.Text, "\n", " ", 1))
			}
		}
	}
	if len(lines) == 0 {
		return p.Text
	}
	return strings.Join(lines, "\n")
}

func buttonURL(p models.ChatPayload) string {
	for _, block := range p.Blocks {
		for _, el := range block.Elements {
			if el.URL != "" {
				return el.URL
			}
		}
	}
	return ""
}
