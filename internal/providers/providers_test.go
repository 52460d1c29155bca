package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batch-dispatch-service/internal/batch"
	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
	"batch-dispatch-service/internal/notification"
	"batch-dispatch-service/pkg/email"
	"batch-dispatch-service/pkg/sms"
)

var (
	_ batch.Sender             = (*SMSSender)(nil)
	_ notification.EmailSender = (*EmailSender)(nil)
	_ notification.ChatSender  = (*WebhookSender)(nil)
	_ notification.ChatSender  = (*TelegramSender)(nil)
	_ notification.ChatSender  = ChatRouter{}
	_ notification.PushSender  = (*PushHub)(nil)
)

func testAlert() models.AlertEvent {
	return models.AlertEvent{
		ID:        "alert-1",
		Metric:    models.MetricErrorRate,
		Value:     7.5,
		Threshold: 5,
		Severity:  models.SeverityWarning,
		Message:   "Error rate exceeded 5%",
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSMSSenderMapsMessage(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id":"msg-9"}`))
	}))
	defer srv.Close()

	s := NewSMSSender(sms.New(srv.URL, "default", srv.Client()))
	id, err := s.Send(context.Background(), models.AuthContext{Token: "user-token"}, models.OutboundMessage{
		Recipient:   "15551234567",
		Body:        "Hi Ann",
		Attachments: []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		IsPrivate:   true,
		Author:      "ops",
	})
	require.NoError(t, err)
	require.Equal(t, "msg-9", id)
	require.Equal(t, "Bearer user-token", auth)
	require.Equal(t, "15551234567", got["recipientPhone"])
	require.Equal(t, "Hi Ann", got["text"])
	require.Equal(t, "https://cdn.example.com/a.png", got["mediaUrl"])
	require.Equal(t, true, got["private"])
	require.NotEmpty(t, got["localId"])
}

func TestSMSSenderWrapsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSMSSender(sms.New(srv.URL, "default", srv.Client()))
	_, err := s.Send(context.Background(), models.AuthContext{}, models.OutboundMessage{Recipient: "15551234567"})
	require.ErrorIs(t, err, sms.ErrProviderStatus)
	require.Contains(t, err.Error(), "15551234567")
}

func TestEmailSenderUsesServer(t *testing.T) {
	var gotTo, gotSubject string
	s := &EmailSender{
		server: email.Server{Host: "smtp.example.com", Port: 587},
		send: func(ctx context.Context, srv email.Server, to, subject, body string) error {
			gotTo, gotSubject = to, subject
			return ctx.Err()
		},
	}
	err := s.SendEmail(context.Background(), models.EmailPayload{To: "ops@example.com", Subject: "s", Body: "b"}, testAlert())
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", gotTo)
	require.Equal(t, "s", gotSubject)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.SendEmail(ctx, models.EmailPayload{}, testAlert()), context.Canceled)
}

func TestWebhookSenderPostsJSON(t *testing.T) {
	var payload models.ChatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.Client())
	err := s.SendChat(context.Background(), srv.URL, notification.FormatChat(testAlert(), "https://app.example.com"), testAlert())
	require.NoError(t, err)
	require.Len(t, payload.Blocks, 3)
}

func TestWebhookSenderRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewWebhookSender(nil).SendChat(context.Background(), srv.URL, models.ChatPayload{}, testAlert())
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

type fakeTelegram struct {
	params []*bot.SendMessageParams
	err    error
}

func (f *fakeTelegram) SendMessage(ctx context.Context, p *bot.SendMessageParams) (*tgmodels.Message, error) {
	f.params = append(f.params, p)
	return &tgmodels.Message{}, f.err
}

func TestTelegramSenderBuildsMessage(t *testing.T) {
	fake := &fakeTelegram{}
	s := newTelegramSender(fake, 5)

	err := s.SendChat(context.Background(), "-100200", notification.FormatChat(testAlert(), "https://app.example.com/admin/monitoring"), testAlert())
	require.NoError(t, err)
	require.Len(t, fake.params, 1)

	p := fake.params[0]
	require.Equal(t, int64(-100200), p.ChatID)
	require.EqualValues(t, "Markdown", p.ParseMode)
	require.Contains(t, p.Text, "*Metric:* error_rate")
	require.Contains(t, p.Text, "WARNING: Error rate exceeded 5%")
	markup, ok := p.ReplyMarkup.(*tgmodels.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Equal(t, "https://app.example.com/admin/monitoring", markup.InlineKeyboard[0][0].URL)
}

func TestTelegramSenderRelativeLinkHasNoButton(t *testing.T) {
	fake := &fakeTelegram{}
	s := newTelegramSender(fake, 5)

	require.NoError(t, s.SendChat(context.Background(), "42", notification.FormatChat(testAlert(), "/admin/monitoring"), testAlert()))
	require.Nil(t, fake.params[0].ReplyMarkup)
}

func TestTelegramSenderErrors(t *testing.T) {
	s := newTelegramSender(&fakeTelegram{}, 5)
	require.Error(t, s.SendChat(context.Background(), "not-a-chat", models.ChatPayload{}, testAlert()))

	s = newTelegramSender(&fakeTelegram{err: errors.New("forbidden")}, 5)
	err := s.SendChat(context.Background(), "42", models.ChatPayload{Text: "x"}, testAlert())
	require.ErrorContains(t, err, "forbidden")
}

type chatRecorder struct{ dests []string }

func (c *chatRecorder) SendChat(ctx context.Context, dest string, _ models.ChatPayload, _ models.AlertEvent) error {
	c.dests = append(c.dests, dest)
	return nil
}

func TestChatRouter(t *testing.T) {
	webhook, tg := &chatRecorder{}, &chatRecorder{}
	r := ChatRouter{Webhook: webhook, Telegram: tg}

	require.NoError(t, r.SendChat(context.Background(), "telegram:42", models.ChatPayload{}, testAlert()))
	require.NoError(t, r.SendChat(context.Background(), "https://hooks.example.com/T1", models.ChatPayload{}, testAlert()))
	require.Equal(t, []string{"42"}, tg.dests)
	require.Equal(t, []string{"https://hooks.example.com/T1"}, webhook.dests)

	require.Error(t, ChatRouter{Webhook: webhook}.SendChat(context.Background(), "telegram:42", models.ChatPayload{}, testAlert()))
}

func newPushServer(t *testing.T, hub *PushHub, subscription string) (*httptest.Server, *sync.WaitGroup) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var subscribed sync.WaitGroup
	subscribed.Add(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		hub.Subscribe(subscription, conn)
		subscribed.Done()
		defer hub.Unsubscribe(subscription, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	return srv, &subscribed
}

func TestPushHubDeliversToSubscriber(t *testing.T) {
	hub := NewPushHub(logging.NewNop())
	srv, subscribed := newPushServer(t, hub, "sub-1")
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()
	subscribed.Wait()
	require.Equal(t, 1, hub.Connections("sub-1"))

	payload := notification.FormatPush(testAlert(), "/admin/monitoring")
	require.NoError(t, hub.SendPush(context.Background(), "sub-1", payload, testAlert()))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := client.ReadMessage()
	require.NoError(t, err)
	var got models.PushPayload
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "batch-alert-error_rate", got.Tag)
	require.Equal(t, "alert-1", got.Data.Alert.ID)
}

func TestPushHubWithoutSubscriber(t *testing.T) {
	hub := NewPushHub(logging.NewNop())
	err := hub.SendPush(context.Background(), "missing", models.PushPayload{}, testAlert())
	require.ErrorIs(t, err, ErrNoSubscriber)
}
