package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
)

var (
	_ EmailSender = (*recorder)(nil)
	_ ChatSender  = (*recorder)(nil)
	_ PushSender  = (*recorder)(nil)
)

type recorder struct {
	mu     sync.Mutex
	emails []models.EmailPayload
	chats  []string
	pushes []string
	failOn map[string]bool
	block  chan struct{}
}

func (r *recorder) err(dest string) error {
	if r.failOn[dest] {
		return errors.New("unreachable " + dest)
	}
	return nil
}

func (r *recorder) SendEmail(ctx context.Context, p models.EmailPayload, _ models.AlertEvent) error {
	r.mu.Lock()
	r.emails = append(r.emails, p)
	r.mu.Unlock()
	return r.err(p.To)
}

func (r *recorder) SendChat(ctx context.Context, dest string, _ models.ChatPayload, _ models.AlertEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.chats = append(r.chats, dest)
	r.mu.Unlock()
	return r.err(dest)
}

func (r *recorder) SendPush(ctx context.Context, sub string, _ models.PushPayload, _ models.AlertEvent) error {
	r.mu.Lock()
	r.pushes = append(r.pushes, sub)
	r.mu.Unlock()
	return r.err(sub)
}

func testAlert() models.AlertEvent {
	return models.AlertEvent{
		ID:        "alert-1",
		Metric:    models.MetricSuccessRate,
		Value:     90,
		Threshold: 95,
		Severity:  models.SeverityError,
		Message:   "Success rate dropped below 95%",
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func allDestinations() models.Destinations {
	return models.Destinations{
		Emails:            []string{"ops@example.com"},
		Chats:             []string{"https://hooks.example.com/T1"},
		PushSubscriptions: []string{"sub-1"},
	}
}

func newNotifier(r *recorder) *Notifier {
	return New(Senders{Email: r, Chat: r, Push: r}, logging.NewNop(), "/admin/monitoring")
}

func TestNotifyOnlyEnabledChannels(t *testing.T) {
	r := &recorder{}
	n := newNotifier(r)

	results := n.Notify(context.Background(), testAlert(),
		models.NotificationPreferences{Email: false, ChatChannel: true},
		allDestinations())

	require.Len(t, results, 1)
	require.Equal(t, models.ChannelChat, results[0].Channel)
	require.NoError(t, results[0].Err)
	require.Len(t, r.chats, 1)
	require.Empty(t, r.emails)
	require.Empty(t, r.pushes)
}

func TestNotifySkipsChannelWithoutDestinations(t *testing.T) {
	r := &recorder{}
	n := newNotifier(r)

	results := n.Notify(context.Background(), testAlert(),
		models.NotificationPreferences{Email: true, ChatChannel: true, Push: true},
		models.Destinations{Emails: []string{"ops@example.com"}})

	require.Len(t, results, 1)
	require.Equal(t, models.ChannelEmail, results[0].Channel)
}

func TestNotifySkipsChannelWithoutSender(t *testing.T) {
	r := &recorder{}
	n := New(Senders{Email: r}, logging.NewNop(), "/admin/monitoring")

	results := n.Notify(context.Background(), testAlert(),
		models.NotificationPreferences{Email: true, ChatChannel: true, Push: true},
		allDestinations())

	require.Len(t, results, 1)
	require.Equal(t, models.ChannelEmail, results[0].Channel)
}

func TestNotifyFailuresAreIsolated(t *testing.T) {
	r := &recorder{failOn: map[string]bool{"bad@example.com": true, "sub-1": true}}
	n := newNotifier(r)

	dest := allDestinations()
	dest.Emails = []string{"bad@example.com", "ops@example.com"}
	results := n.Notify(context.Background(), testAlert(),
		models.NotificationPreferences{Email: true, ChatChannel: true, Push: true},
		dest)

	require.Len(t, results, 4)
	failed := map[string]bool{}
	for _, res := range results {
		if res.Err != nil {
			failed[res.Destination] = true
		}
	}
	require.Equal(t, map[string]bool{"bad@example.com": true, "sub-1": true}, failed)

	sent := []string{}
	for _, e := range r.emails {
		sent = append(sent, e.To)
	}
	sort.Strings(sent)
	require.Equal(t, []string{"bad@example.com", "ops@example.com"}, sent)
	require.Len(t, r.chats, 1)
}

func TestNotifyRunsChannelsConcurrently(t *testing.T) {
	r := &recorder{block: make(chan struct{})}
	n := newNotifier(r)

	done := make(chan []Result)
	go func() {
		done <- n.Notify(context.Background(), testAlert(),
			models.NotificationPreferences{Email: true, ChatChannel: true},
			allDestinations())
	}()

	// email completes while the chat send is still blocked
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.emails) == 1
	}, time.Second, 5*time.Millisecond)

	close(r.block)
	results := <-done
	require.Len(t, results, 2)
}

func TestCallbackUsesSettingsSource(t *testing.T) {
	r := &recorder{}
	n := newNotifier(r)
	cb := n.Callback(context.Background(), StaticSettings{
		Preferences:  models.NotificationPreferences{Push: true},
		Destinations: allDestinations(),
	})

	cb(testAlert())
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.pushes) == 1
	}, time.Second, 5*time.Millisecond)
}
