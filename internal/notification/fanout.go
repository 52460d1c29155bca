// Package notification fans alerts out to the configured delivery channels.
package notification

import (
	"context"
	"sync"
	"time"

	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
)

// EmailSender delivers one formatted email.
type EmailSender interface {
	SendEmail(ctx context.Context, payload models.EmailPayload, alert models.AlertEvent) error
}

// ChatSender delivers a block message to one chat destination.
type ChatSender interface {
	SendChat(ctx context.Context, destination string, payload models.ChatPayload, alert models.AlertEvent) error
}

// PushSender delivers a push payload to one subscription.
type PushSender interface {
	SendPush(ctx context.Context, subscription string, payload models.PushPayload, alert models.AlertEvent) error
}

// Senders groups the channel senders. A nil sender disables its channel.
type Senders struct {
	Email EmailSender
	Chat  ChatSender
	Push  PushSender
}

// Result is the outcome of a single channel send.
type Result struct {
	Channel     models.Channel
	Destination string
	Err         error
}

// SettingsSource supplies the current preferences and destinations.
type SettingsSource interface {
	Settings(ctx context.Context) (models.NotificationPreferences, models.Destinations, error)
}

// Notifier runs every channel send concurrently. It never retries.
type Notifier struct {
	senders       Senders
	logger        *logging.Logger
	monitoringURL string
	timeout       time.Duration
}

// New constructs a Notifier.
func New(senders Senders, logger *logging.Logger, monitoringURL string) *Notifier {
	return &Notifier{
		senders:       senders,
		logger:        logger,
		monitoringURL: monitoringURL,
		timeout:       30 * time.Second,
	}
}

// Notify sends alert to every destination of every enabled channel and waits
// for all of them. Failures are logged and reported, never returned as an error.
func (n *Notifier) Notify(ctx context.Context, alert models.AlertEvent, prefs models.NotificationPreferences, dest models.Destinations) []Result {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []Result
	)
	record := func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	for _, ch := range []models.Channel{models.ChannelEmail, models.ChannelChat, models.ChannelPush} {
		if !prefs.Enabled(ch) {
			continue
		}
		targets := dest.For(ch)
		if len(targets) == 0 {
			continue
		}
		send := n.sendFunc(ch, alert)
		if send == nil {
			n.logger.Warnf("Channel %s enabled but no sender configured, skipping alert %s", ch, alert.ID)
			continue
		}
		for _, target := range targets {
			wg.Add(1)
			go func(ch models.Channel, target string) {
				defer wg.Done()
				sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
				defer cancel()
				err := send(sendCtx, target)
				if err != nil {
					n.logger.Errorf("Dispatch error via %s to %s for alert %s: %v", ch, target, alert.ID, err)
				} else {
					n.logger.Infof("Alert %s dispatched via %s to %s", alert.ID, ch, target)
				}
				record(Result{Channel: ch, Destination: target, Err: err})
			}(ch, target)
		}
	}
	wg.Wait()
	return results
}

// Callback adapts the notifier into an alert callback. Each alert is fanned
// out in its own goroutine using settings read at notification time.
func (n *Notifier) Callback(ctx context.Context, source SettingsSource) func(models.AlertEvent) {
	return func(alert models.AlertEvent) {
		go func() {
			prefs, dest, err := source.Settings(ctx)
			if err != nil {
				n.logger.Errorf("Failed to load notification settings for alert %s: %v", alert.ID, err)
				return
			}
			n.Notify(ctx, alert, prefs, dest)
		}()
	}
}

func (n *Notifier) sendFunc(ch models.Channel, alert models.AlertEvent) func(context.Context, string) error {
	switch ch {
	case models.ChannelEmail:
		if n.senders.Email == nil {
			return nil
		}
		return func(ctx context.Context, to string) error {
			return n.senders.Email.SendEmail(ctx, FormatEmail(alert, to), alert)
		}
	case models.ChannelChat:
		if n.senders.Chat == nil {
			return nil
		}
		payload := FormatChat(alert, n.monitoringURL)
		return func(ctx context.Context, dest string) error {
			return n.senders.Chat.SendChat(ctx, dest, payload, alert)
		}
	case models.ChannelPush:
		if n.senders.Push == nil {
			return nil
		}
		payload := FormatPush(alert, n.monitoringURL)
		return func(ctx context.Context, sub string) error {
			return n.senders.Push.SendPush(ctx, sub, payload, alert)
		}
	default:
		return nil
	}
}

// StaticSettings serves fixed preferences, used when no settings database is configured.
type StaticSettings struct {
	Preferences  models.NotificationPreferences
	Destinations models.Destinations
}

func (s StaticSettings) Settings(ctx context.Context) (models.NotificationPreferences, models.Destinations, error) {
	return s.Preferences, s.Destinations, nil
}
