package models

import "time"

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
	ChannelPush  Channel = "push"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelChat, ChannelPush:
		return true
	default:
		return false
	}
}

// NotificationPreferences selects which channels receive alerts.
type NotificationPreferences struct {
	Email       bool               `json:"email"`
	ChatChannel bool               `json:"chat_channel"`
	Push        bool               `json:"push"`
	Thresholds  map[Metric]float64 `json:"thresholds,omitempty"`
}

// Enabled reports whether ch is switched on.
func (p NotificationPreferences) Enabled(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return p.Email
	case ChannelChat:
		return p.ChatChannel
	case ChannelPush:
		return p.Push
	default:
		return false
	}
}

// Destinations lists where each channel delivers.
type Destinations struct {
	Emails            []string `json:"emails,omitempty"`
	Chats             []string `json:"chats,omitempty"`
	PushSubscriptions []string `json:"push_subscriptions,omitempty"`
}

// For returns the destinations configured for ch.
func (d Destinations) For(ch Channel) []string {
	switch ch {
	case ChannelEmail:
		return d.Emails
	case ChannelChat:
		return d.Chats
	case ChannelPush:
		return d.PushSubscriptions
	default:
		return nil
	}
}

// ContactPoint is a stored destination for one channel.
type ContactPoint struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Channel   Channel   `json:"channel"`
	Target    string    `json:"target"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
