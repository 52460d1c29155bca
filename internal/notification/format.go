package notification

import (
	"fmt"
	"strings"
	"time"

	"batch-dispatch-service/internal/models"
)

const (
	pushIcon  = "/icons/alert-192.png"
	pushBadge = "/icons/badge-72.png"
)

// FormatEmail builds the email payload for one recipient.
func FormatEmail(alert models.AlertEvent, to string) models.EmailPayload {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", alert.Message)
	fmt.Fprintf(&b, "Severity: %s\n", alert.Severity.Label())
	fmt.Fprintf(&b, "Metric: %s\n", alert.Metric)
	fmt.Fprintf(&b, "Value: %.2f\n", alert.Value)
	fmt.Fprintf(&b, "Threshold: %.2f\n", alert.Threshold)
	fmt.Fprintf(&b, "Time: %s\n", alert.Timestamp.Format(time.RFC1123))
	fmt.Fprintf(&b, "Alert ID: %s\n", alert.ID)

	return models.EmailPayload{
		To:      to,
		Subject: fmt.Sprintf("[%s] Batch Alert: %s", alert.Severity.Label(), alert.Message),
		Body:    b.String(),
	}
}

// FormatChat builds the block message for chat channels.
func FormatChat(alert models.AlertEvent, monitoringURL string) models.ChatPayload {
	icon := "⚠️"
	if alert.Severity == models.SeverityError {
		icon = "🚨"
	}
	header := fmt.Sprintf("%s %s: %s", icon, alert.Severity.Label(), alert.Message)

	return models.ChatPayload{
		Text: header,
		Blocks: []models.ChatBlock{
			{
				Type: "header",
				Text: &models.ChatText{Type: "plain_text", Text: header},
			},
			{
				Type: "section",
				Fields: []models.ChatText{
					{Type: "mrkdwn", Text: fmt.Sprintf("*Metric:*\n%s", alert.Metric)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Value:*\n%.2f", alert.Value)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Threshold:*\n%.2f", alert.Threshold)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Time:*\n%s", alert.Timestamp.Format(time.RFC1123))},
				},
			},
			{
				Type: "actions",
				Elements: []models.ChatElement{
					{
						Type:  "button",
						Text:  models.ChatText{Type: "plain_text", Text: "View Monitoring"},
						URL:   monitoringURL,
						Style: "primary",
					},
				},
			},
		},
	}
}

// FormatPush builds the push notification payload.
func FormatPush(alert models.AlertEvent, monitoringURL string) models.PushPayload {
	return models.PushPayload{
		Title: fmt.Sprintf("%s: Batch Alert", alert.Severity.Label()),
		Body:  fmt.Sprintf("%s (%s %.2f, threshold %.2f)", alert.Message, alert.Metric, alert.Value, alert.Threshold),
		Icon:  pushIcon,
		Badge: pushBadge,
		Tag:   "batch-alert-" + string(alert.Metric),
		Data: models.PushData{
			URL:   monitoringURL,
			Alert: alert,
		},
	}
}
