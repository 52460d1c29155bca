package models

// EmailPayload is the formatted alert for the email channel.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ChatText is a text object inside a chat block.
type ChatText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatElement is an interactive element, currently only link buttons.
type ChatElement struct {
	Type  string   `json:"type"`
	Text  ChatText `json:"text"`
	URL   string   `json:"url,omitempty"`
	Style string   `json:"style,omitempty"`
}

// ChatBlock is one block of a structured chat message.
type ChatBlock struct {
	Type     string        `json:"type"`
	Text     *ChatText     `json:"text,omitempty"`
	Fields   []ChatText    `json:"fields,omitempty"`
	Elements []ChatElement `json:"elements,omitempty"`
}

// ChatPayload is the structured block message sent to chat webhooks.
type ChatPayload struct {
	Text   string      `json:"text"`
	Blocks []ChatBlock `json:"blocks"`
}

// PushData is the click-through data attached to a push notification.
type PushData struct {
	URL   string     `json:"url"`
	Alert AlertEvent `json:"alert"`
}

// PushPayload is the push notification body.
type PushPayload struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Icon  string   `json:"icon"`
	Badge string   `json:"badge"`
	Tag   string   `json:"tag"`
	Data  PushData `json:"data"`
}
