package models

import "time"

// OutboundMessage is one rendered SMS ready for the dispatcher.
type OutboundMessage struct {
	Recipient   string   `json:"recipient"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments,omitempty"`
	IsPrivate   bool     `json:"is_private,omitempty"`
	Author      string   `json:"author,omitempty"`
}

// AuthContext carries the caller's provider credentials through a dispatch.
type AuthContext struct {
	UserID string
	Token  string
}

// BatchStatus is the lifecycle state of a batch record.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
)

func (s BatchStatus) String() string { return string(s) }

// Outcome is the result of a single delivery attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// DeliveryOutcome is appended once per attempted message.
type DeliveryOutcome struct {
	Recipient    string    `json:"recipient"`
	Outcome      Outcome   `json:"outcome"`
	MessageID    string    `json:"message_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// BatchStatusRecord tracks progress of one batch.
// Completed always equals Successful + Failed.
type BatchStatusRecord struct {
	BatchID     string            `json:"batch_id"`
	Total       int               `json:"total"`
	Completed   int               `json:"completed"`
	Successful  int               `json:"successful"`
	Failed      int               `json:"failed"`
	Status      BatchStatus       `json:"status"`
	Details     []DeliveryOutcome `json:"details"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe to hand to callers.
func (r BatchStatusRecord) Clone() BatchStatusRecord {
	out := r
	out.Details = make([]DeliveryOutcome, len(r.Details))
	copy(out.Details, r.Details)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
