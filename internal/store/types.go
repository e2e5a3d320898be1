package store

import "time"

// Journal statuses.
const (
	JournalSending = "sending"
	JournalSent    = "sent"
	JournalFailed  = "failed"
)

// JournalEntry records one send attempt made through a chat view.
type JournalEntry struct {
	ID           int64
	ClientMsgID  string
	PartnerID    string
	Body         string
	Status       string // sending, sent, failed
	ServerMsgID  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Diagnostic is a persisted background failure (mark-read, channel, send).
type Diagnostic struct {
	ID         int64
	Kind       string
	PartnerID  string
	Op         string
	Error      string
	OccurredAt time.Time
}
