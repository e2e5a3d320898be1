package wire

import (
	"time"

	"github.com/matheus3301/vitalchat/internal/chat"
)

// SessionService messages.

type GetSessionStatusRequest struct{}

type GetSessionStatusResponse struct {
	Session       string    `json:"session"`
	Status        string    `json:"status"`
	UserID        string    `json:"user_id,omitempty"`
	UptimeMs      int64     `json:"uptime_ms"`
	OpenViews     int       `json:"open_views"`
	UnreadTotal   int       `json:"unread_total"`
	LastPollAt    time.Time `json:"last_poll_at"`
	DroppedEvents uint64    `json:"dropped_events"`
}

type SetCredentialsRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
}

type SetCredentialsResponse struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type ClearCredentialsRequest struct{}

type ClearCredentialsResponse struct {
	Status string `json:"status"`
}

// WatchDiagnosticsRequest filters by kind prefix ("diag.send_failed"); empty streams all.
type WatchDiagnosticsRequest struct {
	Kind string `json:"kind,omitempty"`
}

type Diagnostic struct {
	ID         int64     `json:"id,omitempty"`
	Kind       string    `json:"kind"`
	PartnerID  string    `json:"partner_id,omitempty"`
	Op         string    `json:"op"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ListDiagnosticsRequest struct {
	Kind  string `json:"kind,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type ListDiagnosticsResponse struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type JournalEntry struct {
	ClientMsgID string    `json:"client_msg_id"`
	PartnerID   string    `json:"partner_id"`
	Body        string    `json:"body"`
	Status      string    `json:"status"`
	ServerMsgID string    `json:"server_msg_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListJournalRequest struct {
	PartnerID string `json:"partner_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type ListJournalResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// ChatService messages.

type ListConversationsRequest struct {
	Query string `json:"query,omitempty"`
}

type ListConversationsResponse struct {
	Conversations []chat.Conversation `json:"conversations"`
	UnreadTotal   int                 `json:"unread_total"`
	UserID        string              `json:"user_id"`
}

type GetHistoryRequest struct {
	PartnerID string `json:"partner_id"`
}

type GetHistoryResponse struct {
	Messages []chat.Message `json:"messages"`
}

type MarkReadRequest struct {
	PartnerID string `json:"partner_id"`
}

type MarkReadResponse struct{}

type OpenConversationRequest struct {
	PartnerID string `json:"partner_id"`
	// SkipMarkRead mounts the view without acknowledging the conversation.
	SkipMarkRead bool `json:"skip_mark_read,omitempty"`
}

// ViewEvent is one update from a mounted conversation. Kind is one of
// chat.EventOpened, EventLoaded, EventFailed, EventMessage,
// EventChannelState or EventClosed; the other fields are set per kind.
type ViewEvent struct {
	ViewID       string            `json:"view_id"`
	Kind         string            `json:"kind"`
	At           time.Time         `json:"at"`
	UserID       string            `json:"user_id,omitempty"`
	Partner      *chat.Participant `json:"partner,omitempty"`
	PartnerName  string            `json:"partner_name,omitempty"`
	Messages     []chat.Message    `json:"messages,omitempty"`
	Message      *chat.Message     `json:"message,omitempty"`
	ChannelState string            `json:"channel_state,omitempty"`
	Error        string            `json:"error,omitempty"`
	Retryable    bool              `json:"retryable,omitempty"`
}

type SendMessageRequest struct {
	ViewID string `json:"view_id"`
	Text   string `json:"text"`
}

type SendMessageResponse struct {
	Message chat.Message `json:"message"`
}

type ReloadHistoryRequest struct {
	ViewID string `json:"view_id"`
}

type ReloadHistoryResponse struct{}

type CloseConversationRequest struct {
	ViewID string `json:"view_id"`
}

type CloseConversationResponse struct{}
