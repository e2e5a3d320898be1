package chat

import "context"

// Directory lists the current user's conversations.
type Directory interface {
	ListConversations(ctx context.Context) ([]Conversation, error)
}

// Transport fetches history and sends messages.
type Transport interface {
	History(ctx context.Context, partnerID string) ([]Message, error)
	Send(ctx context.Context, partnerID, text string) (Message, error)
}

// ReadMarker acknowledges a conversation as read.
type ReadMarker interface {
	MarkRead(ctx context.Context, partnerID string) error
}

// Backend is everything a view needs from the portal's REST API.
type Backend interface {
	Directory
	Transport
	ReadMarker
}

// Channel is a live subscription to one conversation room.
type Channel interface {
	// Messages delivers pushed messages for the room. Closed on teardown.
	Messages() <-chan Message
	// Relay forwards a just-sent message to the room.
	Relay(msg Message) error
	// Close tears the channel down. Safe to call more than once.
	Close() error
}

// ChannelOpener starts a supervised channel for room. It must not block on
// the network; onState is called on every state change.
type ChannelOpener interface {
	Open(ctx context.Context, room string, onState func(state string)) (Channel, error)
}

// Identity tells the view who the current user is.
type Identity interface {
	UserID() string
}

// Journal records send attempts.
type Journal interface {
	BeginSend(clientMsgID, partnerID, body string) error
	MarkSent(clientMsgID, serverMsgID string) error
	MarkSendFailed(clientMsgID, errMsg string) error
}
