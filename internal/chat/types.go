// Package chat implements the conversation directory, the transcript and the
// chat view controller that ties history, sends, read-state and live delivery
// together for one open conversation.
package chat

import "time"

// PlaceholderName is shown when a partner's identity is not known yet.
const PlaceholderName = "Chat"

// UnknownName is shown for a directory entry whose partner has no name.
const UnknownName = "Unknown"

// Participant identifies a patient or doctor.
type Participant struct {
	ID        string
	Name      string
	AvatarURL string
}

// DisplayName returns the name, or UnknownName when empty.
func (p Participant) DisplayName() string {
	if p.Name == "" {
		return UnknownName
	}
	return p.Name
}

// LastMessage is the preview carried by a conversation summary.
type LastMessage struct {
	Text     string
	SenderID string
	SentAt   time.Time
}

// Conversation is a server-derived summary, one per partner.
type Conversation struct {
	Partner     Participant
	LastMessage *LastMessage
	UnreadCount int
}

// Message is a server-persisted chat message. Messages are never mutated once
// received.
type Message struct {
	ID       string
	Sender   Participant
	Receiver Participant
	Text     string
	SentAt   time.Time
}

// IsOwn reports whether the current user sent m.
func (m Message) IsOwn(currentUserID string) bool {
	return currentUserID != "" && m.Sender.ID == currentUserID
}

// Involves reports whether participant id is the sender or the receiver.
func (m Message) Involves(id string) bool {
	return id != "" && (m.Sender.ID == id || m.Receiver.ID == id)
}

// Counterpart returns whichever side of m is not the current user.
func (m Message) Counterpart(currentUserID string) Participant {
	if m.Sender.ID == currentUserID {
		return m.Receiver
	}
	return m.Sender
}
