package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// The portal's JSON shapes. Participants arrive either as a bare id string or
// as a populated {_id, name, avatar} object, and message bodies are carried in
// "message".

type wireParticipant struct {
	MongoID   string `json:"_id,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// UnmarshalJSON accepts both the bare id and the populated object form.
func (p *Participant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Participant{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = Participant{ID: id}
		return nil
	}

	var w wireParticipant
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("participant: %w", err)
	}
	*p = Participant{ID: firstNonEmpty(w.MongoID, w.ID), Name: w.Name, AvatarURL: firstNonEmpty(w.Avatar, w.AvatarURL)}
	return nil
}

// MarshalJSON writes the populated object form.
func (p Participant) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireParticipant{MongoID: p.ID, Name: p.Name, Avatar: p.AvatarURL})
}

type wireMessage struct {
	MongoID   string          `json:"_id,omitempty"`
	ID        string          `json:"id,omitempty"`
	Sender    Participant     `json:"sender"`
	Receiver  Participant     `json:"receiver"`
	Message   string          `json:"message"`
	Text      string          `json:"text,omitempty"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
}

// UnmarshalJSON decodes a portal message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("message: %w", err)
	}
	sentAt, err := parseTime(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("message createdAt: %w", err)
	}
	*m = Message{
		ID:       firstNonEmpty(w.MongoID, w.ID),
		Sender:   w.Sender,
		Receiver: w.Receiver,
		Text:     firstNonEmpty(w.Message, w.Text),
		SentAt:   sentAt,
	}
	return nil
}

// MarshalJSON writes the portal message shape.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		MongoID:  m.ID,
		Sender:   m.Sender,
		Receiver: m.Receiver,
		Message:  m.Text,
	}
	if !m.SentAt.IsZero() {
		ts, err := json.Marshal(m.SentAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return nil, err
		}
		w.CreatedAt = ts
	}
	return json.Marshal(w)
}

type wireLastMessage struct {
	Message   string          `json:"message"`
	Sender    Participant     `json:"sender"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
}

type wireConversation struct {
	Partner     Participant      `json:"partner"`
	LastMessage *wireLastMessage `json:"lastMessage,omitempty"`
	UnreadCount int              `json:"unreadCount"`
}

// UnmarshalJSON decodes a portal conversation summary.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var w wireConversation
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("conversation: %w", err)
	}
	conv := Conversation{Partner: w.Partner, UnreadCount: max(w.UnreadCount, 0)}
	if lm := w.LastMessage; lm != nil {
		sentAt, err := parseTime(lm.CreatedAt)
		if err != nil {
			return fmt.Errorf("lastMessage createdAt: %w", err)
		}
		conv.LastMessage = &LastMessage{Text: lm.Message, SenderID: lm.Sender.ID, SentAt: sentAt}
	}
	*c = conv
	return nil
}

// MarshalJSON writes the portal conversation shape.
func (c Conversation) MarshalJSON() ([]byte, error) {
	w := wireConversation{Partner: c.Partner, UnreadCount: c.UnreadCount}
	if lm := c.LastMessage; lm != nil {
		w.LastMessage = &wireLastMessage{Message: lm.Text, Sender: Participant{ID: lm.SenderID}}
		if !lm.SentAt.IsZero() {
			ts, err := json.Marshal(lm.SentAt.UTC().Format(time.RFC3339Nano))
			if err != nil {
				return nil, err
			}
			w.LastMessage.CreatedAt = ts
		}
	}
	return json.Marshal(w)
}

// DecodeConversations accepts either a bare JSON array or {"conversations": [...]}.
func DecodeConversations(data []byte) ([]Conversation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '[' {
		var list []Conversation
		err := json.Unmarshal(data, &list)
		return list, err
	}
	var env struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env.Conversations, nil
}

// parseTime accepts RFC 3339 strings and epoch milliseconds.
func parseTime(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Push channel event names.
const (
	PushJoinConversation = "join_conversation"
	PushMessageReceived  = "message_received"
	PushSendMessage      = "send_message"
	PushError            = "error"
)

// Envelope is one push channel frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes data into a frame for event.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// RelayPayload is the data of a send_message frame.
type RelayPayload struct {
	ConversationID string  `json:"conversationId"`
	Message        Message `json:"message"`
}
