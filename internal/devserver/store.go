package devserver

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/vitalchat/internal/chat"
)

// User is a seeded portal account.
type User struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

func (u User) participant() chat.Participant {
	return chat.Participant{ID: u.ID, Name: u.Name, AvatarURL: u.Avatar}
}

type record struct {
	msg  chat.Message
	read bool
}

// memStore keeps every message in insertion order.
type memStore struct {
	mu    sync.RWMutex
	users map[string]User
	msgs  []*record
	byID  map[string]*record
	now   func() time.Time
}

func newMemStore(users []User, now func() time.Time) *memStore {
	s := &memStore{users: make(map[string]User, len(users)), byID: make(map[string]*record), now: now}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memStore) user(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *memStore) append(senderID, receiverID, text string) (chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok1 := s.users[senderID]
	receiver, ok2 := s.users[receiverID]
	if !ok1 || !ok2 {
		return chat.Message{}, false
	}
	at := s.now()
	if n := len(s.msgs); n > 0 && !at.After(s.msgs[n-1].msg.SentAt) {
		// Keep server timestamps strictly increasing.
		at = s.msgs[n-1].msg.SentAt.Add(time.Millisecond)
	}
	r := &record{msg: chat.Message{
		ID:       uuid.NewString(),
		Sender:   sender.participant(),
		Receiver: receiver.participant(),
		Text:     text,
		SentAt:   at,
	}}
	s.msgs = append(s.msgs, r)
	s.byID[r.msg.ID] = r
	return r.msg, true
}

func (s *memStore) message(id string) (chat.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return chat.Message{}, false
	}
	return r.msg, true
}

func (s *memStore) history(userID, partnerID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []chat.Message{}
	for _, r := range s.msgs {
		if between(r.msg, userID, partnerID) {
			out = append(out, r.msg)
		}
	}
	return out
}

func (s *memStore) markRead(userID, partnerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.msgs {
		if !r.read && r.msg.Sender.ID == partnerID && r.msg.Receiver.ID == userID {
			r.read = true
			n++
		}
	}
	return n
}

// conversations summarizes userID's conversations, most recent activity first.
func (s *memStore) conversations(userID string) []chat.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		conv chat.Conversation
		last time.Time
	}
	byPartner := map[string]*acc{}
	for _, r := range s.msgs {
		m := r.msg
		if !m.Involves(userID) {
			continue
		}
		partner := m.Counterpart(userID)
		a := byPartner[partner.ID]
		if a == nil {
			a = &acc{conv: chat.Conversation{Partner: s.users[partner.ID].participant()}}
			byPartner[partner.ID] = a
		}
		a.conv.LastMessage = &chat.LastMessage{Text: m.Text, SenderID: m.Sender.ID, SentAt: m.SentAt}
		a.last = m.SentAt
		if !r.read && m.Receiver.ID == userID {
			a.conv.UnreadCount++
		}
	}

	list := make([]*acc, 0, len(byPartner))
	for _, a := range byPartner {
		list = append(list, a)
	}
	slices.SortFunc(list, func(a, b *acc) int { return b.last.Compare(a.last) })

	out := make([]chat.Conversation, len(list))
	for i, a := range list {
		out[i] = a.conv
	}
	return out
}

func between(m chat.Message, a, b string) bool {
	return (m.Sender.ID == a && m.Receiver.ID == b) || (m.Sender.ID == b && m.Receiver.ID == a)
}
