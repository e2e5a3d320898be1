package chat

// Transcript is the append-only projection of one conversation. History order
// is kept as delivered, later messages go in arrival order, and a message whose
// id is already present is dropped.
type Transcript struct {
	msgs []Message
	ids  map[string]struct{}
}

// NewTranscript seeds a transcript with history.
func NewTranscript(history []Message) *Transcript {
	t := &Transcript{ids: make(map[string]struct{}, len(history))}
	for _, m := range history {
		t.Append(m)
	}
	return t
}

// Append adds m unless a message with the same id is already present.
// Messages without an id are always appended.
func (t *Transcript) Append(m Message) bool {
	if m.ID != "" {
		if _, dup := t.ids[m.ID]; dup {
			return false
		}
		t.ids[m.ID] = struct{}{}
	}
	t.msgs = append(t.msgs, m)
	return true
}

// Contains reports whether a message id is present.
func (t *Transcript) Contains(id string) bool {
	_, ok := t.ids[id]
	return ok
}

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.msgs) }

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}
