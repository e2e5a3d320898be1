package chat

import (
	"context"
	"strings"
	"sync"
)

// Sender is anything a composer can submit to, usually a View.
type Sender interface {
	Send(ctx context.Context, text string) (Message, error)
}

// Composer holds the draft for a chat view. The draft is only cleared after
// a confirmed send; on failure it stays and the error is kept for display.
type Composer struct {
	mu     sync.Mutex
	sender Sender
	draft  string
	err    error
	busy   bool
}

// NewComposer creates a composer submitting to s.
func NewComposer(s Sender) *Composer {
	return &Composer{sender: s}
}

// SetDraft replaces the draft and clears any inline error.
func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
	c.err = nil
}

// Draft returns the current draft.
func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Err returns the inline error from the last failed submit.
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// CanSubmit reports whether the draft is sendable and no send is outstanding.
func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.busy && strings.TrimSpace(c.draft) != ""
}

// Submit sends the draft exactly as typed.
func (c *Composer) Submit(ctx context.Context) (Message, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Message{}, ErrSendInFlight
	}
	text := c.draft
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return Message{}, &ValidationError{Field: "text", Reason: "empty message"}
	}
	c.busy = true
	c.mu.Unlock()

	msg, err := c.sender.Send(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		c.err = err
		return Message{}, err
	}
	// Only clear what was sent; the user may have kept typing.
	if c.draft == text {
		c.draft = ""
	}
	c.err = nil
	return msg, nil
}
