package model

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ConversationState is a render-ready copy of a mounted conversation.
type ConversationState struct {
	ViewID       string
	PartnerID    string
	UserID       string
	Partner      chat.Participant
	Name         string
	State        chat.ViewState
	Messages     []chat.Message
	ChannelState string
	Err          string
	Retryable    bool
}

// Conversation mirrors one daemon-side chat view from its event stream. The
// stream lives as long as the conversation is on screen.
type Conversation struct {
	mu sync.RWMutex

	rpc          wire.ChatServiceClient
	partnerID    string
	viewID       string
	userID       string
	state        chat.ViewState
	partner      chat.Participant
	name         string
	transcript   *chat.Transcript
	channelState string
	err          string
	retryable    bool

	composer *chat.Composer
	cancel   context.CancelFunc
	onChange func()
}

var _ chat.Sender = (*Conversation)(nil)

// NewConversation creates an unmounted conversation for partnerID. Events are
// fed to it with Apply.
func NewConversation(partnerID string, rpc wire.ChatServiceClient) *Conversation {
	c := &Conversation{
		rpc:        rpc,
		partnerID:  partnerID,
		state:      chat.ViewLoading,
		name:       chat.PlaceholderName,
		transcript: chat.NewTranscript(nil),
	}
	c.composer = chat.NewComposer(c)
	return c
}

// Composer returns the draft holder bound to this conversation.
func (c *Conversation) Composer() *chat.Composer { return c.composer }

// PartnerID returns the partner the conversation was opened for.
func (c *Conversation) PartnerID() string { return c.partnerID }

// Apply folds one view event into the local state.
func (c *Conversation) Apply(evt *wire.ViewEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if evt.ViewID != "" {
		c.viewID = evt.ViewID
	}
	switch evt.Kind {
	case chat.EventOpened:
		c.state = chat.ViewLoading
	case chat.EventLoaded:
		c.state = chat.ViewReady
		c.err = ""
		c.retryable = false
		c.transcript = chat.NewTranscript(evt.Messages)
		if evt.Partner != nil {
			c.partner = *evt.Partner
		}
		if evt.PartnerName != "" {
			c.name = evt.PartnerName
		}
		if evt.UserID != "" {
			c.userID = evt.UserID
		}
		if evt.ChannelState != "" {
			c.channelState = evt.ChannelState
		}
	case chat.EventFailed:
		c.state = chat.ViewFailed
		c.err = evt.Error
		c.retryable = evt.Retryable
	case chat.EventMessage:
		if evt.Message != nil {
			c.transcript.Append(*evt.Message)
		}
	case chat.EventChannelState:
		c.channelState = evt.ChannelState
	case chat.EventClosed:
		c.state = chat.ViewClosed
	}
}

// State returns a copy of the current state.
func (c *Conversation) State() ConversationState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ConversationState{
		ViewID:       c.viewID,
		PartnerID:    c.partnerID,
		UserID:       c.userID,
		Partner:      c.partner,
		Name:         c.name,
		State:        c.state,
		Messages:     c.transcript.Messages(),
		ChannelState: c.channelState,
		Err:          c.err,
		Retryable:    c.retryable,
	}
}

func (c *Conversation) pump(stream grpc.ServerStreamingClient[wire.ViewEvent]) {
	for {
		evt, err := stream.Recv()
		if err != nil {
			c.mu.Lock()
			if c.state != chat.ViewClosed && !errors.Is(err, io.EOF) && status.Code(err) != codes.Canceled {
				c.state = chat.ViewFailed
				c.err = status.Convert(err).Message()
				c.retryable = false
			} else {
				c.state = chat.ViewClosed
			}
			c.mu.Unlock()
			c.notify()
			return
		}
		c.Apply(evt)
		c.notify()
	}
}

func (c *Conversation) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Send submits text through the daemon's view. The returned message is
// appended right away; the echo on the stream is deduped by id.
func (c *Conversation) Send(ctx context.Context, text string) (chat.Message, error) {
	c.mu.RLock()
	viewID, st := c.viewID, c.state
	c.mu.RUnlock()
	if viewID == "" || st != chat.ViewReady {
		return chat.Message{}, chat.ErrNotReady
	}
	resp, err := c.rpc.SendMessage(ctx, &wire.SendMessageRequest{ViewID: viewID, Text: text})
	if err != nil {
		return chat.Message{}, err
	}
	c.mu.Lock()
	c.transcript.Append(resp.Message)
	c.mu.Unlock()
	c.notify()
	return resp.Message, nil
}

// Reload retries the history fetch of a failed conversation.
func (c *Conversation) Reload(ctx context.Context) error {
	c.mu.Lock()
	viewID := c.viewID
	if viewID == "" {
		c.mu.Unlock()
		return chat.ErrNotReady
	}
	c.state = chat.ViewLoading
	c.err = ""
	c.mu.Unlock()
	c.notify()

	_, err := c.rpc.ReloadHistory(ctx, &wire.ReloadHistoryRequest{ViewID: viewID})
	if err != nil {
		c.mu.Lock()
		if c.state == chat.ViewLoading {
			c.state = chat.ViewFailed
			c.err = status.Convert(err).Message()
			c.retryable = status.Code(err) == codes.Unavailable
		}
		c.mu.Unlock()
		c.notify()
	}
	return err
}

// Close unmounts the conversation. Ending the stream closes the daemon's view.
func (c *Conversation) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}
