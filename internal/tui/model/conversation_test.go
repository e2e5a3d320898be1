package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeChat struct {
	wire.ChatServiceClient
	sendErr  error
	sent     []*wire.SendMessageRequest
	reloaded []string
}

func (f *fakeChat) SendMessage(_ context.Context, in *wire.SendMessageRequest, _ ...grpc.CallOption) (*wire.SendMessageResponse, error) {
	f.sent = append(f.sent, in)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &wire.SendMessageResponse{Message: chat.Message{
		ID:       "m-sent",
		Sender:   chat.Participant{ID: "me"},
		Receiver: chat.Participant{ID: "doc"},
		Text:     in.Text,
		SentAt:   time.Now(),
	}}, nil
}

func (f *fakeChat) ReloadHistory(_ context.Context, in *wire.ReloadHistoryRequest, _ ...grpc.CallOption) (*wire.ReloadHistoryResponse, error) {
	f.reloaded = append(f.reloaded, in.ViewID)
	return &wire.ReloadHistoryResponse{}, nil
}

func msg(id, from, to, text string) chat.Message {
	return chat.Message{ID: id, Sender: chat.Participant{ID: from}, Receiver: chat.Participant{ID: to}, Text: text}
}

func loaded(c *Conversation) {
	c.Apply(&wire.ViewEvent{ViewID: "v1", Kind: chat.EventOpened})
	c.Apply(&wire.ViewEvent{
		ViewID:      "v1",
		Kind:        chat.EventLoaded,
		UserID:      "me",
		Partner:     &chat.Participant{ID: "doc", Name: "Dr. Ada"},
		PartnerName: "Dr. Ada",
		Messages:    []chat.Message{msg("m1", "doc", "me", "hello")},
	})
}

func TestApplyLifecycle(t *testing.T) {
	c := NewConversation("doc", &fakeChat{})
	if st := c.State(); st.State != chat.ViewLoading || st.Name != chat.PlaceholderName {
		t.Fatalf("initial state = %+v", st)
	}

	loaded(c)
	st := c.State()
	if st.ViewID != "v1" || st.State != chat.ViewReady || st.Name != "Dr. Ada" || st.UserID != "me" {
		t.Fatalf("after loaded = %+v", st)
	}
	if len(st.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(st.Messages))
	}

	c.Apply(&wire.ViewEvent{Kind: chat.EventMessage, Message: &chat.Message{ID: "m2", Text: "again"}})
	c.Apply(&wire.ViewEvent{Kind: chat.EventMessage, Message: &chat.Message{ID: "m2", Text: "again"}})
	c.Apply(&wire.ViewEvent{Kind: chat.EventChannelState, ChannelState: "JOINED"})
	st = c.State()
	if len(st.Messages) != 2 {
		t.Errorf("messages = %d, want 2 (duplicate dropped)", len(st.Messages))
	}
	if st.ChannelState != "JOINED" {
		t.Errorf("channel state = %q", st.ChannelState)
	}

	c.Apply(&wire.ViewEvent{Kind: chat.EventClosed})
	if c.State().State != chat.ViewClosed {
		t.Errorf("state = %s, want CLOSED", c.State().State)
	}
}

func TestApplyFailedKeepsPlaceholder(t *testing.T) {
	c := NewConversation("doc", &fakeChat{})
	c.Apply(&wire.ViewEvent{ViewID: "v1", Kind: chat.EventFailed, Error: "status 502", Retryable: true})
	st := c.State()
	if st.State != chat.ViewFailed || !st.Retryable || st.Err != "status 502" {
		t.Errorf("state = %+v", st)
	}
	if st.Name != chat.PlaceholderName {
		t.Errorf("name = %q, want placeholder", st.Name)
	}
}

func TestSendBeforeLoadIsRejected(t *testing.T) {
	rpc := &fakeChat{}
	c := NewConversation("doc", rpc)
	if _, err := c.Send(context.Background(), "hi"); !errors.Is(err, chat.ErrNotReady) {
		t.Errorf("Send() error = %v, want ErrNotReady", err)
	}
	if len(rpc.sent) != 0 {
		t.Errorf("rpc called %d times before load", len(rpc.sent))
	}
}

func TestComposerSendAppendsOnceAndClearsDraft(t *testing.T) {
	rpc := &fakeChat{}
	c := NewConversation("doc", rpc)
	loaded(c)

	var changes int
	c.onChange = func() { changes++ }

	comp := c.Composer()
	comp.SetDraft("  how are you?  ")
	sent, err := comp.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if rpc.sent[0].ViewID != "v1" || rpc.sent[0].Text != "  how are you?  " {
		t.Errorf("request = %+v, want untrimmed text on view v1", rpc.sent[0])
	}
	if comp.Draft() != "" {
		t.Errorf("draft = %q, want cleared", comp.Draft())
	}

	// The echo from the channel carries the same id.
	c.Apply(&wire.ViewEvent{Kind: chat.EventMessage, Message: &sent})
	if n := len(c.State().Messages); n != 2 {
		t.Errorf("messages = %d, want 2", n)
	}
	if changes == 0 {
		t.Error("onChange not called after send")
	}
}

func TestComposerKeepsDraftOnFailure(t *testing.T) {
	rpc := &fakeChat{sendErr: status.Error(codes.Unavailable, "portal down")}
	c := NewConversation("doc", rpc)
	loaded(c)

	comp := c.Composer()
	comp.SetDraft("retry me")
	if _, err := comp.Submit(context.Background()); err == nil {
		t.Fatal("Submit() expected error")
	}
	if comp.Draft() != "retry me" {
		t.Errorf("draft = %q, want kept", comp.Draft())
	}
	if comp.Err() == nil {
		t.Error("inline error not set")
	}
	if n := len(c.State().Messages); n != 1 {
		t.Errorf("messages = %d, want transcript unchanged", n)
	}
}

func TestReloadMarksLoading(t *testing.T) {
	rpc := &fakeChat{}
	c := NewConversation("doc", rpc)
	c.Apply(&wire.ViewEvent{ViewID: "v1", Kind: chat.EventFailed, Error: "boom", Retryable: true})

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if len(rpc.reloaded) != 1 || rpc.reloaded[0] != "v1" {
		t.Errorf("reloaded = %v", rpc.reloaded)
	}
	if st := c.State(); st.State != chat.ViewLoading || st.Err != "" {
		t.Errorf("state = %+v, want LOADING with error cleared", st)
	}
}
