package wire

import (
	"testing"
	"time"

	"github.com/matheus3301/vitalchat/internal/chat"
	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatalf("codec %q not registered", CodecName)
	}
	if c.Name() != CodecName {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestViewEventCarriesPortalMessage(t *testing.T) {
	c := codec{}
	sent := time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC)
	in := &ViewEvent{
		ViewID: "v1",
		Kind:   chat.EventMessage,
		Message: &chat.Message{
			ID:       "m1",
			Sender:   chat.Participant{ID: "pat-1", Name: "Ana Costa"},
			Receiver: chat.Participant{ID: "doc-1"},
			Text:     "hello",
			SentAt:   sent,
		},
	}
	data, err := c.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out ViewEvent
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Message == nil || out.Message.ID != "m1" || out.Message.Sender.Name != "Ana Costa" {
		t.Fatalf("message = %+v", out.Message)
	}
	if !out.Message.SentAt.Equal(sent) {
		t.Errorf("SentAt = %v, want %v", out.Message.SentAt, sent)
	}
	if out.Partner != nil || out.Messages != nil {
		t.Errorf("unset fields should stay empty: %+v", out)
	}
}
