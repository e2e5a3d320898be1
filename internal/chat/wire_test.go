package chat

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParticipantForms(t *testing.T) {
	var bare, full, empty Participant
	if err := json.Unmarshal([]byte(`"doc-1"`), &bare); err != nil {
		t.Fatal(err)
	}
	if bare.ID != "doc-1" || bare.Name != "" {
		t.Errorf("bare = %+v", bare)
	}
	if err := json.Unmarshal([]byte(`{"_id":"doc-2","name":"Dr. Lee","avatar":"https://x/a.png"}`), &full); err != nil {
		t.Fatal(err)
	}
	if full.ID != "doc-2" || full.Name != "Dr. Lee" || full.AvatarURL != "https://x/a.png" {
		t.Errorf("full = %+v", full)
	}
	if err := json.Unmarshal([]byte(`null`), &empty); err != nil || empty.ID != "" {
		t.Errorf("null = %+v, %v", empty, err)
	}
}

func TestMessageDecode(t *testing.T) {
	raw := `{"_id":"m1","sender":{"_id":"doc-1","name":"Dr. Lee"},"receiver":"pat-1","message":"Hello","createdAt":"2026-03-10T09:00:00.000Z"}`
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	if m.ID != "m1" || m.Sender.Name != "Dr. Lee" || m.Receiver.ID != "pat-1" || m.Text != "Hello" {
		t.Errorf("message = %+v", m)
	}
	if !m.SentAt.Equal(t0) {
		t.Errorf("SentAt = %v, want %v", m.SentAt, t0)
	}
	if m.IsOwn("pat-1") || !m.IsOwn("doc-1") {
		t.Error("IsOwn disagrees with sender")
	}

	var ms Message
	if err := json.Unmarshal([]byte(`{"id":"m2","sender":"a","receiver":"b","text":"hi","createdAt":1773133200000}`), &ms); err != nil {
		t.Fatal(err)
	}
	if ms.ID != "m2" || ms.Text != "hi" || ms.SentAt.UnixMilli() != 1773133200000 {
		t.Errorf("alt message = %+v", ms)
	}

	if err := json.Unmarshal([]byte(`{"_id":"m3","createdAt":"yesterday"}`), &ms); err == nil {
		t.Error("bad createdAt should fail")
	}
}

func TestMessageEncodeRoundTripsThroughPortalShape(t *testing.T) {
	in := Message{ID: "m1", Sender: doctor, Receiver: me, Text: "Hello", SentAt: t0.Add(500 * time.Millisecond)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatal(err)
	}
	if generic["_id"] != "m1" || generic["message"] != "Hello" {
		t.Errorf("encoded = %s", data)
	}
	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != in.ID || out.Sender != in.Sender || !out.SentAt.Equal(in.SentAt) {
		t.Errorf("decoded = %+v, want %+v", out, in)
	}
}

func TestDecodeConversations(t *testing.T) {
	item := `{"partner":{"_id":"doc-1","name":"Dr. Lee"},"lastMessage":{"message":"ok","sender":{"_id":"pat-1"},"createdAt":"2026-03-10T09:00:00Z"},"unreadCount":3}`
	for name, body := range map[string]string{
		"array":    "[" + item + "]",
		"envelope": `{"conversations":[` + item + `]}`,
	} {
		t.Run(name, func(t *testing.T) {
			list, err := DecodeConversations([]byte(body))
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 1 {
				t.Fatalf("len = %d, want 1", len(list))
			}
			c := list[0]
			if c.Partner.ID != "doc-1" || c.UnreadCount != 3 || c.LastMessage == nil || c.LastMessage.SenderID != "pat-1" {
				t.Errorf("conversation = %+v", c)
			}
		})
	}

	list, err := DecodeConversations([]byte(`{"conversations":[{"partner":"doc-9","unreadCount":-2}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if list[0].LastMessage != nil || list[0].UnreadCount != 0 {
		t.Errorf("sparse conversation = %+v", list[0])
	}

	if list, err := DecodeConversations([]byte("  ")); err != nil || list != nil {
		t.Errorf("empty body = %v, %v", list, err)
	}
}
