package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/tui/model"
	"github.com/matheus3301/vitalchat/internal/tui/ui"
)

func directory() []chat.Conversation {
	return []chat.Conversation{
		{Partner: chat.Participant{ID: "d1", Name: "Dr. Ada Lovelace"}, UnreadCount: 2,
			LastMessage: &chat.LastMessage{Text: "see you\ntomorrow", SenderID: "d1"}},
		{Partner: chat.Participant{ID: "d2", Name: "Dr. Grace Hopper"},
			LastMessage: &chat.LastMessage{Text: "thanks", SenderID: "me"}},
		{Partner: chat.Participant{ID: "d3"}},
	}
}

func TestConversationListFilterAndSelection(t *testing.T) {
	cl := NewConversationList(ui.DefaultTheme())
	cl.Update(directory(), "me")

	if got := cl.GetRowCount(); got != 4 {
		t.Fatalf("rows = %d, want header + 3", got)
	}
	if got := strings.TrimSpace(cl.GetCell(2, 2).Text); got != "You: thanks" {
		t.Errorf("preview = %q", got)
	}
	if got := strings.TrimSpace(cl.GetCell(1, 2).Text); got != "see you tomorrow" {
		t.Errorf("preview = %q, want line breaks folded", got)
	}
	if got := strings.TrimSpace(cl.GetCell(3, 1).Text); got != chat.UnknownName {
		t.Errorf("nameless partner = %q", got)
	}
	if got := strings.TrimSpace(cl.GetCell(3, 2).Text); got != "No messages yet" {
		t.Errorf("empty preview = %q", got)
	}

	cl.Select(2, 0)
	cl.SetFilter("GRACE")
	if len(cl.Visible()) != 1 || cl.ByIndex(1) != "d2" {
		t.Fatalf("filtered = %+v", cl.Visible())
	}
	if !strings.Contains(cl.GetTitle(), "(1/3)") {
		t.Errorf("title = %q", cl.GetTitle())
	}
	if cl.ByIndex(2) != "" || cl.ByIndex(0) != "" {
		t.Error("ByIndex out of range should be empty")
	}

	cl.SetFilter("")
	cl.Select(2, 0)
	reordered := directory()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	cl.Update(reordered, "me")
	if cl.Selected() != "d2" {
		t.Errorf("selection = %q, want it to follow d2", cl.Selected())
	}
}

func TestRenderTranscriptDividers(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)
	at := func(day, hour int) time.Time { return time.Date(2026, 3, day, hour, 0, 0, 0, loc) }
	st := model.ConversationState{
		Name:   "Dr. Ada",
		UserID: "me",
		State:  chat.ViewReady,
		Messages: []chat.Message{
			{ID: "1", Sender: chat.Participant{ID: "doc"}, Text: "first", SentAt: at(2, 9)},
			{ID: "2", Sender: chat.Participant{ID: "me"}, Text: "second", SentAt: at(2, 10)},
			{ID: "3", Sender: chat.Participant{ID: "doc"}, Text: "third", SentAt: at(9, 15)},
			{ID: "4", Sender: chat.Participant{ID: "me"}, Text: "fourth", SentAt: at(10, 8)},
		},
	}
	out := stripTags(renderTranscript(st, ui.DefaultTheme(), loc, now))

	if strings.Contains(out, "Mar 2") {
		t.Error("divider rendered before the first message")
	}
	for _, want := range []string{"Yesterday", "Today", "You", "Dr. Ada", "03:00 PM", "08:00 AM"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "second") > strings.Index(out, "Yesterday") {
		t.Error("divider out of place")
	}
	if n := strings.Count(out, "────"); n != 4 {
		t.Errorf("divider marks = %d, want 2 dividers", n/2)
	}
}

func TestRenderTranscriptLabelsPartnerBySenderName(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	st := model.ConversationState{
		Name:   "Dr. Ada",
		UserID: "me",
		State:  chat.ViewReady,
		Messages: []chat.Message{
			{ID: "1", Sender: chat.Participant{ID: "doc", Name: "Dr. Ada Lovelace"}, Text: "named", SentAt: at},
			{ID: "2", Sender: chat.Participant{ID: "doc"}, Text: "unnamed", SentAt: at.Add(time.Minute)},
			{ID: "3", Sender: chat.Participant{ID: "me", Name: "Pat"}, Text: "mine", SentAt: at.Add(2 * time.Minute)},
		},
	}
	out := stripTags(renderTranscript(st, ui.DefaultTheme(), time.UTC, at.Add(time.Hour)))

	for _, want := range []string{"Dr. Ada Lovelace 09:00 AM\nnamed", "Dr. Ada 09:01 AM\nunnamed", "You 09:02 AM\nmine"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTranscriptStates(t *testing.T) {
	theme := ui.DefaultTheme()
	tests := []struct {
		name string
		st   model.ConversationState
		want string
	}{
		{"loading", model.ConversationState{State: chat.ViewLoading}, "Loading conversation"},
		{"retryable", model.ConversationState{State: chat.ViewFailed, Err: "status 502", Retryable: true}, "Press r to try again"},
		{"terminal", model.ConversationState{State: chat.ViewFailed, Err: "partner_id: missing"}, "cannot be opened"},
		{"empty", model.ConversationState{State: chat.ViewReady}, "No messages yet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := renderTranscript(tt.st, theme, time.UTC, time.Now())
			if !strings.Contains(out, tt.want) {
				t.Errorf("got %q, want it to contain %q", out, tt.want)
			}
		})
	}
}

func TestMessageThreadRetryHint(t *testing.T) {
	mt := NewMessageThread(ui.DefaultTheme(), chat.NewComposer(nil), time.UTC)
	if mt.Name() != chat.PlaceholderName {
		t.Errorf("Name() = %q, want placeholder", mt.Name())
	}
	mt.Update(model.ConversationState{Name: "Chat", State: chat.ViewFailed, Retryable: true, Err: "x"})
	found := false
	for _, h := range mt.Hints() {
		if h.Key == "r" {
			found = true
		}
	}
	if !found {
		t.Error("retry hint missing on a retryable failure")
	}
}

func TestSafe(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ok\u200d👍\U0001F3FB", "ok👍"},
		{"[red]alert\x07", "[red[]alert"},
		{"line one\nline two", "line one\nline two"},
	}
	for _, tt := range tests {
		if got := safe(tt.in); got != tt.want {
			t.Errorf("safe(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// stripTags drops tview color tags such as [teal::b] and [-].
func stripTags(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
