package chat

import (
	"context"
	"errors"
	"sync"
	"time"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeIdentity string

func (f fakeIdentity) UserID() string { return string(f) }

type fakeBackend struct {
	mu          sync.Mutex
	me          Participant
	history     map[string][]Message
	historyErr  error
	historyGate chan struct{} // when set, History waits on it or ctx
	sendErr     error
	sendGate    chan struct{}
	sendStarted chan struct{} // when set, Send signals it before waiting on sendGate
	markReadErr error
	markReads   []string
	seq         int
	now         time.Time
}

func newFakeBackend(me Participant) *fakeBackend {
	return &fakeBackend{me: me, history: map[string][]Message{}, now: t0}
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]Conversation, error) {
	return nil, nil
}

func (f *fakeBackend) History(ctx context.Context, partnerID string) ([]Message, error) {
	f.mu.Lock()
	gate := f.historyGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return append([]Message(nil), f.history[partnerID]...), nil
}

func (f *fakeBackend) Send(ctx context.Context, partnerID, text string) (Message, error) {
	f.mu.Lock()
	gate, started := f.sendGate, f.sendStarted
	f.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return Message{}, f.sendErr
	}
	f.seq++
	f.now = f.now.Add(time.Minute)
	msg := Message{
		ID:       "sent-" + string(rune('0'+f.seq)),
		Sender:   f.me,
		Receiver: Participant{ID: partnerID},
		Text:     text,
		SentAt:   f.now,
	}
	f.history[partnerID] = append(f.history[partnerID], msg)
	return msg, nil
}

func (f *fakeBackend) MarkRead(ctx context.Context, partnerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReads = append(f.markReads, partnerID)
	return f.markReadErr
}

func (f *fakeBackend) markReadCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.markReads...)
}

type fakeChannel struct {
	room    string
	msgs    chan Message
	once    sync.Once
	mu      sync.Mutex
	relayed []Message
	closed  bool
	onState func(string)
}

func (c *fakeChannel) Messages() <-chan Message { return c.msgs }

func (c *fakeChannel) Relay(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.relayed = append(c.relayed, msg)
	return nil
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.msgs)
		c.onState("DISCONNECTED")
	})
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeOpener struct {
	mu       sync.Mutex
	channels []*fakeChannel
	err      error
}

func (o *fakeOpener) Open(ctx context.Context, room string, onState func(string)) (Channel, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	ch := &fakeChannel{room: room, msgs: make(chan Message, 8), onState: onState}
	o.channels = append(o.channels, ch)
	onState("JOINED")
	return ch, nil
}

func (o *fakeOpener) opened() []*fakeChannel {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*fakeChannel(nil), o.channels...)
}

type fakeJournal struct {
	mu     sync.Mutex
	status map[string]string
}

func newFakeJournal() *fakeJournal { return &fakeJournal{status: map[string]string{}} }

func (j *fakeJournal) BeginSend(id, partnerID, body string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status[id] = "sending"
	return nil
}

func (j *fakeJournal) MarkSent(id, serverID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status[id] = "sent"
	return nil
}

func (j *fakeJournal) MarkSendFailed(id, msg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status[id] = "failed"
	return nil
}

func (j *fakeJournal) counts() map[string]int {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := map[string]int{}
	for _, s := range j.status {
		out[s]++
	}
	return out
}
