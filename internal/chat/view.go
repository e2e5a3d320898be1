package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/vitalchat/internal/bus"
	"go.uber.org/zap"
)

// ViewState is the lifecycle state of a mounted chat view.
type ViewState string

const (
	ViewLoading ViewState = "LOADING"
	ViewReady   ViewState = "READY"
	ViewFailed  ViewState = "FAILED"
	ViewClosed  ViewState = "CLOSED"
)

// View event suffixes, published under bus.ViewNamespace(id).
const (
	EventOpened       = "opened"
	EventLoaded       = "loaded"
	EventFailed       = "failed"
	EventMessage      = "message"
	EventChannelState = "channel_state"
	EventClosed       = "closed"
)

// Deps are the collaborators a View is built from.
type Deps struct {
	Backend  Backend
	Channels ChannelOpener // nil disables live delivery
	Identity Identity
	Journal  Journal // optional
	Bus      *bus.Bus
	Logger   *zap.Logger
	// Relay forwards successful sends over the channel as send_message.
	Relay bool
	// SkipMarkRead leaves the conversation unread after history loads. Used
	// by views mounted only to send.
	SkipMarkRead bool
}

// Snapshot is a point-in-time copy of a view's state.
type Snapshot struct {
	ID           string
	PartnerID    string
	Partner      Participant
	Resolved     bool
	State        ViewState
	Err          error
	Messages     []Message
	ChannelState string
}

// DisplayName is the partner's name, or the placeholder while unresolved.
func (s Snapshot) DisplayName() string {
	if !s.Resolved || s.Partner.Name == "" {
		return PlaceholderName
	}
	return s.Partner.Name
}

// View controls one mounted conversation: it loads history, resolves the
// partner, marks the conversation read, keeps a live channel open, and sends.
// All methods are safe for concurrent use.
type View struct {
	id        string
	partnerID string
	deps      Deps
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	gen          uint64
	state        ViewState
	err          error
	transcript   *Transcript
	partner      Participant
	resolved     bool
	channel      Channel
	channelState string
	sending      bool
	closed       bool
}

// NewView creates an unopened view for partnerID.
func NewView(partnerID string, deps Deps) *View {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &View{
		id:         id,
		partnerID:  strings.TrimSpace(partnerID),
		deps:       deps,
		logger:     deps.Logger.With(zap.String("view", id), zap.String("partner_id", partnerID)),
		ctx:        ctx,
		cancel:     cancel,
		state:      ViewLoading,
		transcript: NewTranscript(nil),
	}
}

// ID returns the view's unique id.
func (v *View) ID() string { return v.id }

// PartnerID returns the partner the view was opened for.
func (v *View) PartnerID() string { return v.partnerID }

// Open validates the partner id and loads the conversation. A missing partner
// id is terminal: the view fails and no channel is ever opened.
func (v *View) Open(ctx context.Context) error {
	v.publish(EventOpened, v.id)
	if v.partnerID == "" {
		err := &ValidationError{Field: "partner_id", Reason: "missing"}
		v.mu.Lock()
		v.state = ViewFailed
		v.err = err
		v.mu.Unlock()
		v.publish(EventFailed, err)
		return err
	}
	return v.load(ctx)
}

// Reload repeats the history fetch after a failure.
func (v *View) Reload(ctx context.Context) error {
	var verr *ValidationError
	v.mu.Lock()
	closed, lastErr := v.closed, v.err
	v.mu.Unlock()
	if closed {
		return ErrViewClosed
	}
	if errors.As(lastErr, &verr) {
		return lastErr
	}
	return v.load(ctx)
}

func (v *View) load(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.gen++
	gen := v.gen
	v.state = ViewLoading
	v.err = nil
	v.mu.Unlock()

	ctx, stop := v.bind(ctx)
	history, err := v.deps.Backend.History(ctx, v.partnerID)
	stop()

	v.mu.Lock()
	if v.closed || v.gen != gen {
		v.mu.Unlock()
		v.logger.Debug("dropping stale history result", zap.Uint64("gen", gen))
		return ErrViewClosed
	}
	if err != nil {
		v.state = ViewFailed
		v.err = err
		v.mu.Unlock()
		v.logger.Warn("history fetch failed", zap.Error(err))
		v.publish(EventFailed, err)
		return err
	}

	v.transcript = NewTranscript(history)
	v.resolvePartner(history)
	v.state = ViewReady
	needChannel := v.channel == nil && v.deps.Channels != nil
	snap := v.snapshotLocked()
	v.markRead()
	v.mu.Unlock()

	v.logger.Info("conversation loaded", zap.Int("messages", len(history)), zap.Bool("partner_resolved", snap.Resolved))
	v.publish(EventLoaded, snap)

	if needChannel {
		v.openChannel()
	}
	return nil
}

// resolvePartner derives the partner identity from the first message. Must hold mu.
func (v *View) resolvePartner(history []Message) {
	if len(history) == 0 {
		return
	}
	userID := ""
	if v.deps.Identity != nil {
		userID = v.deps.Identity.UserID()
	}
	v.partner = history[0].Counterpart(userID)
	v.resolved = v.partner.ID != ""
}

// markRead acknowledges the conversation in the background. Must hold mu.
func (v *View) markRead() {
	if v.deps.SkipMarkRead {
		return
	}
	v.wg.Go(func() {
		err := v.deps.Backend.MarkRead(v.ctx, v.partnerID)
		if err == nil || v.ctx.Err() != nil {
			return
		}
		v.logger.Warn("mark read failed", zap.Error(err))
		v.deps.Bus.Emit(bus.KindDiagMarkReadFailed, bus.Diagnostic{
			PartnerID: v.partnerID,
			Op:        "mark_read",
			Err:       err.Error(),
		})
	})
}

func (v *View) openChannel() {
	ch, err := v.deps.Channels.Open(v.ctx, v.partnerID, v.onChannelState)
	if err != nil {
		// Degrade to history only.
		v.logger.Warn("channel open failed", zap.Error(err))
		v.deps.Bus.Emit(bus.KindDiagChannelError, bus.Diagnostic{PartnerID: v.partnerID, Op: "open", Err: err.Error()})
		return
	}

	v.mu.Lock()
	if v.closed || v.channel != nil {
		v.mu.Unlock()
		_ = ch.Close()
		return
	}
	v.channel = ch
	v.wg.Go(func() {
		for msg := range ch.Messages() {
			v.receive(msg)
		}
	})
	v.mu.Unlock()
}

func (v *View) onChannelState(state string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.channelState = state
	v.mu.Unlock()
	v.publish(EventChannelState, state)
}

func (v *View) receive(msg Message) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	if !msg.Involves(v.partnerID) {
		v.mu.Unlock()
		v.logger.Debug("ignoring pushed message for another conversation", zap.String("msg_id", msg.ID))
		return
	}
	added := v.transcript.Append(msg)
	v.mu.Unlock()

	if added {
		v.publish(EventMessage, msg)
	}
}

// Send sends text exactly as given and appends the persisted copy. Only one
// send may be outstanding; on failure the transcript is unchanged.
func (v *View) Send(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, &ValidationError{Field: "text", Reason: "empty message"}
	}

	v.mu.Lock()
	switch {
	case v.closed:
		v.mu.Unlock()
		return Message{}, ErrViewClosed
	case v.partnerID == "":
		v.mu.Unlock()
		return Message{}, &ValidationError{Field: "partner_id", Reason: "missing"}
	case v.state != ViewReady:
		v.mu.Unlock()
		return Message{}, ErrNotReady
	case v.sending:
		v.mu.Unlock()
		return Message{}, ErrSendInFlight
	}
	v.sending = true
	v.mu.Unlock()

	clientID := uuid.NewString()
	v.journal(func(j Journal) error { return j.BeginSend(clientID, v.partnerID, text) })

	ctx, stop := v.bind(ctx)
	msg, err := v.deps.Backend.Send(ctx, v.partnerID, text)
	stop()

	v.mu.Lock()
	v.sending = false
	if err != nil {
		closed := v.closed
		v.mu.Unlock()
		v.journal(func(j Journal) error { return j.MarkSendFailed(clientID, err.Error()) })
		if !closed {
			v.logger.Warn("send failed", zap.Error(err))
			v.deps.Bus.Emit(bus.KindDiagSendFailed, bus.Diagnostic{PartnerID: v.partnerID, Op: "send", Err: err.Error()})
		}
		return Message{}, err
	}
	added := false
	if !v.closed {
		added = v.transcript.Append(msg)
	}
	ch := v.channel
	v.mu.Unlock()

	v.journal(func(j Journal) error { return j.MarkSent(clientID, msg.ID) })
	if added {
		v.publish(EventMessage, msg)
	}
	if v.deps.Relay && ch != nil {
		if err := ch.Relay(msg); err != nil {
			v.logger.Debug("relay failed", zap.Error(err))
		}
	}
	return msg, nil
}

// Close tears down the channel, cancels outstanding work and drops any late
// results. Safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.gen++
	v.state = ViewClosed
	ch := v.channel
	v.channel = nil
	v.mu.Unlock()

	v.cancel()
	if ch != nil {
		if err := ch.Close(); err != nil {
			v.logger.Debug("channel close", zap.Error(err))
		}
	}
	v.wg.Wait()
	v.logger.Info("view closed")
	v.publish(EventClosed, v.id)
}

// Done is closed once the view has been closed.
func (v *View) Done() <-chan struct{} { return v.ctx.Done() }

// Snapshot returns a copy of the view's current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() Snapshot {
	return Snapshot{
		ID:           v.id,
		PartnerID:    v.partnerID,
		Partner:      v.partner,
		Resolved:     v.resolved,
		State:        v.state,
		Err:          v.err,
		Messages:     v.transcript.Messages(),
		ChannelState: v.channelState,
	}
}

// bind derives a context that is also cancelled when the view closes.
func (v *View) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(v.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (v *View) journal(fn func(Journal) error) {
	if v.deps.Journal == nil {
		return
	}
	if err := fn(v.deps.Journal); err != nil {
		v.logger.Warn("journal write failed", zap.Error(err))
	}
}

func (v *View) publish(suffix string, payload any) {
	v.deps.Bus.Publish(bus.Event{
		Kind:      bus.ViewNamespace(v.id) + suffix,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
