// Package channel implements the push channel: a websocket session per open
// conversation that joins the conversation room and delivers pushed messages,
// reconnecting with bounded exponential backoff.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/matheus3301/vitalchat/internal/bus"
	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/status"
	"go.uber.org/zap"
)

// ErrNotJoined is returned by Relay when the session has no joined connection.
var ErrNotJoined = errors.New("channel not joined")

// TokenSource supplies the bearer token for each dial.
type TokenSource interface {
	Token() string
}

// Policy bounds reconnect attempts.
type Policy struct {
	Initial  time.Duration
	Max      time.Duration
	Attempts int // consecutive failed attempts before giving up
}

func (p Policy) backOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		exp.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		exp.MaxInterval = p.Max
	}
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(max(p.Attempts, 0)))
}

// Options configures an Opener.
type Options struct {
	URL              string
	Policy           Policy
	HandshakeTimeout time.Duration
	Dialer           *websocket.Dialer
}

// Opener starts channel sessions. It implements chat.ChannelOpener.
type Opener struct {
	opts   Options
	tokens TokenSource
	bus    *bus.Bus
	logger *zap.Logger
}

var _ chat.ChannelOpener = (*Opener)(nil)

// NewOpener creates an Opener dialing opts.URL.
func NewOpener(opts Options, tokens TokenSource, b *bus.Bus, logger *zap.Logger) *Opener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Opener{opts: opts, tokens: tokens, bus: b, logger: logger}
}

// Open starts a supervised session for room and returns immediately.
func (o *Opener) Open(ctx context.Context, room string, onState func(state string)) (chat.Channel, error) {
	return o.Start(ctx, room, onState)
}

// Start is Open with the concrete return type.
func (o *Opener) Start(ctx context.Context, room string, onState func(state string)) (*Session, error) {
	if room == "" {
		return nil, &chat.ValidationError{Field: "room", Reason: "missing"}
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		room:    room,
		opener:  o,
		logger:  o.logger.With(zap.String("room", room)),
		machine: status.New(Disconnected, Transitions, o.bus, bus.KindChannelState, room),
		msgs:    make(chan chat.Message, 32),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	if onState != nil {
		s.machine.SetOnChange(func(c status.StatusChange) { onState(string(c.To)) })
	}
	go s.run()
	return s, nil
}

// Session is one room subscription. At most one websocket is open at a time.
type Session struct {
	room    string
	opener  *Opener
	logger  *zap.Logger
	machine *status.Machine
	msgs    chan chat.Message

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	writeMu sync.Mutex
	conn    *websocket.Conn
}

// Room returns the joined room id.
func (s *Session) Room() string { return s.room }

// State returns the current state.
func (s *Session) State() status.State { return s.machine.Current() }

// Messages delivers pushed messages for the room. Closed when the session ends.
func (s *Session) Messages() <-chan chat.Message { return s.msgs }

// Done is closed once the supervisor has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Relay emits send_message for a message the caller already persisted.
func (s *Session) Relay(msg chat.Message) error {
	return s.write(chat.PushSendMessage, chat.RelayPayload{ConversationID: s.room, Message: msg}, true)
}

// Close tears the session down and waits for the supervisor to exit.
// Nothing buffered survives. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(s.cancel)
	<-s.done
	return nil
}

func (s *Session) run() {
	defer close(s.done)
	defer close(s.msgs)
	defer func() {
		if !s.machine.Is(Disconnected) {
			s.transition(Disconnected)
		}
	}()

	bo := backoff.WithContext(s.opener.opts.Policy.backOff(), s.ctx)
	for {
		s.transition(Connecting)
		joined, err := s.connect()
		if s.ctx.Err() != nil {
			return
		}
		if joined {
			bo.Reset()
		}
		s.report(err)

		if errors.Is(err, chat.ErrUnauthorized) {
			s.logger.Warn("channel rejected credentials; not retrying")
			return
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			s.logger.Warn("channel retries exhausted; live updates off")
			return
		}
		s.transition(Backoff)
		s.logger.Debug("channel backing off", zap.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connect runs one connection: dial, join, then read until it drops.
// joined reports whether the join went through.
func (s *Session) connect() (joined bool, err error) {
	token := s.opener.tokens.Token()
	if token == "" {
		return false, &chat.ChannelError{Op: "dial", Err: chat.ErrUnauthorized}
	}

	dialCtx, cancel := context.WithTimeout(s.ctx, s.opener.opts.HandshakeTimeout)
	defer cancel()
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := s.opener.opts.Dialer.DialContext(dialCtx, s.opener.opts.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			err = fmt.Errorf("%w: %v", chat.ErrUnauthorized, err)
		}
		return false, &chat.ChannelError{Op: "dial", Err: err}
	}

	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()
	stop := context.AfterFunc(s.ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		s.writeMu.Lock()
		s.conn = nil
		s.writeMu.Unlock()
		_ = conn.Close()
	}()

	if err := s.write(chat.PushJoinConversation, s.room, false); err != nil {
		return false, &chat.ChannelError{Op: "join", Err: err}
	}
	s.transition(Joined)
	s.logger.Info("channel joined")

	for {
		var env chat.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return true, &chat.ChannelError{Op: "read", Err: err}
		}
		s.handle(env)
	}
}

func (s *Session) handle(env chat.Envelope) {
	switch env.Event {
	case chat.PushMessageReceived:
		var msg chat.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			s.logger.Warn("undecodable pushed message", zap.Error(err))
			return
		}
		if !msg.Involves(s.room) {
			s.logger.Debug("ignoring message for another room", zap.String("msg_id", msg.ID))
			return
		}
		select {
		case s.msgs <- msg:
		case <-s.ctx.Done():
		}
	case chat.PushError:
		s.logger.Debug("channel error event", zap.ByteString("data", env.Data))
	}
}

func (s *Session) write(event string, data any, requireJoined bool) error {
	env, err := chat.NewEnvelope(event, data)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil || (requireJoined && !s.machine.Is(Joined)) {
		return ErrNotJoined
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.opener.opts.HandshakeTimeout))
	return s.conn.WriteJSON(env)
}

func (s *Session) transition(to status.State) {
	if err := s.machine.Transition(to); err != nil {
		s.logger.Error("channel state", zap.Error(err))
	}
}

func (s *Session) report(err error) {
	if err == nil {
		return
	}
	var cerr *chat.ChannelError
	op := "connect"
	if errors.As(err, &cerr) {
		op = cerr.Op
	}
	s.logger.Warn("channel connection ended", zap.String("op", op), zap.Error(err))
	s.opener.bus.Emit(bus.KindDiagChannelError, bus.Diagnostic{PartnerID: s.room, Op: op, Err: err.Error()})
}
