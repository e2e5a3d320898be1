// Package poller refreshes the unread total on a fixed interval.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/vitalchat/internal/bus"
	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/store"
	"go.uber.org/zap"
)

// Refresh is the payload of directory.refreshed.
type Refresh struct {
	Conversations int
	UnreadTotal   int
	At            time.Time
}

// Authenticator reports whether there are credentials to poll with.
type Authenticator interface {
	Authenticated() bool
}

// Poller lists conversations every interval and records the unread total.
type Poller struct {
	dir      chat.Directory
	auth     Authenticator
	db       *store.DB
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a new unread poller.
func New(dir chat.Directory, auth Authenticator, db *store.DB, b *bus.Bus, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		dir:      dir,
		auth:     auth,
		db:       db,
		bus:      b,
		logger:   logger,
		interval: interval,
	}
}

// Start polls once immediately, then on every tick.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx)
}

// Stop stops the poll loop.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.auth.Authenticated() {
		return
	}
	if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
		if errors.Is(err, chat.ErrUnauthorized) {
			p.logger.Warn("poll rejected; waiting for new credentials")
			return
		}
		p.logger.Warn("poll failed", zap.Error(err))
	}
}

// Poll lists conversations once, stores the unread total and publishes it.
func (p *Poller) Poll(ctx context.Context) (Refresh, error) {
	convs, err := p.dir.ListConversations(ctx)
	if err != nil {
		return Refresh{}, err
	}
	r := Refresh{Conversations: len(convs), UnreadTotal: chat.UnreadTotal(convs), At: time.Now()}

	if err := p.db.SetInt(store.KeyUnreadTotal, int64(r.UnreadTotal)); err != nil {
		p.logger.Error("failed to store unread total", zap.Error(err))
	}
	if err := p.db.SetTime(store.KeyLastPollAt, r.At); err != nil {
		p.logger.Error("failed to store poll time", zap.Error(err))
	}

	p.bus.Publish(bus.Event{Kind: bus.KindDirectoryRefreshed, Timestamp: r.At, Payload: r})
	return r, nil
}
