// Package diag persists background failures published on the bus so they can
// be listed and asserted on after the fact.
package diag

import (
	"context"
	"time"

	"github.com/matheus3301/vitalchat/internal/bus"
	"github.com/matheus3301/vitalchat/internal/store"
	"go.uber.org/zap"
)

// Retention is how long diagnostics are kept.
const Retention = 7 * 24 * time.Hour

// Recorder subscribes to "diag." events and writes them to the store.
type Recorder struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecorder creates a new diagnostics recorder.
func NewRecorder(db *store.DB, b *bus.Bus, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:     db,
		bus:    b,
		logger: logger,
	}
}

// Start prunes expired rows and begins recording.
func (r *Recorder) Start(ctx context.Context) {
	if n, err := r.db.PruneDiagnostics(time.Now().Add(-Retention)); err != nil {
		r.logger.Warn("failed to prune diagnostics", zap.Error(err))
	} else if n > 0 {
		r.logger.Info("pruned diagnostics", zap.Int64("rows", n))
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	ch, unsub := r.bus.Subscribe("diag.", 256)

	go func() {
		defer close(r.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				r.record(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops recording and waits for the subscriber to exit.
func (r *Recorder) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (r *Recorder) record(evt bus.Event) {
	d, ok := evt.Payload.(bus.Diagnostic)
	if !ok {
		r.logger.Warn("diagnostic with unexpected payload", zap.String("kind", evt.Kind))
		return
	}
	row := &store.Diagnostic{
		Kind:       evt.Kind,
		PartnerID:  d.PartnerID,
		Op:         d.Op,
		Error:      d.Err,
		OccurredAt: evt.Timestamp,
	}
	if err := r.db.RecordDiagnostic(row); err != nil {
		r.logger.Error("failed to record diagnostic", zap.Error(err), zap.String("kind", evt.Kind))
	}
}
