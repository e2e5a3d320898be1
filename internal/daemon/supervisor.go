package daemon

import (
	"context"

	"github.com/matheus3301/vitalchat/internal/api"
	"github.com/matheus3301/vitalchat/internal/bus"
	"github.com/matheus3301/vitalchat/internal/status"
	"github.com/matheus3301/vitalchat/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// supervisor reacts to session events: a rejected token closes every view and
// drops the daemon to AUTH_REQUIRED, and the chat service's health follows the
// daemon state.
type supervisor struct {
	bus     *bus.Bus
	machine *status.Machine
	views   *api.Views
	health  *health.Server
	logger  *zap.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

func newSupervisor(b *bus.Bus, machine *status.Machine, views *api.Views, logger *zap.Logger) *supervisor {
	return &supervisor{
		bus:     b,
		machine: machine,
		views:   views,
		health:  health.NewServer(),
		logger:  logger,
	}
}

// Start subscribes to session.* events.
func (s *supervisor) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	ch, unsub := s.bus.Subscribe("session.", 64)
	s.setChatHealth(s.machine.Current())

	go func() {
		defer close(s.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				s.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop marks every service as not serving and stops the subscriber.
func (s *supervisor) Stop() {
	s.health.Shutdown()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *supervisor) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindSessionUnauthorized:
		n := s.views.CloseAll()
		s.logger.Warn("session unauthorized", zap.Any("reason", evt.Payload), zap.Int("views_closed", n))
		if s.machine.Is(status.Ready) {
			if err := s.machine.Transition(status.AuthRequired); err != nil {
				s.logger.Debug("status transition", zap.Error(err))
			}
		}
	case bus.KindSessionStatus:
		change, ok := evt.Payload.(status.StatusChange)
		if !ok || change.Scope != "daemon" {
			return
		}
		s.logger.Info("daemon status", zap.String("from", string(change.From)), zap.String("to", string(change.To)))
		s.setChatHealth(change.To)
	}
}

func (s *supervisor) setChatHealth(state status.State) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if state == status.Ready {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(wire.ChatService_ServiceDesc.ServiceName, st)
}
