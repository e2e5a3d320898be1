package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/matheus3301/vitalchat/internal/bus"
	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// ChatService implements wire.ChatServiceServer. Directory calls pass through
// to the backend; OpenConversation mounts a chat.View per stream.
type ChatService struct {
	deps   chat.Deps
	views  *Views
	bus    *bus.Bus
	logger *zap.Logger
}

var _ wire.ChatServiceServer = (*ChatService)(nil)

// NewChatService creates a chat service whose views are built from deps.
func NewChatService(deps chat.Deps, views *Views) *ChatService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ChatService{deps: deps, views: views, bus: deps.Bus, logger: deps.Logger}
}

func (s *ChatService) userID() string {
	if s.deps.Identity == nil {
		return ""
	}
	return s.deps.Identity.UserID()
}

func (s *ChatService) ListConversations(ctx context.Context, req *wire.ListConversationsRequest) (*wire.ListConversationsResponse, error) {
	convs, err := s.deps.Backend.ListConversations(ctx)
	if err != nil {
		return nil, toStatus("list conversations", err)
	}
	return &wire.ListConversationsResponse{
		Conversations: chat.FilterConversations(convs, req.Query),
		UnreadTotal:   chat.UnreadTotal(convs),
		UserID:        s.userID(),
	}, nil
}

func (s *ChatService) GetHistory(ctx context.Context, req *wire.GetHistoryRequest) (*wire.GetHistoryResponse, error) {
	msgs, err := s.deps.Backend.History(ctx, strings.TrimSpace(req.PartnerID))
	if err != nil {
		return nil, toStatus("get history", err)
	}
	return &wire.GetHistoryResponse{Messages: msgs}, nil
}

func (s *ChatService) MarkRead(ctx context.Context, req *wire.MarkReadRequest) (*wire.MarkReadResponse, error) {
	partnerID := strings.TrimSpace(req.PartnerID)
	if partnerID == "" {
		return nil, toStatus("mark read", &chat.ValidationError{Field: "partner_id", Reason: "missing"})
	}
	if err := s.deps.Backend.MarkRead(ctx, partnerID); err != nil {
		return nil, toStatus("mark read", err)
	}
	return &wire.MarkReadResponse{}, nil
}

func (s *ChatService) OpenConversation(req *wire.OpenConversationRequest, stream grpc.ServerStreamingServer[wire.ViewEvent]) error {
	ctx := stream.Context()
	deps := s.deps
	deps.SkipMarkRead = req.SkipMarkRead
	v := chat.NewView(req.PartnerID, deps)
	prefix := bus.ViewNamespace(v.ID())
	events, missed, unsub := s.bus.Watch(prefix, 256)
	defer unsub()

	s.views.add(v)
	defer func() {
		v.Close()
		s.views.remove(v.ID())
	}()

	go func() {
		if err := v.Open(ctx); err != nil && !errors.Is(err, chat.ErrViewClosed) {
			s.logger.Debug("open conversation", zap.String("view", v.ID()), zap.Error(err))
		}
	}()

	for {
		select {
		case evt := <-events:
			out := s.viewEvent(v.ID(), strings.TrimPrefix(evt.Kind, prefix), evt)
			if err := stream.Send(out); err != nil {
				return err
			}
			if out.Kind == chat.EventClosed {
				return nil
			}
		case <-missed:
			// The client fell behind and lost events; resend the whole view.
			s.logger.Warn("view stream dropped events, resyncing", zap.String("view", v.ID()))
			out := s.resync(v)
			if out == nil {
				continue
			}
			if err := stream.Send(out); err != nil {
				return err
			}
			if out.Kind == chat.EventClosed {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// resync converts the view's current state into the event a client would have
// seen last. A loading view returns nil; its loaded or failed event is still
// to come.
func (s *ChatService) resync(v *chat.View) *wire.ViewEvent {
	snap := v.Snapshot()
	evt := bus.Event{Timestamp: time.Now()}
	var kind string
	switch snap.State {
	case chat.ViewReady:
		kind, evt.Payload = chat.EventLoaded, snap
	case chat.ViewFailed:
		kind, evt.Payload = chat.EventFailed, snap.Err
	case chat.ViewClosed:
		kind = chat.EventClosed
	default:
		return nil
	}
	return s.viewEvent(v.ID(), kind, evt)
}

func (s *ChatService) viewEvent(viewID, kind string, evt bus.Event) *wire.ViewEvent {
	out := &wire.ViewEvent{ViewID: viewID, Kind: kind, At: evt.Timestamp}
	switch p := evt.Payload.(type) {
	case chat.Snapshot:
		partner := p.Partner
		out.Partner = &partner
		out.PartnerName = p.DisplayName()
		out.Messages = p.Messages
		out.ChannelState = p.ChannelState
		out.UserID = s.userID()
	case chat.Message:
		out.Message = &p
	case error:
		var verr *chat.ValidationError
		out.Error = p.Error()
		out.Retryable = !errors.As(p, &verr)
	case string:
		if kind == chat.EventChannelState {
			out.ChannelState = p
		}
	}
	return out
}

func (s *ChatService) SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.SendMessageResponse, error) {
	v, err := s.views.get(req.ViewID)
	if err != nil {
		return nil, err
	}
	msg, err := v.Send(ctx, req.Text)
	if err != nil {
		return nil, toStatus("send message", err)
	}
	return &wire.SendMessageResponse{Message: msg}, nil
}

func (s *ChatService) ReloadHistory(ctx context.Context, req *wire.ReloadHistoryRequest) (*wire.ReloadHistoryResponse, error) {
	v, err := s.views.get(req.ViewID)
	if err != nil {
		return nil, err
	}
	if err := v.Reload(ctx); err != nil {
		return nil, toStatus("reload history", err)
	}
	return &wire.ReloadHistoryResponse{}, nil
}

func (s *ChatService) CloseConversation(_ context.Context, req *wire.CloseConversationRequest) (*wire.CloseConversationResponse, error) {
	v, err := s.views.get(req.ViewID)
	if err != nil {
		return nil, err
	}
	v.Close()
	s.views.remove(req.ViewID)
	return &wire.CloseConversationResponse{}, nil
}
