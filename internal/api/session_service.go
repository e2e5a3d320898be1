package api

import (
	"context"
	"strings"
	"time"

	"github.com/matheus3301/vitalchat/internal/auth"
	"github.com/matheus3301/vitalchat/internal/bus"
	"github.com/matheus3301/vitalchat/internal/status"
	"github.com/matheus3301/vitalchat/internal/store"
	"github.com/matheus3301/vitalchat/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const defaultListLimit = 50

// SessionService implements wire.SessionServiceServer.
type SessionService struct {
	sessionName string
	startedAt   time.Time
	machine     *status.Machine
	creds       *auth.Session
	views       *Views
	bus         *bus.Bus
	db          *store.DB
	logger      *zap.Logger
}

var _ wire.SessionServiceServer = (*SessionService)(nil)

// NewSessionService creates a new session service.
func NewSessionService(sessionName string, machine *status.Machine, creds *auth.Session, views *Views, b *bus.Bus, db *store.DB, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		machine:     machine,
		creds:       creds,
		views:       views,
		bus:         b,
		db:          db,
		logger:      logger,
	}
}

func (s *SessionService) GetSessionStatus(_ context.Context, _ *wire.GetSessionStatusRequest) (*wire.GetSessionStatusResponse, error) {
	resp := &wire.GetSessionStatusResponse{
		Session:       s.sessionName,
		Status:        string(s.machine.Current()),
		UserID:        s.creds.UserID(),
		UptimeMs:      time.Since(s.startedAt).Milliseconds(),
		OpenViews:     s.views.Len(),
		DroppedEvents: s.bus.Dropped(),
	}
	if n, err := s.db.GetInt(store.KeyUnreadTotal); err == nil {
		resp.UnreadTotal = int(n)
	}
	if at, err := s.db.GetTime(store.KeyLastPollAt); err == nil {
		resp.LastPollAt = at
	}
	return resp, nil
}

func (s *SessionService) SetCredentials(_ context.Context, req *wire.SetCredentialsRequest) (*wire.SetCredentialsResponse, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "token is required")
	}
	if err := s.creds.Set(token, strings.TrimSpace(req.UserID)); err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "set credentials: %v", err)
	}
	if !s.machine.Is(status.Ready) {
		if err := s.machine.Transition(status.Ready); err != nil {
			return nil, grpcstatus.Errorf(codes.FailedPrecondition, "%v", err)
		}
	}
	s.logger.Info("credentials updated", zap.String("user_id", s.creds.UserID()))
	return &wire.SetCredentialsResponse{UserID: s.creds.UserID(), Status: string(s.machine.Current())}, nil
}

func (s *SessionService) ClearCredentials(_ context.Context, _ *wire.ClearCredentialsRequest) (*wire.ClearCredentialsResponse, error) {
	s.creds.Clear("logout")
	if s.machine.Is(status.Ready) {
		_ = s.machine.Transition(status.AuthRequired)
	}
	return &wire.ClearCredentialsResponse{Status: string(s.machine.Current())}, nil
}

func (s *SessionService) ListDiagnostics(_ context.Context, req *wire.ListDiagnosticsRequest) (*wire.ListDiagnosticsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.ListDiagnostics(req.Kind, limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list diagnostics: %v", err)
	}
	resp := &wire.ListDiagnosticsResponse{Diagnostics: make([]wire.Diagnostic, 0, len(rows))}
	for _, d := range rows {
		resp.Diagnostics = append(resp.Diagnostics, wire.Diagnostic{
			ID:         d.ID,
			Kind:       d.Kind,
			PartnerID:  d.PartnerID,
			Op:         d.Op,
			Error:      d.Error,
			OccurredAt: d.OccurredAt,
		})
	}
	return resp, nil
}

func (s *SessionService) ListJournal(_ context.Context, req *wire.ListJournalRequest) (*wire.ListJournalResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.ListJournal(req.PartnerID, limit)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list journal: %v", err)
	}
	resp := &wire.ListJournalResponse{Entries: make([]wire.JournalEntry, 0, len(rows))}
	for _, e := range rows {
		resp.Entries = append(resp.Entries, wire.JournalEntry{
			ClientMsgID: e.ClientMsgID,
			PartnerID:   e.PartnerID,
			Body:        e.Body,
			Status:      e.Status,
			ServerMsgID: e.ServerMsgID,
			Error:       e.ErrorMessage,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.UpdatedAt,
		})
	}
	return resp, nil
}

func (s *SessionService) WatchDiagnostics(req *wire.WatchDiagnosticsRequest, stream grpc.ServerStreamingServer[wire.Diagnostic]) error {
	ns := "diag."
	if req.Kind != "" {
		if !strings.HasPrefix(req.Kind, ns) {
			return grpcstatus.Errorf(codes.InvalidArgument, "kind %q is not a diagnostic", req.Kind)
		}
		ns = req.Kind
	}
	ch, unsub := s.bus.Subscribe(ns, 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			d, _ := evt.Payload.(bus.Diagnostic)
			if err := stream.Send(&wire.Diagnostic{
				Kind:       evt.Kind,
				PartnerID:  d.PartnerID,
				Op:         d.Op,
				Error:      d.Err,
				OccurredAt: evt.Timestamp,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
