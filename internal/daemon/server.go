package daemon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"github.com/matheus3301/vitalchat/internal/api"
	"github.com/matheus3301/vitalchat/internal/session"
	"github.com/matheus3301/vitalchat/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server is the daemon's local API: the session and chat services plus
// health, served on the session's Unix socket.
type Server struct {
	grpc   *grpc.Server
	ln     net.Listener
	path   string
	logger *zap.Logger
}

// NewServer binds the socket and registers the services. Nothing is served
// until Start.
func NewServer(
	p Params,
	logger *zap.Logger,
	sessionSvc *api.SessionService,
	chatSvc *api.ChatService,
	sup *supervisor,
) (*Server, error) {
	path := p.SocketPath
	if path == "" {
		path = session.SocketPath(p.SessionName)
	}
	ln, err := listenSocket(path)
	if err != nil {
		return nil, err
	}

	rpcLog := logger.Named("rpc")
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unaryLogger(rpcLog)),
		grpc.ChainStreamInterceptor(streamLogger(rpcLog)),
	)
	wire.RegisterSessionServiceServer(srv, sessionSvc)
	wire.RegisterChatServiceServer(srv, chatSvc)
	healthpb.RegisterHealthServer(srv, sup.health)

	return &Server{grpc: srv, ln: ln, path: path, logger: logger}, nil
}

// listenSocket listens on path, owner-only. The session lock is already held,
// so a socket file left at path belongs to a dead daemon.
func listenSocket(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

// Start serves until Stop. It returns nil after a normal stop.
func (s *Server) Start() error {
	s.logger.Info("serving local api", zap.String("socket", s.path))
	if err := s.grpc.Serve(s.ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop drains in-flight calls and removes the socket. Conversation streams
// still open when ctx expires are cut off.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("local api stopping")
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.grpc.GracefulStop()
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpc.Stop()
		<-stopped
	}
	_ = os.Remove(s.path)
}

func unaryLogger(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(logger, info.FullMethod, start, err)
		return resp, err
	}
}

func streamLogger(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(logger, info.FullMethod, start, err)
		return err
	}
}

// logCall logs failed calls at warn and the rest at debug, so polling
// clients do not flood the session log.
func logCall(logger *zap.Logger, method string, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		fields = append(fields, zap.Stringer("code", status.Code(err)), zap.Error(err))
		logger.Warn("rpc failed", fields...)
		return
	}
	logger.Debug("rpc", fields...)
}
