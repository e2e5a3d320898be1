package daemon

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/vitalchat/internal/auth"
	"github.com/matheus3301/vitalchat/internal/bus"
	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/config"
	"github.com/matheus3301/vitalchat/internal/devserver"
	"github.com/matheus3301/vitalchat/internal/lock"
	"github.com/matheus3301/vitalchat/internal/session"
	"github.com/matheus3301/vitalchat/internal/status"
	"github.com/matheus3301/vitalchat/internal/wire"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	grpcstatus "google.golang.org/grpc/status"
)

type daemonHarness struct {
	portal  *devserver.Server
	app     *fx.App
	conn    *grpc.ClientConn
	session wire.SessionServiceClient
	chat    wire.ChatServiceClient
	name    string
}

// startDaemon runs the full fx graph against an in-memory portal, with
// VITALCHAT_HOME in a short temp dir (Unix socket paths are length-limited).
func startDaemon(t *testing.T, name string, seed func(portal *devserver.Server)) *daemonHarness {
	t.Helper()
	home, err := os.MkdirTemp("/tmp", "vc-d-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(home) })
	t.Setenv(session.EnvHome, home)

	portal := devserver.New(devserver.Options{Users: devserver.DemoUsers}, nil)
	ts := httptest.NewServer(portal.Handler())
	t.Cleanup(func() {
		portal.Close()
		ts.Close()
	})
	if seed != nil {
		seed(portal)
	}

	cfg := config.Default()
	cfg.APIBaseURL = ts.URL + "/api"
	cfg.PollInterval = config.Duration{Duration: time.Hour}
	cfg.Backoff = config.Backoff{
		Initial:  config.Duration{Duration: 10 * time.Millisecond},
		Max:      config.Duration{Duration: 50 * time.Millisecond},
		Attempts: 2,
	}

	app := fx.New(Module(Params{SessionName: name, Config: cfg}), fx.NopLogger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("app.Start() error = %v", err)
	}

	conn, err := wire.Dial(session.SocketPath(name))
	if err != nil {
		t.Fatal(err)
	}
	h := &daemonHarness{
		portal:  portal,
		app:     app,
		conn:    conn,
		session: wire.NewSessionServiceClient(conn),
		chat:    wire.NewChatServiceClient(conn),
		name:    name,
	}
	t.Cleanup(func() {
		_ = conn.Close()
		h.stop(t)
	})
	return h
}

func (h *daemonHarness) stop(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.app.Stop(ctx)
}

func (h *daemonHarness) waitStatus(t *testing.T, want status.State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := h.session.GetSessionStatus(context.Background(), &wire.GetSessionStatusRequest{})
		if err == nil && resp.Status == string(want) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never reached %s (last %+v, err %v)", want, resp, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemonStartsAuthRequiredWithoutCredentials(t *testing.T) {
	h := startDaemon(t, "fresh", nil)
	ctx := context.Background()

	h.waitStatus(t, status.AuthRequired)
	if !lock.IsHeld(session.Dir(h.name)) {
		t.Error("daemon should hold the session lock")
	}

	info, err := os.Stat(session.SocketPath(h.name))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket permission = %o, want 0600", perm)
	}

	_, err = h.chat.ListConversations(ctx, &wire.ListConversationsRequest{})
	if grpcstatus.Code(err) != codes.Unauthenticated {
		t.Errorf("ListConversations without credentials: %v, want Unauthenticated", err)
	}

	health := healthpb.NewHealthClient(h.conn)
	resp, err := health.Check(ctx, &healthpb.HealthCheckRequest{Service: wire.ChatService_ServiceDesc.ServiceName}, grpc.CallContentSubtype("proto"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("chat health = %s, want NOT_SERVING", resp.Status)
	}

	tok, err := h.portal.Token("pat-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	set, err := h.session.SetCredentials(ctx, &wire.SetCredentialsRequest{Token: tok})
	if err != nil {
		t.Fatal(err)
	}
	if set.Status != string(status.Ready) || set.UserID != "pat-1" {
		t.Errorf("SetCredentials = %+v", set)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err = health.Check(ctx, &healthpb.HealthCheckRequest{Service: wire.ChatService_ServiceDesc.ServiceName}, grpc.CallContentSubtype("proto"))
		if err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("chat health never became SERVING: %v %v", resp, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	info, err = os.Stat(session.CredentialsPath(h.name))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credentials permission = %o, want 0600", perm)
	}
}

func TestDaemonStartsReadyWithSavedCredentials(t *testing.T) {
	name := "saved"
	var token string
	h := startDaemon(t, name, func(portal *devserver.Server) {
		var err error
		token, err = portal.Token("pat-1", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if err := session.EnsureDir(name); err != nil {
			t.Fatal(err)
		}
		f, err := os.OpenFile(session.CredentialsPath(name), os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			t.Fatal(err)
		}
		if err := toml.NewEncoder(f).Encode(auth.Credentials{Token: token}); err != nil {
			t.Fatal(err)
		}
		_ = f.Close()
		if _, err := portal.Post("doc-1", "pat-1", "Your appointment is confirmed"); err != nil {
			t.Fatal(err)
		}
	})
	ctx := context.Background()
	h.waitStatus(t, status.Ready)

	// The poller runs once at start.
	deadline := time.Now().Add(3 * time.Second)
	for {
		st, err := h.session.GetSessionStatus(ctx, &wire.GetSessionStatusRequest{})
		if err != nil {
			t.Fatal(err)
		}
		if st.UnreadTotal == 1 && !st.LastPollAt.IsZero() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("poller never recorded the unread total: %+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}

	list, err := h.chat.ListConversations(ctx, &wire.ListConversationsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Conversations) != 1 || list.UserID != "pat-1" {
		t.Errorf("conversations = %+v", list)
	}
}

func TestDaemonFirstPollRejectionRequiresAuth(t *testing.T) {
	name := "stale"
	h := startDaemon(t, name, func(portal *devserver.Server) {
		// Signed with a secret the portal does not know, so every call is a 401.
		token, err := devserver.NewTokens([]byte("rotated-secret")).Sign(devserver.DemoUsers[0], time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if err := session.EnsureDir(name); err != nil {
			t.Fatal(err)
		}
		f, err := os.OpenFile(session.CredentialsPath(name), os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			t.Fatal(err)
		}
		if err := toml.NewEncoder(f).Encode(auth.Credentials{Token: token}); err != nil {
			t.Fatal(err)
		}
		_ = f.Close()
	})

	h.waitStatus(t, status.AuthRequired)
	if _, err := os.Stat(session.CredentialsPath(name)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("credentials should be removed after a 401, stat err = %v", err)
	}
}

func TestDaemonClosesViewsWhenTokenRejected(t *testing.T) {
	h := startDaemon(t, "revoked", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tok, err := h.portal.Token("pat-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.session.SetCredentials(ctx, &wire.SetCredentialsRequest{Token: tok}); err != nil {
		t.Fatal(err)
	}

	stream, err := h.chat.OpenConversation(ctx, &wire.OpenConversationRequest{PartnerID: "doc-1"})
	if err != nil {
		t.Fatal(err)
	}
	for {
		evt, err := stream.Recv()
		if err != nil {
			t.Fatal(err)
		}
		if evt.Kind == chat.EventLoaded {
			break
		}
	}

	h.portal.Fail(devserver.OpConversations, http.StatusUnauthorized)
	if _, err := h.chat.ListConversations(ctx, &wire.ListConversationsRequest{}); grpcstatus.Code(err) != codes.Unauthenticated {
		t.Fatalf("ListConversations: %v, want Unauthenticated", err)
	}

	for {
		evt, err := stream.Recv()
		if err != nil {
			t.Fatalf("stream ended without a closed event: %v", err)
		}
		if evt.Kind == chat.EventClosed {
			break
		}
	}
	h.waitStatus(t, status.AuthRequired)

	diags, err := h.session.ListDiagnostics(ctx, &wire.ListDiagnosticsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range diags.Diagnostics {
		if d.Kind != bus.KindDiagMarkReadFailed && d.Kind != bus.KindDiagChannelError {
			t.Errorf("unexpected diagnostic %+v", d)
		}
	}
}

func TestDaemonRefusesSecondInstance(t *testing.T) {
	h := startDaemon(t, "single", nil)

	second := fx.New(Module(Params{
		SessionName: h.name,
		Config:      config.Default(),
		SocketPath:  session.Dir(h.name) + "/second.sock",
	}), fx.NopLogger)
	if second.Err() == nil {
		t.Fatal("second daemon on the same session should fail to build")
	}

	holder, err := lock.ReadHolder(session.Dir(h.name))
	if err != nil {
		t.Fatal(err)
	}
	if holder.PID != os.Getpid() {
		t.Errorf("holder pid = %d, want %d", holder.PID, os.Getpid())
	}
}
