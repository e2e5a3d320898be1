package daemon

import (
	"context"

	"github.com/matheus3301/vitalchat/internal/api"
	"github.com/matheus3301/vitalchat/internal/auth"
	"github.com/matheus3301/vitalchat/internal/backend"
	"github.com/matheus3301/vitalchat/internal/bus"
	"github.com/matheus3301/vitalchat/internal/channel"
	"github.com/matheus3301/vitalchat/internal/chat"
	"github.com/matheus3301/vitalchat/internal/config"
	"github.com/matheus3301/vitalchat/internal/diag"
	"github.com/matheus3301/vitalchat/internal/lock"
	"github.com/matheus3301/vitalchat/internal/logging"
	"github.com/matheus3301/vitalchat/internal/poller"
	"github.com/matheus3301/vitalchat/internal/session"
	"github.com/matheus3301/vitalchat/internal/status"
	"github.com/matheus3301/vitalchat/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // optional; nil = load ~/.vitalchat/config.toml and env
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideCredentials,
			provideBackend,
			provideOpener,
			provideChatDeps,
			provideRecorder,
			providePoller,
			api.NewViews,
			provideSessionService,
			provideChatService,
			newSupervisor,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore depends on the lock so only the lock holder touches the database.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.AppDBPath(p.SessionName)
	db, result, err := store.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	if n, err := db.FailStaleSends(); err != nil {
		logger.Warn("failed to close out interrupted sends", zap.Error(err))
	} else if n > 0 {
		logger.Info("marked interrupted sends as failed", zap.Int64("count", n))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideCredentials(p Params, _ *lock.Lock, b *bus.Bus, logger *zap.Logger) (*auth.Session, error) {
	return auth.Load(session.CredentialsPath(p.SessionName), b, logging.Named(logger, "auth"))
}

func provideBackend(cfg *config.Config, creds *auth.Session, logger *zap.Logger) (*backend.Client, error) {
	return backend.New(backend.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout.Duration,
	}, creds, logging.Named(logger, "backend"))
}

func provideOpener(cfg *config.Config, creds *auth.Session, b *bus.Bus, logger *zap.Logger) (*channel.Opener, error) {
	url, err := cfg.ResolvedSocketURL()
	if err != nil {
		return nil, err
	}
	return channel.NewOpener(channel.Options{
		URL: url,
		Policy: channel.Policy{
			Initial:  cfg.Backoff.Initial.Duration,
			Max:      cfg.Backoff.Max.Duration,
			Attempts: cfg.Backoff.Attempts,
		},
	}, creds, b, logging.Named(logger, "channel")), nil
}

func provideChatDeps(cfg *config.Config, client *backend.Client, opener *channel.Opener, creds *auth.Session, db *store.DB, b *bus.Bus, logger *zap.Logger) chat.Deps {
	return chat.Deps{
		Backend:  client,
		Channels: opener,
		Identity: creds,
		Journal:  db,
		Bus:      b,
		Logger:   logging.Named(logger, "view"),
		Relay:    cfg.RelaySent,
	}
}

func provideRecorder(db *store.DB, b *bus.Bus, logger *zap.Logger) *diag.Recorder {
	return diag.NewRecorder(db, b, logging.Named(logger, "diag"))
}

func providePoller(cfg *config.Config, client *backend.Client, creds *auth.Session, db *store.DB, b *bus.Bus, logger *zap.Logger) *poller.Poller {
	return poller.New(client, creds, db, b, cfg.PollInterval.Duration, logging.Named(logger, "poller"))
}

func provideSessionService(p Params, m *status.Machine, creds *auth.Session, views *api.Views, b *bus.Bus, db *store.DB, logger *zap.Logger) *api.SessionService {
	return api.NewSessionService(p.SessionName, m, creds, views, b, db, logging.Named(logger, "api"))
}

func provideChatService(deps chat.Deps, views *api.Views) *api.ChatService {
	return api.NewChatService(deps, views)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, creds *auth.Session, sup *supervisor, recorder *diag.Recorder, poll *poller.Poller, views *api.Views, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Persist diag.* events before anything can emit them.
			recorder.Start(context.Background())
			sup.Start(context.Background())

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if creds.Authenticated() {
				logger.Info("credentials loaded", zap.String("user_id", creds.UserID()))
				_ = machine.Transition(status.Ready)
			} else {
				logger.Info("no credentials found, auth required")
				_ = machine.Transition(status.AuthRequired)
			}

			// Leave BOOTING first, so a 401 from the first poll finds the
			// daemon READY and moves it to AUTH_REQUIRED.
			poll.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			poll.Stop()
			if n := views.CloseAll(); n > 0 {
				logger.Info("closed open views", zap.Int("count", n))
			}
			srv.Stop(ctx)
			sup.Stop()
			recorder.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
