package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheus3301/vitalchat/internal/config"
	"github.com/matheus3301/vitalchat/internal/devserver"
	"go.uber.org/zap"
)

func main() {
	_ = config.LoadDotEnv()

	addr := flag.String("addr", "127.0.0.1:3000", "listen address")
	secret := flag.String("secret", envOr("VITALCHAT_MOCK_SECRET", "vitalchat-dev"), "HS256 signing secret")
	ttl := flag.Duration("ttl", 24*time.Hour, "lifetime of the printed tokens")
	seed := flag.Bool("seed", true, "post a short demo conversation on start")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	logCfg := zap.NewDevelopmentConfig()
	if !*verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	srv := devserver.New(devserver.Options{
		Secret: []byte(*secret),
		Users:  devserver.DemoUsers,
	}, logger.Named("devserver"))

	if *seed {
		for _, m := range [][3]string{
			{"doc-1", "pat-1", "Good morning! How are you feeling after the new dosage?"},
			{"pat-1", "doc-1", "Much better, the headaches are gone."},
			{"doc-2", "pat-1", "Your lab results are in. Let's talk on Thursday."},
		} {
			if _, err := srv.Post(m[0], m[1], m[2]); err != nil {
				logger.Fatal("seed", zap.Error(err))
			}
		}
	}

	fmt.Printf("vcmock on http://%s/api (push channel ws://%s/ws)\n\n", *addr, *addr)
	for _, u := range devserver.DemoUsers {
		token, err := srv.Token(u.ID, *ttl)
		if err != nil {
			logger.Fatal("sign token", zap.String("user", u.ID), zap.Error(err))
		}
		fmt.Printf("%-7s %-18s %s\n  vcctl login --token %s\n\n", u.Role, u.Name, u.ID, token)
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
