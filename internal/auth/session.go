// Package auth holds the credentials a daemon session talks to the portal with.
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/vitalchat/internal/bus"
	"go.uber.org/zap"
)

// ErrNoCredentials is returned when the session has no token.
var ErrNoCredentials = errors.New("no credentials")

// Credentials is the on-disk shape of credentials.toml.
type Credentials struct {
	Token  string `toml:"token"`
	UserID string `toml:"user_id"`
}

// Session is the single authentication context shared by the REST transport
// and the push channels. It is loaded once and updated only through Set and
// Clear.
type Session struct {
	mu     sync.RWMutex
	path   string
	creds  Credentials
	bus    *bus.Bus
	logger *zap.Logger
}

// Load reads credentials from path. A missing file yields an empty session.
func Load(path string, b *bus.Bus, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{path: path, bus: b, logger: logger}

	var creds Credentials
	_, err := toml.DecodeFile(path, &creds)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	if err := s.apply(creds); err != nil {
		return nil, err
	}
	return s, nil
}

// Token returns the bearer token, or "" when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Token
}

// UserID returns the current user's id.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.UserID
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Set stores new credentials and persists them with mode 0600. When userID is
// empty it is taken from the token's claims.
func (s *Session) Set(token, userID string) error {
	if token == "" {
		return ErrNoCredentials
	}
	if err := s.apply(Credentials{Token: token, UserID: userID}); err != nil {
		return err
	}

	s.mu.RLock()
	creds := s.creds
	s.mu.RUnlock()
	return save(s.path, creds)
}

// Clear forgets the credentials, removes the file and publishes
// session.unauthorized. Safe to call when already cleared.
func (s *Session) Clear(reason string) {
	s.mu.Lock()
	had := s.creds.Token != ""
	s.creds = Credentials{}
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("remove credentials", zap.Error(err))
	}
	if !had {
		return
	}
	s.logger.Warn("session cleared", zap.String("reason", reason))
	s.bus.Publish(bus.Event{
		Kind:      bus.KindSessionUnauthorized,
		Timestamp: time.Now(),
		Payload:   reason,
	})
}

func (s *Session) apply(creds Credentials) error {
	if creds.Token != "" {
		claims, err := ParseClaims(creds.Token)
		switch {
		case err != nil && creds.UserID == "":
			return fmt.Errorf("token: %w", err)
		case err != nil:
			s.logger.Warn("token claims unreadable", zap.Error(err))
		default:
			if creds.UserID == "" {
				creds.UserID = claims.UserID
			}
			if claims.Expired(time.Now()) {
				s.logger.Warn("token expired", zap.Time("exp", claims.ExpiresAt))
			}
		}
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

func save(path string, creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(creds)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
