package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied to keys missing from config.toml.
const (
	DefaultAPIBaseURL     = "http://localhost:3000/api"
	DefaultRequestTimeout = 30 * time.Second
	DefaultPollInterval   = 30 * time.Second
	DefaultBackoffInitial = time.Second
	DefaultBackoffMax     = 30 * time.Second
	DefaultBackoffTries   = 5
)

// Config represents the global ~/.vitalchat/config.toml.
type Config struct {
	DefaultSession string   `toml:"default_session"`
	APIBaseURL     string   `toml:"api_base_url"`
	SocketURL      string   `toml:"socket_url"`
	RequestTimeout Duration `toml:"request_timeout"`
	PollInterval   Duration `toml:"poll_interval"`
	Timezone       string   `toml:"timezone"`
	RelaySent      bool     `toml:"relay_sent"`
	Backoff        Backoff  `toml:"backoff"`
}

// Backoff configures the push channel's reconnect policy.
type Backoff struct {
	Initial  Duration `toml:"initial"`
	Max      Duration `toml:"max"`
	Attempts int      `toml:"attempts"`
}

// Duration is a time.Duration written as a Go duration string ("30s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads config from the given path. Returns nil config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.RequestTimeout.Duration <= 0 {
		c.RequestTimeout.Duration = DefaultRequestTimeout
	}
	if c.PollInterval.Duration <= 0 {
		c.PollInterval.Duration = DefaultPollInterval
	}
	if c.Backoff.Initial.Duration <= 0 {
		c.Backoff.Initial.Duration = DefaultBackoffInitial
	}
	if c.Backoff.Max.Duration <= 0 {
		c.Backoff.Max.Duration = DefaultBackoffMax
	}
	if c.Backoff.Attempts <= 0 {
		c.Backoff.Attempts = DefaultBackoffTries
	}
}

// ResolvedSocketURL returns SocketURL, or derives ws(s)://<api origin>/ws from
// APIBaseURL when it is unset.
func (c *Config) ResolvedSocketURL() (string, error) {
	if c.SocketURL != "" {
		return c.SocketURL, nil
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse api_base_url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("api_base_url %q: unsupported scheme %q", c.APIBaseURL, u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Location returns the time zone used to split the transcript into days.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
