package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultSession = "work"
	cfg.APIBaseURL = "https://portal.example.com/api"
	cfg.PollInterval = Duration{45 * time.Second}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
	if loaded.PollInterval.Duration != 45*time.Second {
		t.Errorf("PollInterval = %v, want 45s", loaded.PollInterval)
	}
	if loaded.RequestTimeout.Duration != DefaultRequestTimeout {
		t.Errorf("RequestTimeout = %v, want default %v", loaded.RequestTimeout, DefaultRequestTimeout)
	}
}

func TestLoadAppliesDefaultsAndDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
api_base_url = "http://localhost:4000/api"
request_timeout = "10s"

[backoff]
initial = "250ms"
attempts = 3
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RequestTimeout.Duration != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.Backoff.Initial.Duration != 250*time.Millisecond || cfg.Backoff.Attempts != 3 {
		t.Errorf("Backoff = %+v", cfg.Backoff)
	}
	if cfg.Backoff.Max.Duration != DefaultBackoffMax {
		t.Errorf("Backoff.Max = %v, want default", cfg.Backoff.Max)
	}
	if cfg.PollInterval.Duration != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default", cfg.PollInterval)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`poll_interval = "soon"`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for bad duration")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}

	cfg, err := LoadOrDefault("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q, want default", cfg.APIBaseURL)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultSession: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestResolvedSocketURL(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"derived http", Config{APIBaseURL: "http://localhost:3000/api"}, "ws://localhost:3000/ws", false},
		{"derived https", Config{APIBaseURL: "https://portal.example.com/api?x=1"}, "wss://portal.example.com/ws", false},
		{"explicit", Config{APIBaseURL: "http://a/api", SocketURL: "ws://b/socket"}, "ws://b/socket", false},
		{"bad scheme", Config{APIBaseURL: "ftp://a/api"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolvedSocketURL()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyEnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("VITALCHAT_SOCKET_URL=ws://dotenv/ws\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAPIURL, "http://from-env/api")
	t.Setenv(EnvSocketURL, "")
	if err := os.Unsetenv(EnvSocketURL); err != nil {
		t.Fatal(err)
	}

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv(EnvSocketURL) })

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.APIBaseURL != "http://from-env/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.SocketURL != "ws://dotenv/ws" {
		t.Errorf("SocketURL = %q, want value from .env", cfg.SocketURL)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should not error, got %v", err)
	}
}

func TestLocation(t *testing.T) {
	if (&Config{}).Location() != time.Local {
		t.Error("empty timezone should be time.Local")
	}
	if (&Config{Timezone: "Not/AZone"}).Location() != time.Local {
		t.Error("bad timezone should fall back to time.Local")
	}
	if loc := (&Config{Timezone: "UTC"}).Location(); loc.String() != "UTC" {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}
