package session

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matheus3301/vitalchat/internal/config"
)

func TestDir(t *testing.T) {
	t.Setenv(EnvHome, "")
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".vitalchat", "sessions", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestHomeOverride(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(EnvHome, tmp)
	if got := Dir("x"); got != filepath.Join(tmp, "sessions", "x") {
		t.Errorf("Dir(x) = %q", got)
	}
}

func TestPathSuffixes(t *testing.T) {
	tests := []struct {
		got    string
		suffix string
	}{
		{SocketPath("test"), filepath.Join("sessions", "test", "daemon.sock")},
		{LockPath("test"), filepath.Join("sessions", "test", "LOCK")},
		{CredentialsPath("test"), filepath.Join("sessions", "test", "credentials.toml")},
		{AppDBPath("test"), filepath.Join("sessions", "test", "vitalchat.db")},
		{LogPath("test"), filepath.Join("sessions", "test", "logs", "vcd.log")},
	}
	for _, tt := range tests {
		if !strings.HasSuffix(tt.got, tt.suffix) {
			t.Errorf("%q does not end with %q", tt.got, tt.suffix)
		}
	}
}

func TestEnsureDirAndList(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())

	names, err := List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("List() on empty home = %v", names)
	}

	for _, n := range []string{"work", "main"} {
		if err := EnsureDir(n); err != nil {
			t.Fatal(err)
		}
	}
	// Not a valid session name; must be skipped.
	if err := os.MkdirAll(filepath.Join(SessionsDir(), "Bad Name"), 0700); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(LogDir("work"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("log dir is not a directory")
	}

	names, err = List()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"main", "work"}) {
		t.Errorf("List() = %v, want [main work]", names)
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	t.Setenv(config.EnvSession, "")

	if got := Resolve(""); got != DefaultSessionName {
		t.Errorf("Resolve() with nothing set = %q, want %q", got, DefaultSessionName)
	}

	if err := config.Save(ConfigPath(), &config.Config{DefaultSession: "fromconfig"}); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "fromconfig" {
		t.Errorf("Resolve() = %q, want fromconfig", got)
	}

	t.Setenv(config.EnvSession, "fromenv")
	if got := Resolve(""); got != "fromenv" {
		t.Errorf("Resolve() = %q, want fromenv", got)
	}
	if got := Resolve("flag"); got != "flag" {
		t.Errorf("Resolve(flag) = %q, want flag", got)
	}
}
