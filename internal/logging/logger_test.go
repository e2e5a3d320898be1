package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "logs", "vcd.log")

	logger, err := New(logPath, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello", zap.String("partner_id", "doc-1"))
	_ = logger.Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{`"msg":"hello"`, `"session":"test"`, `"partner_id":"doc-1"`, `"ts":`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("log line %s missing %s", data, want)
		}
	}
}

func TestNamedNilLogger(t *testing.T) {
	l := Named(nil, "chat")
	if l == nil {
		t.Fatal("Named(nil) returned nil")
	}
	l.Info("dropped")
}
