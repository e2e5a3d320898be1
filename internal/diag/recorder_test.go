package diag

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/vitalchat/internal/bus"
	"github.com/matheus3301/vitalchat/internal/store"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, _, err := store.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecorderPersistsDiagnostics(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	r := NewRecorder(db, b, zap.NewNop())
	r.Start(context.Background())
	defer r.Stop()

	b.Emit(bus.KindDiagMarkReadFailed, bus.Diagnostic{PartnerID: "doc-1", Op: "mark_read", Err: "status 500"})
	b.Emit(bus.KindDiagChannelError, bus.Diagnostic{PartnerID: "doc-1", Op: "dial", Err: "refused"})
	b.Emit(bus.KindSessionStatus, "ignored: not a diag event")

	deadline := time.Now().Add(2 * time.Second)
	var got []store.Diagnostic
	for time.Now().Before(deadline) {
		got, _ = db.ListDiagnostics("", 10)
		if len(got) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(got) != 2 {
		t.Fatalf("diagnostics = %d, want 2", len(got))
	}

	markRead, err := db.ListDiagnostics(bus.KindDiagMarkReadFailed, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(markRead) != 1 || markRead[0].PartnerID != "doc-1" || markRead[0].Error != "status 500" {
		t.Errorf("mark_read diagnostics = %+v", markRead)
	}
}

func TestRecorderPrunesOnStart(t *testing.T) {
	db := testDB(t)
	old := &store.Diagnostic{Kind: bus.KindDiagSendFailed, OccurredAt: time.Now().Add(-2 * Retention)}
	if err := db.RecordDiagnostic(old); err != nil {
		t.Fatal(err)
	}

	r := NewRecorder(db, bus.New(), zap.NewNop())
	r.Start(context.Background())
	r.Stop()
	r.Stop()

	got, _ := db.ListDiagnostics("", 10)
	if len(got) != 0 {
		t.Errorf("diagnostics = %d, want expired row pruned", len(got))
	}
}
