package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + diagnostics)", result.Version)
	}
	if result.Dirty {
		t.Error("schema should not be dirty")
	}
}

func TestMigrateRefusesDirtySchema(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}
	res, err := db.Migrate()
	if !errors.Is(err, ErrDirtySchema) {
		t.Fatalf("Migrate() error = %v, want ErrDirtySchema", err)
	}
	if res == nil || !res.Dirty || res.Version != 2 {
		t.Errorf("result = %+v, want dirty at version 2", res)
	}
}

func TestOpenMigrated(t *testing.T) {
	db, res, err := OpenMigrated(filepath.Join(t.TempDir(), "vitalchat.db"))
	if err != nil {
		t.Fatalf("OpenMigrated() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	if !res.Changed {
		t.Error("fresh database should report Changed=true")
	}
}

func TestJournalLifecycle(t *testing.T) {
	db := testDB(t)

	if err := db.BeginSend("c1", "doc-1", "Hello"); err != nil {
		t.Fatal(err)
	}
	if err := db.BeginSend("c2", "doc-1", "Again"); err != nil {
		t.Fatal(err)
	}
	if err := db.BeginSend("c3", "doc-2", "Other"); err != nil {
		t.Fatal(err)
	}

	if err := db.MarkSent("c1", "m42"); err != nil {
		t.Fatalf("MarkSent() error = %v", err)
	}
	if err := db.MarkSendFailed("c2", "network down"); err != nil {
		t.Fatalf("MarkSendFailed() error = %v", err)
	}

	e, err := db.GetJournalEntry("c1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != JournalSent || e.ServerMsgID != "m42" || e.PartnerID != "doc-1" {
		t.Errorf("c1 = %+v", e)
	}
	e, _ = db.GetJournalEntry("c2")
	if e.Status != JournalFailed || e.ErrorMessage != "network down" {
		t.Errorf("c2 = %+v", e)
	}

	// A finished entry cannot be finished again.
	if err := db.MarkSent("c2", "m43"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("MarkSent on failed entry error = %v, want sql.ErrNoRows", err)
	}

	entries, err := db.ListJournal("doc-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("doc-1 entries = %d, want 2", len(entries))
	}
	all, err := db.ListJournal("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all entries = %d, want 3", len(all))
	}
	if all[0].ClientMsgID != "c3" {
		t.Errorf("newest entry = %s, want c3", all[0].ClientMsgID)
	}

	missing, err := db.GetJournalEntry("nope")
	if err != nil || missing != nil {
		t.Errorf("GetJournalEntry(nope) = %v, %v", missing, err)
	}
}

func TestBeginSendDuplicateClientID(t *testing.T) {
	db := testDB(t)
	if err := db.BeginSend("c1", "doc-1", "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.BeginSend("c1", "doc-1", "b"); err == nil {
		t.Error("duplicate client_msg_id should fail")
	}
}

func TestFailStaleSends(t *testing.T) {
	db := testDB(t)
	_ = db.BeginSend("c1", "doc-1", "a")
	_ = db.BeginSend("c2", "doc-1", "b")
	_ = db.MarkSent("c2", "m1")

	n, err := db.FailStaleSends()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("FailStaleSends() = %d, want 1", n)
	}
	e, _ := db.GetJournalEntry("c1")
	if e.Status != JournalFailed || e.ErrorMessage != "interrupted" {
		t.Errorf("c1 = %+v", e)
	}
}

func TestDiagnostics(t *testing.T) {
	db := testDB(t)
	base := time.Now().Add(-time.Hour)

	for i, kind := range []string{"diag.mark_read_failed", "diag.channel_error", "diag.mark_read_failed"} {
		d := &Diagnostic{Kind: kind, PartnerID: "doc-1", Op: "op", Error: "boom", OccurredAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.RecordDiagnostic(d); err != nil {
			t.Fatal(err)
		}
		if d.ID == 0 {
			t.Error("RecordDiagnostic did not set ID")
		}
	}

	all, err := db.ListDiagnostics("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("diagnostics = %d, want 3", len(all))
	}
	if !all[0].OccurredAt.After(all[2].OccurredAt) {
		t.Error("diagnostics should be newest first")
	}

	markRead, _ := db.ListDiagnostics("diag.mark_read_failed", 10)
	if len(markRead) != 2 {
		t.Errorf("mark_read diagnostics = %d, want 2", len(markRead))
	}

	n, err := db.PruneDiagnostics(base.Add(90 * time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
}

func TestRecordDiagnosticStampsTime(t *testing.T) {
	db := testDB(t)
	if err := db.RecordDiagnostic(&Diagnostic{Kind: "diag.send_failed"}); err != nil {
		t.Fatal(err)
	}
	got, _ := db.ListDiagnostics("", 1)
	if len(got) != 1 || got[0].OccurredAt.IsZero() {
		t.Errorf("diagnostic = %+v", got)
	}
}

func TestState(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.GetState("missing"); ok || err != nil {
		t.Errorf("GetState(missing) ok=%v err=%v", ok, err)
	}
	if n, err := db.GetInt(KeyUnreadTotal); n != 0 || err != nil {
		t.Errorf("GetInt(absent) = %d, %v", n, err)
	}

	if err := db.SetInt(KeyUnreadTotal, 4); err != nil {
		t.Fatal(err)
	}
	if err := db.SetInt(KeyUnreadTotal, 7); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.GetInt(KeyUnreadTotal); n != 7 {
		t.Errorf("unread_total = %d, want 7", n)
	}

	at := time.UnixMilli(time.Now().UnixMilli())
	if err := db.SetTime(KeyLastPollAt, at); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetTime(KeyLastPollAt)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(at) {
		t.Errorf("last_poll_at = %v, want %v", got, at)
	}
}
