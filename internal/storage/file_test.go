package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "marchbot/pkg/logx"
)

func openTestStore(t *testing.T, path string) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st == nil {
		t.Fatal("Open returned nil store for file driver")
	}
	return st
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("driver %q: want (nil, nil), got (%v, %v)", driver, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver must error")
	}
}

func TestFileSeenRoundtrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")
	st := openTestStore(t, path)
	defer st.Close()

	if seen, err := st.Seen(ctx, "s1"); err != nil || seen {
		t.Fatalf("fresh id should be unseen, got (%v, %v)", seen, err)
	}
	if err := st.MarkSeen(ctx, "s1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if seen, err := st.Seen(ctx, "s1"); err != nil || !seen {
		t.Fatalf("marked id should be seen, got (%v, %v)", seen, err)
	}

	// Expired entries read as unseen.
	if err := st.MarkSeen(ctx, "s2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if seen, _ := st.Seen(ctx, "s2"); seen {
		t.Fatal("expired id should read as unseen")
	}

	// Blank ids are ignored.
	if err := st.MarkSeen(ctx, "  ", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("MarkSeen blank: %v", err)
	}
	if seen, _ := st.Seen(ctx, ""); seen {
		t.Fatal("blank id should never be seen")
	}
}

func TestFileSeenSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")

	st := openTestStore(t, path)
	if err := st.MarkSeen(ctx, "persisted", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st = openTestStore(t, path)
	defer st.Close()
	if seen, err := st.Seen(ctx, "persisted"); err != nil || !seen {
		t.Fatalf("journal replay should restore seen state, got (%v, %v)", seen, err)
	}
}

func TestFilePruneCompactsJournal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.db")

	st := openTestStore(t, path)
	defer st.Close()

	if err := st.MarkSeen(ctx, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := st.MarkSeen(ctx, "stale", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := st.Prune(ctx, time.Now()); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	// Compaction truncates the journal and keeps only live ids in the
	// snapshot.
	journal, err := os.ReadFile(filepath.Join(dir, "bot.seen.journal.jsonl"))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(journal) != 0 {
		t.Fatalf("journal should be empty after compaction, got %q", journal)
	}

	snap, err := os.Open(filepath.Join(dir, "bot.seen.snapshot.json"))
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer snap.Close()
	var m map[string]int64
	if err := json.NewDecoder(snap).Decode(&m); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if _, ok := m["live"]; !ok {
		t.Fatal("live id missing from snapshot")
	}
	if _, ok := m["stale"]; ok {
		t.Fatal("expired id should be dropped by compaction")
	}
}

func TestFileAuditAppend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st := openTestStore(t, filepath.Join(dir, "bot.db"))
	defer st.Close()

	entries := []AuditEntry{
		{At: time.Now(), Handle: "alice", Command: "dice", StatusID: "s1", ReplyQueued: true, OK: true, TookMS: 12},
		{At: time.Now(), Handle: "bob", Command: "explore", StatusID: "s2", OK: false, Error: "boom"},
	}
	for _, e := range entries {
		if err := st.AppendAudit(ctx, e); err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "bot.audit.jsonl"))
	if err != nil {
		t.Fatalf("open audit: %v", err)
	}
	defer f.Close()

	var got []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad audit line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 audit lines, got %d", len(got))
	}
	if got[0].Handle != "alice" || got[0].Command != "dice" || !got[0].ReplyQueued {
		t.Fatalf("first entry mismatch: %+v", got[0])
	}
	if got[1].Handle != "bob" || got[1].OK || got[1].Error != "boom" {
		t.Fatalf("second entry mismatch: %+v", got[1])
	}
}
