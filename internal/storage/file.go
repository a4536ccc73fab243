package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "marchbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.audit.jsonl        (append-only JSON Lines)
//   - <prefix>.seen.snapshot.json (periodic snapshot)
//   - <prefix>.seen.journal.jsonl (append-only journal)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditFile *os.File

	seenSnapshotPath string
	seenJournalFile  *os.File
	seen             map[string]int64 // unix milli

	seenWrites int
}

type seenRecord struct {
	ID    string `json:"id"`
	Until int64  `json:"until"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	auditPath := prefix + ".audit.jsonl"
	snapPath := prefix + ".seen.snapshot.json"
	journalPath := prefix + ".seen.journal.jsonl"

	af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	// Load seen state from snapshot + journal.
	seen := map[string]int64{}
	_ = loadSeenSnapshot(snapPath, seen)
	_ = replaySeenJournal(journalPath, seen)
	pruneExpiredSeen(seen)

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = af.Close()
		return nil, err
	}

	return &fileStore{
		log:              log,
		auditFile:        af,
		seenSnapshotPath: snapPath,
		seenJournalFile:  jf,
		seen:             seen,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err1, err2 error
	if s.auditFile != nil {
		err1 = s.auditFile.Close()
		s.auditFile = nil
	}
	if s.seenJournalFile != nil {
		err2 = s.seenJournalFile.Close()
		s.seenJournalFile = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) MarkSeen(ctx context.Context, statusID string, until time.Time) error {
	_ = ctx
	statusID = strings.TrimSpace(statusID)
	if statusID == "" {
		return nil
	}
	ms := until.UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenJournalFile == nil {
		return errors.New("seen journal closed")
	}
	s.seen[statusID] = ms

	if err := json.NewEncoder(s.seenJournalFile).Encode(seenRecord{ID: statusID, Until: ms}); err != nil {
		return err
	}
	s.seenWrites++
	if s.seenWrites%1000 == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("seen compact failed", logx.Any("err", err))
		}
	}
	return nil
}

func (s *fileStore) Seen(ctx context.Context, statusID string) (bool, error) {
	_ = ctx
	statusID = strings.TrimSpace(statusID)
	if statusID == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.seen[statusID]
	if !ok {
		return false, nil
	}
	return time.UnixMilli(ms).After(time.Now()), nil
}

// Prune drops expired seen entries. The audit jsonl is append-only; file
// retention is left to external log rotation.
func (s *fileStore) Prune(ctx context.Context, before time.Time) error {
	_ = ctx
	_ = before
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenJournalFile == nil {
		return nil
	}
	return s.compactLocked()
}

func (s *fileStore) compactLocked() error {
	pruneExpiredSeen(s.seen)

	tmp := s.seenSnapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.seen); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.seenSnapshotPath); err != nil {
		return err
	}
	// Truncate journal.
	if err := s.seenJournalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.seenJournalFile.Seek(0, 2)
	return err
}

func loadSeenSnapshot(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]int64
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replaySeenJournal(path string, out map[string]int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec seenRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		out[rec.ID] = rec.Until
	}
	return sc.Err()
}

func pruneExpiredSeen(m map[string]int64) {
	now := time.Now().UnixMilli()
	for k, v := range m {
		if v <= now {
			delete(m, k)
		}
	}
}
