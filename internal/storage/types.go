package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	RetainDays  int           // audit retention for Prune; 0 means keep all
}

// AuditEntry records one handled mention.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At          time.Time
	Handle      string
	Command     string
	StatusID    string
	ReplyQueued bool
	OK          bool
	Error       string
	TookMS      int64
}
