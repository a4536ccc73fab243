package store

import (
	"sync"
	"time"
)

// snapshotCache is a short-TTL cache of whole-worksheet snapshots keyed by
// worksheet title. It exists to absorb the burst of reads a single inbound
// event causes (runner row, limits, explore rows, session) without a network
// round trip per lookup. Writes invalidate the affected worksheet.
type snapshotCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]snapEntry
	now     func() time.Time // test hook
}

type snapEntry struct {
	vals [][]string
	at   time.Time
}

func newSnapshotCache(ttl time.Duration) *snapshotCache {
	return &snapshotCache{
		ttl:     ttl,
		entries: map[string]snapEntry{},
		now:     time.Now,
	}
}

func (c *snapshotCache) Get(ws string) ([][]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[ws]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.at) > c.ttl {
		delete(c.entries, ws)
		return nil, false
	}
	return e.vals, true
}

func (c *snapshotCache) Put(ws string, vals [][]string) {
	c.mu.Lock()
	c.entries[ws] = snapEntry{vals: vals, at: c.now()}
	c.mu.Unlock()
}

func (c *snapshotCache) Invalidate(ws string) {
	c.mu.Lock()
	delete(c.entries, ws)
	c.mu.Unlock()
}
