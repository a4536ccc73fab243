package store

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConfigCache holds the 설정 worksheet as a flat key→value map with a TTL
// that is much longer than the table snapshot cache. It is force-invalidated
// by a periodic cron job and whenever operators ask for it.
//
// Missing keys fall back to the defaults the callers pass in.
type ConfigCache struct {
	api TableAPI
	ws  string
	ttl time.Duration
	now func() time.Time // test hook

	mu       sync.Mutex
	m        map[string]string
	loadedAt time.Time
}

func NewConfigCache(api TableAPI, ws string, ttl time.Duration) *ConfigCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ConfigCache{api: api, ws: ws, ttl: ttl, now: time.Now}
}

// Get returns the current config map, reloading it when the TTL has lapsed.
// The returned map is shared: callers must treat it as read-only.
func (c *ConfigCache) Get(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	if c.m != nil && c.now().Sub(c.loadedAt) <= c.ttl {
		m := c.m
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	vals, err := c.api.ReadAll(ctx, c.ws)
	if err != nil {
		// Stale config beats no config.
		c.mu.Lock()
		m := c.m
		c.mu.Unlock()
		if m != nil {
			return m, nil
		}
		return nil, err
	}

	m := make(map[string]string, len(vals))
	for i, row := range vals {
		if i == 0 {
			continue // header
		}
		k := trim(cell(row, 0))
		if k == "" {
			continue
		}
		m[k] = trim(cell(row, 1))
	}

	c.mu.Lock()
	c.m = m
	c.loadedAt = c.now()
	c.mu.Unlock()
	return m, nil
}

// Invalidate drops the snapshot so the next Get reloads.
func (c *ConfigCache) Invalidate() {
	c.mu.Lock()
	c.m = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

// Str returns the config value for key, or def when missing/empty.
func (c *ConfigCache) Str(ctx context.Context, key, def string) string {
	m, err := c.Get(ctx)
	if err != nil {
		return def
	}
	if v := trim(m[key]); v != "" {
		return v
	}
	return def
}

// Int returns the config value for key parsed as int, or def when
// missing or unparseable.
func (c *ConfigCache) Int(ctx context.Context, key string, def int) int {
	v := c.Str(ctx, key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func trim(s string) string { return strings.TrimSpace(s) }
