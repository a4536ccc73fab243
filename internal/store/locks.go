package store

import "sync"

// Keyed hands out one mutex per user key, created lazily and cached for the
// process lifetime. Cardinality is bounded by distinct users seen, so entries
// are never removed.
//
// The registry's own map is guarded by a separate mutex from the per-user
// locks it stores; two goroutines asking for the same new key always receive
// the same mutex.
type Keyed struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	fallback sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{locks: map[string]*sync.Mutex{}}
}

// Acquire returns the mutex for key. An empty key maps to a single shared
// fallback lock.
func (k *Keyed) Acquire(key string) *sync.Mutex {
	if key == "" {
		return &k.fallback
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	lk := k.locks[key]
	if lk == nil {
		lk = &sync.Mutex{}
		k.locks[key] = lk
	}
	return lk
}

// Len reports the number of distinct keys seen (operational signal only).
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
