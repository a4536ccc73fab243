package store

import (
	"sync"
	"testing"
)

func TestKeyedSameKeySameMutex(t *testing.T) {
	k := NewKeyed()
	a := k.Acquire("alice")
	b := k.Acquire("alice")
	if a != b {
		t.Fatalf("same key must return the same mutex")
	}
	if k.Acquire("bob") == a {
		t.Fatalf("distinct keys must not share a mutex")
	}
	if k.Len() != 2 {
		t.Fatalf("expected 2 distinct keys, got %d", k.Len())
	}
}

func TestKeyedEmptyKeyFallback(t *testing.T) {
	k := NewKeyed()
	a := k.Acquire("")
	b := k.Acquire("")
	if a != b {
		t.Fatalf("empty key must map to the shared fallback lock")
	}
	if k.Len() != 0 {
		t.Fatalf("fallback must not count as a key, got %d", k.Len())
	}
}

func TestKeyedConcurrentAcquire(t *testing.T) {
	k := NewKeyed()
	const goroutines = 32
	results := make([]*sync.Mutex, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = k.Acquire("same")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d got a different mutex for the same key", i)
		}
	}
}

func TestKeyedSerializesCriticalSections(t *testing.T) {
	k := NewKeyed()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu := k.Acquire("alice")
			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()
	if counter != 100 {
		t.Fatalf("expected 100 increments, got %d", counter)
	}
}
