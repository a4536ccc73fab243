package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logx "marchbot/pkg/logx"
)

type sentItem struct {
	at      time.Time
	replyTo string
	text    string
}

type recordingSink struct {
	mu    sync.Mutex
	sent  []sentItem
	fails int // fail this many sends first
}

func (r *recordingSink) send(_ context.Context, replyTo, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return errors.New("send failed")
	}
	r.sent = append(r.sent, sentItem{at: time.Now(), replyTo: replyTo, text: text})
	return nil
}

func (r *recordingSink) snapshot() []sentItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentItem(nil), r.sent...)
}

func waitForSends(t *testing.T, sink *recordingSink, n int, timeout time.Duration) []sentItem {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := sink.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sends, have %d", n, len(sink.snapshot()))
	return nil
}

func TestPacerGlobalGapSpacing(t *testing.T) {
	const gap = 60 * time.Millisecond
	sink := &recordingSink{}
	p := NewPacer(gap, gap, false, sink.send, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	p.Enqueue("alice", "s1", "one")
	p.Enqueue("bob", "s2", "two")
	p.Enqueue("carol", "s3", "three")

	got := waitForSends(t, sink, 3, 3*time.Second)
	const slack = 10 * time.Millisecond
	for i := 1; i < len(got); i++ {
		if d := got[i].at.Sub(got[i-1].at); d < gap-slack {
			t.Fatalf("sends %d and %d only %v apart, want >= %v", i-1, i, d, gap)
		}
	}
}

func TestPacerInsertionOrderOnTies(t *testing.T) {
	sink := &recordingSink{}
	// Zero-ish gaps: every item is ready immediately, sequence breaks ties.
	p := NewPacer(time.Millisecond, time.Millisecond, false, sink.send, logx.Nop())

	// Enqueue before the delivery loop starts so all items pile up.
	p.Enqueue("a", "s1", "first")
	p.Enqueue("b", "s2", "second")
	p.Enqueue("c", "s3", "third")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	got := waitForSends(t, sink, 3, 3*time.Second)
	for i, want := range []string{"first", "second", "third"} {
		if got[i].text != want {
			t.Fatalf("send %d = %q, want %q", i, got[i].text, want)
		}
	}
}

func TestPacerPerUserGapExceedsGlobal(t *testing.T) {
	const global = 10 * time.Millisecond
	const perUser = 80 * time.Millisecond
	sink := &recordingSink{}
	p := NewPacer(global, perUser, false, sink.send, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	p.Enqueue("alice", "s1", "one")
	p.Enqueue("alice", "s2", "two")

	got := waitForSends(t, sink, 2, 3*time.Second)
	const slack = 10 * time.Millisecond
	if d := got[1].at.Sub(got[0].at); d < perUser-slack {
		t.Fatalf("same-recipient sends %v apart, want >= %v", d, perUser)
	}
}

func TestPacerDropsFailedSend(t *testing.T) {
	sink := &recordingSink{fails: 1}
	p := NewPacer(time.Millisecond, time.Millisecond, false, sink.send, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	p.Enqueue("alice", "s1", "lost")
	p.Enqueue("alice", "s2", "kept")

	got := waitForSends(t, sink, 1, 3*time.Second)
	if got[0].text != "kept" {
		t.Fatalf("failed send should be dropped, first delivered %q", got[0].text)
	}
}

func TestPacerResendOnce(t *testing.T) {
	sink := &recordingSink{fails: 1}
	p := NewPacer(time.Millisecond, time.Millisecond, true, sink.send, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	p.Enqueue("alice", "s1", "retry me")

	got := waitForSends(t, sink, 1, 3*time.Second)
	if got[0].text != "retry me" {
		t.Fatalf("expected the retried item, got %q", got[0].text)
	}
}

func TestPacerEarlierItemPreempts(t *testing.T) {
	sink := &recordingSink{}
	p := NewPacer(time.Millisecond, time.Millisecond, false, sink.send, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	// Force a far-future item, then add one due now. The delivery loop must
	// re-check the heap top on wake and send the new item first.
	future := time.Now().Add(500 * time.Millisecond)
	p.mu.Lock()
	p.last[globalKey] = future
	p.mu.Unlock()
	p.Enqueue("slow", "s1", "later")

	p.mu.Lock()
	p.last[globalKey] = time.Now().Add(-time.Second)
	p.mu.Unlock()
	p.Enqueue("fast", "s2", "now")

	got := waitForSends(t, sink, 1, 3*time.Second)
	if got[0].text != "now" {
		t.Fatalf("expected the earlier item first, got %q", got[0].text)
	}
	got = waitForSends(t, sink, 2, 3*time.Second)
	if got[1].text != "later" {
		t.Fatalf("expected the future item second, got %q", got[1].text)
	}
}

func TestPacerPending(t *testing.T) {
	sink := &recordingSink{}
	p := NewPacer(time.Hour, time.Hour, false, sink.send, logx.Nop())
	p.Enqueue("alice", "s1", "one")
	p.Enqueue("alice", "s2", "two")
	if got := p.Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2", got)
	}
}
