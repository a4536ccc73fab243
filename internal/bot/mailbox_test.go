package bot

import (
	"errors"
	"testing"
	"time"

	"marchbot/internal/transport"
)

func mentionEvent(id string) transport.Event {
	return transport.Event{
		Type:   transport.EventMention,
		Status: &transport.Status{ID: id, Account: transport.Account{Acct: "alice"}},
	}
}

func TestMailboxSubmitAndDrain(t *testing.T) {
	m := newMailbox(2, 10*time.Millisecond)
	if err := m.Submit(mentionEvent("1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := m.Submit(mentionEvent("2")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ev := <-m.Chan()
	if ev.Status.ID != "1" {
		t.Fatalf("expected FIFO order, got %q", ev.Status.ID)
	}
}

func TestMailboxFullDropsAfterTimeout(t *testing.T) {
	m := newMailbox(1, 20*time.Millisecond)
	if err := m.Submit(mentionEvent("1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	start := time.Now()
	err := m.Submit(mentionEvent("2"))
	elapsed := time.Since(start)

	if !errors.Is(err, ErrInboxFull) {
		t.Fatalf("expected ErrInboxFull, got %v", err)
	}
	if elapsed < 20*time.Millisecond {
		t.Fatalf("Submit gave up before the timeout: %v", elapsed)
	}
	if elapsed > time.Second {
		t.Fatalf("Submit blocked far past the timeout: %v", elapsed)
	}
}

func TestMailboxFullRecoversWhenDrained(t *testing.T) {
	m := newMailbox(1, 200*time.Millisecond)
	if err := m.Submit(mentionEvent("1")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-m.Chan()
	}()
	// The waiting submit succeeds once a worker drains a slot.
	if err := m.Submit(mentionEvent("2")); err != nil {
		t.Fatalf("Submit should succeed after drain, got %v", err)
	}
}

func TestMailboxClosedRejects(t *testing.T) {
	m := newMailbox(1, 10*time.Millisecond)
	m.Close()
	if err := m.Submit(mentionEvent("1")); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
