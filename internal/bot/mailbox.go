package bot

import (
	"sync"
	"time"

	"marchbot/internal/transport"
)

// mailbox is the bounded buffer between the stream intake and the worker
// pool. Submit never blocks the stream for longer than the submit timeout;
// a full buffer drops the event.
type mailbox struct {
	ch      chan transport.Event
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newMailbox(size int, timeout time.Duration) *mailbox {
	return &mailbox{ch: make(chan transport.Event, size), timeout: timeout}
}

// Submit enqueues ev, waiting up to the submit timeout when the buffer is
// full. Returns ErrInboxFull on timeout and ErrStopped after Close.
func (m *mailbox) Submit(ev transport.Event) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrStopped
	}
	m.mu.Unlock()

	select {
	case m.ch <- ev:
		return nil
	default:
	}

	t := time.NewTimer(m.timeout)
	defer t.Stop()
	select {
	case m.ch <- ev:
		return nil
	case <-t.C:
		return ErrInboxFull
	}
}

func (m *mailbox) Chan() <-chan transport.Event { return m.ch }

// Close marks the mailbox stopped. The channel is left open so workers can
// drain what was already accepted; they exit via their stop channel.
func (m *mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
