// Package bot is the concurrent core: a bounded inbox fed by the
// notification stream, a fixed worker pool that classifies and handles
// mentions, and a single pacing scheduler that owns outbound delivery
// ordering.
package bot

import (
	"errors"
	"time"
)

// Config holds the pipeline knobs, resolved from the config file by the app.
type Config struct {
	Workers        int           // handler goroutines
	InboxSize      int           // bounded mention buffer
	SubmitTimeout  time.Duration // how long Submit waits on a full inbox
	GapGlobal      time.Duration // minimum spacing between any two sends
	GapPerUser     time.Duration // minimum spacing between sends to one user
	ResendOnce     bool          // re-queue a failed send one time
	ThreadHopLimit int           // reply-chain hops when resolving a thread root
	Visibility     string        // outbound status visibility
}

func (c *Config) normalize() {
	if c.Workers <= 0 {
		c.Workers = 6
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 10000
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = time.Second
	}
	if c.GapGlobal <= 0 {
		c.GapGlobal = 8 * time.Second
	}
	if c.GapPerUser <= 0 {
		c.GapPerUser = 8 * time.Second
	}
	if c.ThreadHopLimit <= 0 {
		c.ThreadHopLimit = 10
	}
	if c.Visibility == "" {
		c.Visibility = "public"
	}
}

var (
	// ErrInboxFull is returned by Submit when the buffer stayed full past
	// the submit timeout. The event is dropped.
	ErrInboxFull = errors.New("bot: inbox full")

	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("bot: stopped")
)
