package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"google.golang.org/api/googleapi"

	logx "marchbot/pkg/logx"
)

// BackoffPolicy bounds the retry loop around every repository call.
type BackoffPolicy struct {
	Attempts int           // total attempts including the first
	Base     time.Duration // first delay; doubles after each failure
}

func (p BackoffPolicy) withDefaults() BackoffPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 4
	}
	if p.Base <= 0 {
		p.Base = 500 * time.Millisecond
	}
	return p
}

// NoRetry marks an error as permanent so callWithRetry won't waste attempts.
func NoRetry(err error) error {
	if err == nil {
		return nil
	}
	return noRetryError{err: err}
}

// IsNoRetry reports whether err is wrapped with NoRetry.
func IsNoRetry(err error) bool {
	var e noRetryError
	return errors.As(err, &e)
}

type noRetryError struct{ err error }

func (e noRetryError) Error() string { return fmt.Sprintf("no-retry: %v", e.err) }
func (e noRetryError) Unwrap() error { return e.err }

// IsTransient classifies faults worth retrying: rate-limit and
// server-unavailable responses plus plain network trouble. Everything else
// (bad request, auth, missing sheet) surfaces immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 429, 500, 502, 503:
			return true
		}
		return false
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// callWithRetry runs fn with bounded exponential backoff on transient faults.
// Non-transient and NoRetry-tagged errors return immediately.
func callWithRetry(ctx context.Context, log logx.Logger, op string, pol BackoffPolicy, fn func(ctx context.Context) error) error {
	pol = pol.withDefaults()
	delay := pol.Base
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsNoRetry(err) || !IsTransient(err) || attempt >= pol.Attempts {
			return err
		}
		if !log.IsZero() {
			log.Warn("transient repository fault; retrying",
				logx.String("op", op),
				logx.Int("attempt", attempt),
				logx.Duration("delay", delay),
				logx.Err(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
