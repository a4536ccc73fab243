package store

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	logx "marchbot/pkg/logx"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"server error", &googleapi.Error{Code: 500}, true},
		{"bad gateway", &googleapi.Error{Code: 502}, true},
		{"unavailable", &googleapi.Error{Code: 503}, true},
		{"bad request", &googleapi.Error{Code: 400}, false},
		{"unauthorized", &googleapi.Error{Code: 401}, false},
		{"not found", &googleapi.Error{Code: 404}, false},
		{"network", &url.Error{Op: "Get", URL: "https://sheets.googleapis.com", Err: errors.New("connection reset")}, true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestCallWithRetrySucceedsAfterTransientFaults(t *testing.T) {
	calls := 0
	pol := BackoffPolicy{Attempts: 4, Base: time.Millisecond}
	err := callWithRetry(context.Background(), logx.Nop(), "test", pol, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &googleapi.Error{Code: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestCallWithRetryStopsOnPermanentFault(t *testing.T) {
	calls := 0
	pol := BackoffPolicy{Attempts: 4, Base: time.Millisecond}
	want := &googleapi.Error{Code: 400}
	err := callWithRetry(context.Background(), logx.Nop(), "test", pol, func(ctx context.Context) error {
		calls++
		return want
	})
	if calls != 1 {
		t.Fatalf("permanent fault should not retry, got %d calls", calls)
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != 400 {
		t.Fatalf("expected the original error, got %v", err)
	}
}

func TestCallWithRetryHonorsNoRetry(t *testing.T) {
	calls := 0
	pol := BackoffPolicy{Attempts: 4, Base: time.Millisecond}
	err := callWithRetry(context.Background(), logx.Nop(), "test", pol, func(ctx context.Context) error {
		calls++
		return NoRetry(&googleapi.Error{Code: 503})
	})
	if calls != 1 {
		t.Fatalf("NoRetry should short-circuit, got %d calls", calls)
	}
	if !IsNoRetry(err) {
		t.Fatalf("expected NoRetry-tagged error, got %v", err)
	}
}

func TestCallWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	pol := BackoffPolicy{Attempts: 3, Base: time.Millisecond}
	err := callWithRetry(context.Background(), logx.Nop(), "test", pol, func(ctx context.Context) error {
		calls++
		return &googleapi.Error{Code: 429}
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if err == nil {
		t.Fatalf("expected final error")
	}
}
