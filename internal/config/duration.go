package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses one of the duration-typed config strings
// (bot.gap_global, bot.submit_timeout, sheets.cache_ttl, ...). path names the
// field in error messages. Empty means unset and parses to zero.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with a fallback for unset
// fields, used where Normalize leaves the default to the consumer (pacing
// gaps, retry backoff base).
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
