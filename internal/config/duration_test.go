package config

import (
	"testing"
	"time"
)

func TestParseDurationField(t *testing.T) {
	if d, err := ParseDurationField("x", " 1500ms "); err != nil || d != 1500*time.Millisecond {
		t.Fatalf("got (%v, %v)", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: got (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("garbage must error")
	}
	if _, err := ParseDurationField("x", "-2s"); err == nil {
		t.Fatal("negative must error")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	if d, err := ParseDurationOrDefault("x", "", 3*time.Second); err != nil || d != 3*time.Second {
		t.Fatalf("empty should default: got (%v, %v)", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "10s", 3*time.Second); err != nil || d != 10*time.Second {
		t.Fatalf("explicit should win: got (%v, %v)", d, err)
	}
	if _, err := ParseDurationOrDefault("x", "nope", time.Second); err == nil {
		t.Fatal("garbage must error")
	}
}
