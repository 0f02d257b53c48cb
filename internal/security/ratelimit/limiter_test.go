package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("fourth request should be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	if !l.Allow("10.0.0.1") {
		t.Fatalf("first key should be allowed")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatalf("second key should be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("first key should be denied on second request")
	}
}

func TestAllowStrictSeparateBudget(t *testing.T) {
	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	if !l.AllowStrict("10.0.0.1", 1, time.Minute) {
		t.Fatalf("first strict request should be allowed")
	}
	if l.AllowStrict("10.0.0.1", 1, time.Minute) {
		t.Fatalf("second strict request should be denied")
	}
	// The regular budget is untouched by strict denials.
	if !l.Allow("10.0.0.1") {
		t.Fatalf("regular request should still be allowed")
	}
}

func TestEmptyKeyAlwaysAllowed(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		if !l.Allow("") {
			t.Fatalf("empty key should never be limited")
		}
	}
}
