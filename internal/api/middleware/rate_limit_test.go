package middleware

import (
	"testing"
	"time"
)

// testLimiter returns a limiter with a controllable clock.
func testLimiter(requests int, window time.Duration) (*RateLimiter, func(d time.Duration)) {
	rl := NewRateLimiter(requests, window)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }
	advance := func(d time.Duration) { now = now.Add(d) }
	return rl, advance
}

func TestAllowConsumesCapacity(t *testing.T) {
	rl, _ := testLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("u1") {
			t.Fatalf("request %d must be allowed within capacity", i+1)
		}
	}
	if rl.Allow("u1") {
		t.Error("request beyond capacity must be denied")
	}
}

func TestAllowAccruesFractionalTokens(t *testing.T) {
	rl, advance := testLimiter(10, time.Minute)

	// Drain the bucket.
	for i := 0; i < 10; i++ {
		rl.Allow("u1")
	}

	// Poll every 2s for a minute. At 10 tokens/min each poll accrues only a
	// third of a token, but the fractions must add up to ~10 refills.
	allowed := 0
	for i := 0; i < 30; i++ {
		advance(2 * time.Second)
		if rl.Allow("u1") {
			allowed++
		}
	}
	if allowed < 9 || allowed > 10 {
		t.Errorf("allowed = %d of 30 polls, want ~10 refilled tokens", allowed)
	}
}

func TestAllowRefillCapped(t *testing.T) {
	rl, advance := testLimiter(2, time.Minute)

	rl.Allow("u1")
	rl.Allow("u1")
	advance(time.Hour)

	allowed := 0
	for i := 0; i < 5; i++ {
		if rl.Allow("u1") {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed = %d, refill must be capped at capacity", allowed)
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	rl, _ := testLimiter(2, time.Minute)

	rl.Allow("heavy")
	rl.Allow("heavy")
	if rl.Allow("heavy") {
		t.Error("drained key must be denied")
	}
	if !rl.Allow("other") {
		t.Error("a drained key must not starve other keys")
	}
}
