package checker

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a per-minute token bucket with an optional minimum spacing
// between requests. A limiter with maxTokens <= 0 only enforces spacing.
type RateLimiter struct {
	mu          sync.Mutex
	tokens      int
	maxTokens   int
	refillRate  int
	lastRefill  time.Time
	minInterval time.Duration
	lastRequest time.Time
	now         func() time.Time
}

func NewRateLimiter(maxTokensPerMinute int, minIntervalMS int) *RateLimiter {
	rl := &RateLimiter{
		maxTokens:   maxTokensPerMinute,
		refillRate:  maxTokensPerMinute,
		minInterval: time.Duration(minIntervalMS) * time.Millisecond,
		now:         time.Now,
	}
	rl.lastRefill = rl.now()
	if maxTokensPerMinute > 0 {
		rl.tokens = maxTokensPerMinute
	}
	return rl
}

func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	_, ok := rl.reserve(rl.now())
	return ok
}

// Wait blocks until a request may proceed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	for {
		rl.mu.Lock()
		delay, ok := rl.reserve(rl.now())
		rl.mu.Unlock()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve consumes a token when one is available, otherwise it reports how
// long the caller should wait before trying again. rl.mu must be held.
func (rl *RateLimiter) reserve(now time.Time) (time.Duration, bool) {
	if rl.minInterval > 0 && !rl.lastRequest.IsZero() {
		if wait := rl.minInterval - now.Sub(rl.lastRequest); wait > 0 {
			return wait, false
		}
	}

	if rl.maxTokens <= 0 {
		rl.lastRequest = now
		return 0, true
	}

	rl.refillTokens(now)
	if rl.tokens <= 0 {
		wait := rl.lastRefill.Add(time.Minute / time.Duration(rl.refillRate)).Sub(now)
		if wait <= 0 {
			wait = time.Millisecond
		}
		return wait, false
	}

	rl.consumeToken(now)
	return 0, true
}

func (rl *RateLimiter) refillTokens(now time.Time) {
	elapsed := now.Sub(rl.lastRefill)
	if elapsed >= time.Minute {
		rl.tokens = rl.maxTokens
		rl.lastRefill = now
		return
	}

	tokensToAdd := rl.calculateTokensToAdd(elapsed)
	if tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}
}

func (rl *RateLimiter) calculateTokensToAdd(elapsed time.Duration) int {
	return int(float64(rl.refillRate) * elapsed.Seconds() / 60.0)
}

func (rl *RateLimiter) consumeToken(now time.Time) {
	rl.tokens--
	rl.lastRequest = now
}
