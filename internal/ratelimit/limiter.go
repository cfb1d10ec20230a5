// Package ratelimit implements the per-source-entry and global rate caps
// from spec §4.3/§5/§9. The defining contract is the per-window cap, not
// the algorithm (spec §9), so this keeps the teacher's token-bucket shape
// (internal/provider/ratelimiter.go) rather than inventing a sliding-window
// counter, and adds the jitter original_source/rate_limiter.py documents as
// an anti-detection measure on top of the fixed caps.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter is a token bucket refilled continuously at capacity/window.
// Allow is non-blocking (used by ingestion workers, which must drop rather
// than wait per spec §4.3's drop-reason ordering); Wait blocks, for the
// slower upstream-fetch pacing original_source/rate_limiter.py describes.
type Limiter struct {
	mu             sync.Mutex
	tokens         float64
	maxTokens      float64
	refillInterval time.Duration
	lastRefill     time.Time
}

// New builds a Limiter with the given capacity per refillInterval.
func New(maxTokens int, refillInterval time.Duration) *Limiter {
	if maxTokens <= 0 {
		maxTokens = 1
	}
	if refillInterval <= 0 {
		refillInterval = time.Minute
	}
	return &Limiter{
		tokens:         float64(maxTokens),
		maxTokens:      float64(maxTokens),
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
	}
}

func (l *Limiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill)
	if elapsed <= 0 {
		return
	}
	refillRate := l.maxTokens / l.refillInterval.Seconds()
	l.tokens += elapsed.Seconds() * refillRate
	if l.tokens > l.maxTokens {
		l.tokens = l.maxTokens
	}
	l.lastRefill = now
}

// Allow consumes one token if available and reports whether it did. It
// never blocks: a source-rate-exceeded drop decision must be immediate.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Wait blocks until a token is available or ctx is canceled, used for
// upstream-fetch pacing rather than per-event admission decisions.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refillLocked()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		deficit := 1 - l.tokens
		refillRate := l.maxTokens / l.refillInterval.Seconds()
		wait := time.Duration(deficit/refillRate*1000) * time.Millisecond
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// JitteredBackoff returns base scaled by a random factor in [1-pct, 1+pct],
// matching original_source/rate_limiter.py's "random jitter on all delays
// (±30%)" anti-detection measure. Applied to retry/backoff delays only —
// never to the hard per-window cap itself.
func JitteredBackoff(base time.Duration, pct float64) time.Duration {
	if pct <= 0 {
		return base
	}
	factor := 1 + (rand.Float64()*2-1)*pct
	return time.Duration(float64(base) * factor)
}
