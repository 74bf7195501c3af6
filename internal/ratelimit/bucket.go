// Package ratelimit provides the token bucket bounding overall notification
// volume per rolling hour. Refill is computed lazily on each consumption
// check from elapsed wall-clock time; there is no background timer.
package ratelimit

import "time"

// TokenBucket is a continuously-refilling token pool with a fixed capacity.
// The refill rate is capacity tokens per hour, so a full bucket models
// "at most capacity notifications in any rolling hour".
//
// TokenBucket is not safe for concurrent use; the owning manager serializes
// access.
type TokenBucket struct {
	capacity     float64
	tokens       float64
	refillPerSec float64
	lastRefill   time.Time
}

// New creates a full bucket allowing perHour consumptions per rolling hour.
func New(perHour int) *TokenBucket {
	capacity := float64(perHour)
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPerSec: capacity / 3600.0,
		lastRefill:   time.Now(),
	}
}

// TryConsume attempts to take one token at the current wall-clock time.
func (b *TokenBucket) TryConsume() bool {
	return b.ConsumeAt(time.Now())
}

// ConsumeAt attempts to take one token at the given time. It first credits
// tokens for the elapsed time since the last refill, clamped at capacity,
// then consumes one token if at least one is available.
func (b *TokenBucket) ConsumeAt(now time.Time) bool {
	b.refill(now)
	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// Resize changes the bucket capacity to perHour, preserving the proportion
// of remaining tokens rather than resetting to full. A half-empty bucket
// stays half-empty across the change.
func (b *TokenBucket) Resize(perHour int) {
	b.refill(time.Now())

	ratio := 1.0
	if b.capacity > 0 {
		ratio = b.tokens / b.capacity
	}

	b.capacity = float64(perHour)
	b.tokens = b.capacity * ratio
	b.refillPerSec = b.capacity / 3600.0
}

// Snapshot returns the available tokens and capacity after crediting refill
// up to the given time. Read-only callers use this for statistics.
func (b *TokenBucket) Snapshot(now time.Time) (tokens, capacity float64) {
	b.refill(now)
	return b.tokens, b.capacity
}

func (b *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillPerSec)
	}
	b.lastRefill = now
}
