package pacer

import "time"

// TokenBucket implements the token bucket pacing algorithm.
//
// The bucket allows bursts up to the capacity while maintaining an average
// rate over time. Tokens are added at a constant refill rate and each
// admitted call consumes one or more tokens. Balances are float64 so calls
// can carry fractional costs.
//
// This implementation uses monotonic time to avoid clock skew issues.
//
// # Algorithm
//
//  1. Calculate tokens to add based on elapsed time since last refill
//  2. Add tokens (up to capacity)
//  3. Check if enough tokens are available for the call
//  4. If yes: consume tokens and admit
//  5. If no: report the shortfall as a wait estimate
//
// # Thread Safety
//
// TokenBucket is NOT safe for concurrent use on its own. The owning Limiter
// serializes all access under its admission mutex; standalone use requires
// external locking.
type TokenBucket struct {
	capacity   float64   // Maximum tokens in bucket
	tokens     float64   // Current available tokens
	refillRate float64   // Tokens added per second
	lastRefill time.Time // Last time tokens were refilled
}

// NewTokenBucket creates a new token bucket.
//
// Parameters:
//   - capacity: Maximum number of tokens in the bucket (burst ceiling)
//   - refillRate: Number of tokens added per second (sustained rate)
//
// Example:
//
//	// 10 calls/sec sustained, burst up to 20
//	bucket := NewTokenBucket(20, 10)
func NewTokenBucket(capacity, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity, // Start with full bucket
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Take attempts to consume n tokens from the bucket.
// Returns true if tokens were available and consumed, false otherwise.
// On false the balance is left unchanged aside from the refill.
//
// This method refills tokens based on elapsed time before checking availability.
func (tb *TokenBucket) Take(n float64) bool {
	tb.refill(time.Now())

	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}

	return false
}

// TimeUntilAvailable returns how long until n tokens will be available,
// assuming nothing else consumes from the bucket in the meantime.
// Returns 0 if the tokens are immediately available.
//
// The result is an estimate, not a reservation: a concurrent consumer can
// lengthen the real wait.
func (tb *TokenBucket) TimeUntilAvailable(n float64) time.Duration {
	tb.refill(time.Now())

	// If already available, return immediately
	if tb.tokens >= n {
		return 0
	}

	// Time for the refill rate to cover the shortfall
	secondsNeeded := (n - tb.tokens) / tb.refillRate

	return time.Duration(secondsNeeded * float64(time.Second))
}

// Tokens returns the current balance, refilled to the present.
func (tb *TokenBucket) Tokens() float64 {
	tb.refill(time.Now())
	return tb.tokens
}

// Capacity returns the maximum bucket capacity.
func (tb *TokenBucket) Capacity() float64 {
	return tb.capacity
}

// RefillRate returns the sustained refill rate in tokens per second.
func (tb *TokenBucket) RefillRate() float64 {
	return tb.refillRate
}

// Reconfigure replaces the bucket's capacity and refill rate in place.
// Accrual up to now is credited at the old rate first, then the balance is
// clamped to the new capacity. The balance is never reset.
func (tb *TokenBucket) Reconfigure(capacity, refillRate float64) {
	tb.refill(time.Now())

	tb.capacity = capacity
	tb.refillRate = refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// refill adds tokens based on elapsed time since last refill, capped at
// capacity. A negative elapsed window (clock anomaly) adds nothing, so the
// balance always stays within [0, capacity].
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill)
	if elapsed < 0 {
		elapsed = 0
	}

	tb.tokens += elapsed.Seconds() * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}

	tb.lastRefill = now
}
