package pacer

import (
	"errors"
	"fmt"
	"time"
)

// Error types for admission failures and misconfiguration.
var (
	// ErrInvalidChannel is returned when an operation names a channel
	// outside the fixed public/private set. This is a programmer error
	// and should fail fast.
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrRateLimitExceeded is returned by non-blocking admission when the
	// bucket cannot cover the requested tokens immediately.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidConfig is returned when limiter parameters are out of range.
	ErrInvalidConfig = errors.New("invalid pacing configuration")
)

// RateLimitError reports a denied non-blocking admission with the wait the
// caller would have incurred. The caller can use RequiredWait to schedule a
// retry or abandon the call; no retry happens inside the limiter.
type RateLimitError struct {
	// Channel is the traffic class that denied admission.
	Channel Channel

	// Endpoint is the endpoint label supplied by the caller.
	Endpoint string

	// RequiredWait is how long the requested tokens would take to
	// accumulate at the current refill rate.
	RequiredWait time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded on %s channel (endpoint %s): retry in %s",
		e.Channel, e.Endpoint, e.RequiredWait)
}

// Unwrap returns the underlying sentinel for error matching.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}
