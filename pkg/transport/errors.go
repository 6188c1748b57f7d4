package transport

import (
	"fmt"
	"net/http"
	"time"

	"mercator-hq/callisto/pkg/pacer"
)

// UpstreamError represents a non-retryable or retries-exhausted upstream
// failure. It includes the HTTP status code when one was received.
type UpstreamError struct {
	// Channel is the channel the request was paced on.
	Channel pacer.Channel

	// Endpoint is the upstream path that failed.
	Endpoint string

	// StatusCode is the HTTP status code (0 if the failure happened before
	// a response arrived).
	StatusCode int

	// Message is the response body or failure description.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %s %s error (status %d): %s", e.Channel, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream %s %s error: %s", e.Channel, e.Endpoint, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// AuthError represents an upstream authentication failure (HTTP 401 or
// 403). Never retried: the credentials will not improve on a second try.
type AuthError struct {
	// Channel is the channel the request was paced on.
	Channel pacer.Channel

	// Endpoint is the upstream path that rejected the request.
	Endpoint string

	// Message is the response body from the upstream.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream %s %s authentication failed: %s", e.Channel, e.Endpoint, e.Message)
}

// RateLimitError represents an upstream HTTP 429. Callisto paces requests
// so this indicates the configured limits are above what the upstream
// actually allows. Never retried; the caller should lower the channel
// limits.
type RateLimitError struct {
	// Channel is the channel the request was paced on.
	Channel pacer.Channel

	// Endpoint is the upstream path that was limited.
	Endpoint string

	// RetryAfter is the upstream's advertised wait, when provided.
	RetryAfter time.Duration

	// Message is the response body from the upstream.
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream %s %s rate limited despite pacing (retry after %s): %s",
			e.Channel, e.Endpoint, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("upstream %s %s rate limited despite pacing: %s", e.Channel, e.Endpoint, e.Message)
}

// TimeoutError represents a request that exceeded its deadline.
type TimeoutError struct {
	// Channel is the channel the request was paced on.
	Channel pacer.Channel

	// Endpoint is the upstream path that timed out.
	Endpoint string

	// Timeout is the configured per-request timeout.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream %s %s request timeout after %s", e.Channel, e.Endpoint, e.Timeout)
}

// parseRetryAfter parses a Retry-After header value. Both delay-seconds
// and HTTP-date formats are supported.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
