package transport

import (
	"fmt"
	"time"
)

// Health is a point-in-time view of the transport's upstream health. It is
// derived from request outcomes; there is no separate probe traffic.
type Health struct {
	// Healthy is false after UnhealthyThreshold consecutive failures.
	Healthy bool

	// ConsecutiveFailures counts sequential failed requests.
	ConsecutiveFailures int

	// LastError is the most recent failure, nil while healthy.
	LastError error

	// LastSuccess is when a request last completed successfully.
	LastSuccess time.Time

	// TotalRequests counts all requests sent.
	TotalRequests int64

	// FailedRequests counts requests that returned an error to the caller.
	FailedRequests int64
}

// Healthy reports whether the upstream is considered reachable.
func (c *Client) Healthy() bool {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health.Healthy
}

// Health returns a copy of the current health state.
func (c *Client) Health() Health {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.health
}

// CheckHealth reports the transport's health as an error, for registration
// as a readiness check.
func (c *Client) CheckHealth() error {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()

	if c.health.Healthy {
		return nil
	}
	if c.health.LastError != nil {
		return fmt.Errorf("upstream unhealthy after %d consecutive failures: %w",
			c.health.ConsecutiveFailures, c.health.LastError)
	}
	return fmt.Errorf("upstream unhealthy after %d consecutive failures", c.health.ConsecutiveFailures)
}

// recordOutcome updates health counters after a request completes. The
// unhealthy transition logs once per streak; recovery logs once.
func (c *Client) recordOutcome(success bool, err error) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()

	c.health.TotalRequests++

	if success {
		if !c.health.Healthy {
			c.logger.Info("upstream transport recovered",
				"after_failures", c.health.ConsecutiveFailures,
			)
		}
		c.health.Healthy = true
		c.health.ConsecutiveFailures = 0
		c.health.LastError = nil
		c.health.LastSuccess = time.Now()
		return
	}

	c.health.FailedRequests++
	c.health.ConsecutiveFailures++
	c.health.LastError = err

	if c.health.Healthy && c.health.ConsecutiveFailures >= c.cfg.UnhealthyThreshold {
		c.health.Healthy = false
		c.logger.Warn("upstream transport marked unhealthy",
			"consecutive_failures", c.health.ConsecutiveFailures,
			"error", err,
		)
	}
}
