package pacer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultBurstMultiplier scales a channel's sustained limit into its burst
// capacity when the configuration does not set one.
const DefaultBurstMultiplier = 2.0

// DefaultAlertThreshold is the utilization percentage above which a channel
// is considered unhealthy. Used by callers of ShouldAlert that have no
// configured threshold of their own.
const DefaultAlertThreshold = 80.0

// Severity thresholds for throttle logging.
const (
	warnWaitThreshold = 1 * time.Second
	infoWaitThreshold = 100 * time.Millisecond
)

// ViolationSink receives throttle violations as they are recorded.
// Implementations must not block: Record is invoked on the admission path,
// outside the limiter's mutex.
type ViolationSink interface {
	Record(v ViolationRecord)
}

// Config holds Limiter construction parameters.
type Config struct {
	// PublicLimit is the sustained rate for the public channel in
	// requests per second. Must be > 0.
	PublicLimit float64

	// PrivateLimit is the sustained rate for the private channel in
	// requests per second. Must be > 0.
	PrivateLimit float64

	// BurstMultiplier scales each limit into the channel's burst
	// capacity. Must be >= 1 when set. Default: 2.0
	BurstMultiplier float64

	// Logger receives throttle severity logs. Default: slog.Default()
	Logger *slog.Logger

	// Violations receives throttle violations, e.g. for journaling.
	// Optional.
	Violations ViolationSink

	// Metrics publishes admission outcomes to Prometheus. Optional.
	Metrics *Metrics
}

// Limiter admits outbound API calls across the fixed public/private channel
// set, keeping each channel inside its configured rate while gathering
// per-channel and per-endpoint statistics.
//
// Every outbound call to the upstream API acquires admission first. Acquire
// blocks until the channel's bucket can cover the call; TryAcquire fails
// immediately instead of waiting. Both report the wait incurred (or
// required) so callers and telemetry can observe pacing pressure.
//
// # Concurrency
//
// A single mutex guards both buckets, all counters, and the violation
// rings. Critical sections are O(1); the only suspension point is the
// admission sleep, which always happens outside the lock so waiters on one
// channel never stall traffic on the other. Admission is correct (a
// channel's throughput never exceeds its configured rate) but not fair:
// waiters are not served in arrival order.
//
// Construct one Limiter at startup and hand it to every collaborator that
// issues rate-limited calls.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[Channel]*TokenBucket
	channels  map[Channel]*counters
	endpoints map[string]*counters
	rings     map[Channel]*violationRing

	logger     *slog.Logger
	violations ViolationSink
	metrics    *Metrics
}

// New creates a Limiter for the fixed channel set.
//
// Each channel gets a bucket with capacity = limit * BurstMultiplier and a
// refill rate equal to its limit, starting full.
func New(cfg Config) (*Limiter, error) {
	if cfg.PublicLimit <= 0 {
		return nil, fmt.Errorf("%w: public limit must be positive, got %g", ErrInvalidConfig, cfg.PublicLimit)
	}
	if cfg.PrivateLimit <= 0 {
		return nil, fmt.Errorf("%w: private limit must be positive, got %g", ErrInvalidConfig, cfg.PrivateLimit)
	}
	if cfg.BurstMultiplier == 0 {
		cfg.BurstMultiplier = DefaultBurstMultiplier
	}
	if cfg.BurstMultiplier < 1 {
		return nil, fmt.Errorf("%w: burst multiplier must be >= 1, got %g", ErrInvalidConfig, cfg.BurstMultiplier)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	l := &Limiter{
		buckets:    make(map[Channel]*TokenBucket, 2),
		channels:   make(map[Channel]*counters, 2),
		endpoints:  make(map[string]*counters),
		rings:      make(map[Channel]*violationRing, 2),
		logger:     cfg.Logger.With("component", "pacer"),
		violations: cfg.Violations,
		metrics:    cfg.Metrics,
	}

	limits := map[Channel]float64{
		ChannelPublic:  cfg.PublicLimit,
		ChannelPrivate: cfg.PrivateLimit,
	}
	for channel, limit := range limits {
		l.buckets[channel] = NewTokenBucket(limit*cfg.BurstMultiplier, limit)
		l.channels[channel] = &counters{}
		l.rings[channel] = &violationRing{}
	}

	return l, nil
}

// Acquire admits one call on the channel, blocking until the bucket can
// cover it. Returns the wait incurred. Equivalent to AcquireN with one token.
func (l *Limiter) Acquire(channel Channel, endpoint string) (time.Duration, error) {
	return l.acquire(channel, endpoint, 1, true)
}

// AcquireN admits a call costing n tokens on the channel, blocking until
// the bucket can cover it. An empty endpoint is recorded as "unknown".
//
// When the bucket is short, the required wait is computed under the lock,
// a violation is recorded, and the caller sleeps OUTSIDE the lock so
// unrelated channels and endpoints keep flowing. After the sleep the tokens
// are consumed without re-checking availability: waiters whose windows
// overlapped may wake together and briefly push effective throughput above
// the nominal rate. The bucket balance itself stays within [0, capacity]
// because every consume re-runs the refill arithmetic first.
//
// The sleep is not interruptible; there is no context or cancellation on
// the admission path. Callers needing a bound use TryAcquireN and schedule
// their own retry.
//
// Waits above 100ms log at Info, above 1s at Warn.
func (l *Limiter) AcquireN(channel Channel, endpoint string, n float64) (time.Duration, error) {
	return l.acquire(channel, endpoint, n, true)
}

// TryAcquire attempts to admit one call without blocking.
// Equivalent to TryAcquireN with one token.
func (l *Limiter) TryAcquire(channel Channel, endpoint string) (time.Duration, error) {
	return l.acquire(channel, endpoint, 1, false)
}

// TryAcquireN attempts to admit a call costing n tokens without blocking.
// If the bucket cannot cover it immediately, a *RateLimitError carrying the
// required wait is returned and NO tokens are consumed; the probe has no
// side effects beyond refill bookkeeping.
func (l *Limiter) TryAcquireN(channel Channel, endpoint string, n float64) (time.Duration, error) {
	return l.acquire(channel, endpoint, n, false)
}

func (l *Limiter) acquire(channel Channel, endpoint string, n float64, block bool) (time.Duration, error) {
	if !channel.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChannel, string(channel))
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	l.mu.Lock()
	bucket := l.buckets[channel]

	wait := bucket.TimeUntilAvailable(n)
	if wait == 0 {
		bucket.Take(n)
		l.recordLocked(channel, endpoint, 0)
		l.mu.Unlock()

		l.metrics.observeAdmission(channel, resultAdmitted, 0)
		return 0, nil
	}

	if !block {
		l.mu.Unlock()

		l.metrics.observeAdmission(channel, resultDenied, 0)
		return 0, &RateLimitError{Channel: channel, Endpoint: endpoint, RequiredWait: wait}
	}

	violation := ViolationRecord{
		Time:     time.Now(),
		Channel:  channel,
		Endpoint: endpoint,
		WaitTime: wait,
	}
	l.rings[channel].add(violation)
	l.mu.Unlock()

	l.logThrottle(channel, endpoint, wait)
	l.metrics.observeViolation(channel, endpoint)
	if l.violations != nil {
		l.violations.Record(violation)
	}

	// Sleep outside the lock so other channels and endpoints proceed.
	time.Sleep(wait)

	l.mu.Lock()
	// No availability re-check after waking; see AcquireN.
	bucket.Take(n)
	l.recordLocked(channel, endpoint, wait)
	l.mu.Unlock()

	l.metrics.observeAdmission(channel, resultThrottled, wait)
	return wait, nil
}

// CheckAvailable reports whether n tokens are available on the channel
// right now, and if not, how long until they would be. Never consumes;
// useful for advisory checks before committing to a call.
func (l *Limiter) CheckAvailable(channel Channel, n float64) (bool, time.Duration, error) {
	if !channel.Valid() {
		return false, 0, fmt.Errorf("%w: %q", ErrInvalidChannel, string(channel))
	}

	l.mu.Lock()
	wait := l.buckets[channel].TimeUntilAvailable(n)
	l.mu.Unlock()

	return wait == 0, wait, nil
}

// Stats returns the channel's snapshot: counters, bucket state, and the
// violation count over the last 60 seconds.
func (l *Limiter) Stats(channel Channel) (ChannelSnapshot, error) {
	if !channel.Valid() {
		return ChannelSnapshot{}, fmt.Errorf("%w: %q", ErrInvalidChannel, string(channel))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.channelSnapshotLocked(channel, time.Now()), nil
}

// AllStats returns every channel's snapshot taken at the same instant.
func (l *Limiter) AllStats() Snapshot {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{
		Taken:    now,
		Channels: make(map[Channel]ChannelSnapshot, len(l.buckets)),
	}
	for channel := range l.buckets {
		snap.Channels[channel] = l.channelSnapshotLocked(channel, now)
	}
	return snap
}

// EndpointStats returns the aggregate snapshot for one endpoint label,
// regardless of which channels it was recorded under. The second return is
// false when the endpoint has never been seen.
func (l *Limiter) EndpointStats(endpoint string) (EndpointSnapshot, bool) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.endpoints[endpoint]
	if !ok {
		return EndpointSnapshot{Endpoint: endpoint}, false
	}

	total, max, avg := c.waitMillis()
	return EndpointSnapshot{
		Endpoint:        endpoint,
		TotalRequests:   c.totalRequests,
		BlockedRequests: c.blockedRequests,
		ThrottleEvents:  c.throttleEvents,
		UtilizationPct:  c.utilizationPct(),
		TotalWaitTimeMs: total,
		MaxWaitTimeMs:   max,
		AvgWaitTimeMs:   avg,
	}, true
}

// ResetStats zeroes all counters, endpoint records, and violation rings.
// Bucket token balances are left untouched. Intended for test isolation
// and operational resets.
func (l *Limiter) ResetStats() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for channel := range l.channels {
		l.channels[channel] = &counters{}
		l.rings[channel].reset()
	}
	l.endpoints = make(map[string]*counters)
}

// ShouldAlert reports whether the channel's utilization (blocked share of
// total requests) exceeds thresholdPct. A pure read over Stats data.
func (l *Limiter) ShouldAlert(channel Channel, thresholdPct float64) (bool, error) {
	if !channel.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidChannel, string(channel))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.channels[channel].utilizationPct() > thresholdPct, nil
}

// Reconfigure replaces both channels' rates and the burst multiplier in
// place, preserving current token balances (clamped to the new capacities)
// and all statistics. Used by config hot reload.
func (l *Limiter) Reconfigure(publicLimit, privateLimit, burstMultiplier float64) error {
	if publicLimit <= 0 {
		return fmt.Errorf("%w: public limit must be positive, got %g", ErrInvalidConfig, publicLimit)
	}
	if privateLimit <= 0 {
		return fmt.Errorf("%w: private limit must be positive, got %g", ErrInvalidConfig, privateLimit)
	}
	if burstMultiplier == 0 {
		burstMultiplier = DefaultBurstMultiplier
	}
	if burstMultiplier < 1 {
		return fmt.Errorf("%w: burst multiplier must be >= 1, got %g", ErrInvalidConfig, burstMultiplier)
	}

	l.mu.Lock()
	l.buckets[ChannelPublic].Reconfigure(publicLimit*burstMultiplier, publicLimit)
	l.buckets[ChannelPrivate].Reconfigure(privateLimit*burstMultiplier, privateLimit)
	l.mu.Unlock()

	l.logger.Info("pacing reconfigured",
		"public_limit", publicLimit,
		"private_limit", privateLimit,
		"burst_multiplier", burstMultiplier)
	return nil
}

// channelSnapshotLocked assembles one channel's snapshot.
// Caller must hold l.mu.
func (l *Limiter) channelSnapshotLocked(channel Channel, now time.Time) ChannelSnapshot {
	bucket := l.buckets[channel]
	c := l.channels[channel]

	total, max, avg := c.waitMillis()
	return ChannelSnapshot{
		Channel:          channel,
		TotalRequests:    c.totalRequests,
		BlockedRequests:  c.blockedRequests,
		ThrottleEvents:   c.throttleEvents,
		UtilizationPct:   c.utilizationPct(),
		TotalWaitTimeMs:  total,
		MaxWaitTimeMs:    max,
		AvgWaitTimeMs:    avg,
		CurrentTokens:    bucket.Tokens(),
		Capacity:         bucket.Capacity(),
		RefillRate:       bucket.RefillRate(),
		RecentViolations: l.rings[channel].countSince(now.Add(-violationWindow)),
	}
}

// recordLocked folds an admission outcome into both the channel's and the
// endpoint's counters. Caller must hold l.mu.
func (l *Limiter) recordLocked(channel Channel, endpoint string, wait time.Duration) {
	l.channels[channel].record(wait)

	ep, ok := l.endpoints[endpoint]
	if !ok {
		ep = &counters{}
		l.endpoints[endpoint] = ep
	}
	ep.record(wait)
}

// logThrottle classifies a wait's severity and logs accordingly.
// Short waits (<= 100ms) stay silent.
func (l *Limiter) logThrottle(channel Channel, endpoint string, wait time.Duration) {
	switch {
	case wait > warnWaitThreshold:
		l.logger.Warn("admission throttled",
			"channel", channel,
			"endpoint", endpoint,
			"wait", wait)
	case wait > infoWaitThreshold:
		l.logger.Info("admission throttled",
			"channel", channel,
			"endpoint", endpoint,
			"wait", wait)
	}
}
