package pacer

import "time"

// defaultEndpoint labels calls that did not supply an endpoint.
const defaultEndpoint = "unknown"

// violationRingSize bounds the per-channel violation history.
const violationRingSize = 100

// violationWindow is the lookback for the recent_violations snapshot field.
const violationWindow = 60 * time.Second

// ViolationRecord describes one throttled admission: a call that had to
// wait for the bucket to refill before it could proceed.
type ViolationRecord struct {
	// Time is when the violation was observed.
	Time time.Time `json:"time"`

	// Channel is the traffic class that throttled the call.
	Channel Channel `json:"channel"`

	// Endpoint is the endpoint label supplied by the caller.
	Endpoint string `json:"endpoint"`

	// WaitTime is how long the caller had to wait.
	WaitTime time.Duration `json:"wait_time"`
}

// counters accumulates admission outcomes for one channel or one endpoint
// label. All mutation happens under the owning Limiter's mutex.
type counters struct {
	totalRequests   int64
	blockedRequests int64
	throttleEvents  int64
	totalWait       time.Duration
	maxWait         time.Duration
}

// record folds one admission outcome into the counters.
func (c *counters) record(wait time.Duration) {
	c.totalRequests++
	if wait > 0 {
		c.blockedRequests++
		c.throttleEvents++
		c.totalWait += wait
		if wait > c.maxWait {
			c.maxWait = wait
		}
	}
}

// utilizationPct returns the share of requests that were throttled,
// as a percentage. Zero when nothing has been recorded yet.
func (c *counters) utilizationPct() float64 {
	if c.totalRequests == 0 {
		return 0
	}
	return float64(c.blockedRequests) / float64(c.totalRequests) * 100
}

// waitMillis returns the cumulative, maximum, and average wait in
// milliseconds. Average is zero when no request was blocked.
func (c *counters) waitMillis() (total, max, avg float64) {
	total = float64(c.totalWait) / float64(time.Millisecond)
	max = float64(c.maxWait) / float64(time.Millisecond)
	if c.blockedRequests > 0 {
		avg = total / float64(c.blockedRequests)
	}
	return total, max, avg
}

// violationRing is a fixed-capacity history of recent violations.
// The oldest entry is overwritten once the ring is full.
type violationRing struct {
	records [violationRingSize]ViolationRecord
	next    int
	count   int
}

// add appends a record, evicting the oldest when full.
func (r *violationRing) add(v ViolationRecord) {
	r.records[r.next] = v
	r.next = (r.next + 1) % violationRingSize
	if r.count < violationRingSize {
		r.count++
	}
}

// countSince returns how many recorded violations are newer than cutoff.
func (r *violationRing) countSince(cutoff time.Time) int {
	n := 0
	for i := 0; i < r.count; i++ {
		if r.records[i].Time.After(cutoff) {
			n++
		}
	}
	return n
}

// reset drops all recorded violations.
func (r *violationRing) reset() {
	r.next = 0
	r.count = 0
}

// ChannelSnapshot is a point-in-time view of one channel's admission
// statistics together with its bucket state.
type ChannelSnapshot struct {
	// Channel is the traffic class this snapshot describes.
	Channel Channel `json:"channel"`

	// TotalRequests is the number of admissions recorded on the channel.
	TotalRequests int64 `json:"total_requests"`

	// BlockedRequests is how many admissions incurred a nonzero wait.
	BlockedRequests int64 `json:"blocked_requests"`

	// ThrottleEvents equals BlockedRequests in this model.
	ThrottleEvents int64 `json:"throttle_events"`

	// UtilizationPct is BlockedRequests / TotalRequests * 100.
	UtilizationPct float64 `json:"utilization_pct"`

	// Wait accounting, in milliseconds.
	TotalWaitTimeMs float64 `json:"total_wait_time_ms"`
	MaxWaitTimeMs   float64 `json:"max_wait_time_ms"`
	AvgWaitTimeMs   float64 `json:"avg_wait_time_ms"`

	// Bucket state at snapshot time.
	CurrentTokens float64 `json:"current_tokens"`
	Capacity      float64 `json:"capacity"`
	RefillRate    float64 `json:"refill_rate"`

	// RecentViolations counts violations in the last 60 seconds.
	RecentViolations int `json:"recent_violations"`
}

// EndpointSnapshot mirrors the counter fields of ChannelSnapshot for a
// single endpoint label, aggregated across whichever channels the endpoint
// was recorded under. Endpoints have no bucket of their own.
type EndpointSnapshot struct {
	Endpoint        string  `json:"endpoint"`
	TotalRequests   int64   `json:"total_requests"`
	BlockedRequests int64   `json:"blocked_requests"`
	ThrottleEvents  int64   `json:"throttle_events"`
	UtilizationPct  float64 `json:"utilization_pct"`
	TotalWaitTimeMs float64 `json:"total_wait_time_ms"`
	MaxWaitTimeMs   float64 `json:"max_wait_time_ms"`
	AvgWaitTimeMs   float64 `json:"avg_wait_time_ms"`
}

// Snapshot bundles every channel's snapshot, keyed by channel name.
type Snapshot struct {
	// Taken is when the snapshot was assembled.
	Taken time.Time `json:"taken"`

	// Channels maps each channel to its snapshot.
	Channels map[Channel]ChannelSnapshot `json:"channels"`
}
