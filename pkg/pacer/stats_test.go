package pacer

import (
	"testing"
	"time"
)

// ============================================================================
// Counter Tests
// ============================================================================

func TestCounters_Record(t *testing.T) {
	c := &counters{}

	c.record(0)
	c.record(0)
	c.record(50 * time.Millisecond)
	c.record(200 * time.Millisecond)

	if c.totalRequests != 4 {
		t.Errorf("Expected 4 total, got %d", c.totalRequests)
	}
	if c.blockedRequests != 2 {
		t.Errorf("Expected 2 blocked, got %d", c.blockedRequests)
	}
	if c.throttleEvents != 2 {
		t.Errorf("Expected 2 throttle events, got %d", c.throttleEvents)
	}
	if c.totalWait != 250*time.Millisecond {
		t.Errorf("Expected 250ms total wait, got %v", c.totalWait)
	}
	if c.maxWait != 200*time.Millisecond {
		t.Errorf("Expected 200ms max wait, got %v", c.maxWait)
	}
}

func TestCounters_UtilizationPct(t *testing.T) {
	c := &counters{}

	// No requests yet: zero, not NaN
	if got := c.utilizationPct(); got != 0 {
		t.Errorf("Expected 0 utilization, got %f", got)
	}

	c.record(0)
	c.record(10 * time.Millisecond)

	if got := c.utilizationPct(); got != 50 {
		t.Errorf("Expected 50%% utilization, got %f", got)
	}
}

func TestCounters_WaitMillis(t *testing.T) {
	c := &counters{}

	// No blocked requests: average stays zero
	_, _, avg := c.waitMillis()
	if avg != 0 {
		t.Errorf("Expected zero average, got %f", avg)
	}

	c.record(100 * time.Millisecond)
	c.record(300 * time.Millisecond)

	total, max, avg := c.waitMillis()
	if total != 400 {
		t.Errorf("Expected 400ms total, got %f", total)
	}
	if max != 300 {
		t.Errorf("Expected 300ms max, got %f", max)
	}
	if avg != 200 {
		t.Errorf("Expected 200ms average, got %f", avg)
	}
}

// ============================================================================
// Violation Ring Tests
// ============================================================================

func TestViolationRing_CapsAtSize(t *testing.T) {
	r := &violationRing{}
	now := time.Now()

	for i := 0; i < 150; i++ {
		r.add(ViolationRecord{Time: now, Channel: ChannelPublic, Endpoint: "ticker"})
	}

	if r.count != violationRingSize {
		t.Errorf("Expected ring capped at %d, got %d", violationRingSize, r.count)
	}
}

func TestViolationRing_CountSince(t *testing.T) {
	r := &violationRing{}
	now := time.Now()

	// Three old entries, two recent ones
	for i := 0; i < 3; i++ {
		r.add(ViolationRecord{Time: now.Add(-2 * time.Minute)})
	}
	for i := 0; i < 2; i++ {
		r.add(ViolationRecord{Time: now.Add(-10 * time.Second)})
	}

	if got := r.countSince(now.Add(-time.Minute)); got != 2 {
		t.Errorf("Expected 2 recent violations, got %d", got)
	}
	if got := r.countSince(now.Add(-3 * time.Minute)); got != 5 {
		t.Errorf("Expected all 5 violations, got %d", got)
	}
}

func TestViolationRing_EvictsOldest(t *testing.T) {
	r := &violationRing{}
	now := time.Now()

	// Fill with old entries, then overwrite the whole ring with recent ones
	for i := 0; i < violationRingSize; i++ {
		r.add(ViolationRecord{Time: now.Add(-time.Hour)})
	}
	for i := 0; i < violationRingSize; i++ {
		r.add(ViolationRecord{Time: now})
	}

	if got := r.countSince(now.Add(-time.Minute)); got != violationRingSize {
		t.Errorf("Expected every slot recent after wraparound, got %d", got)
	}
}

func TestViolationRing_Reset(t *testing.T) {
	r := &violationRing{}
	now := time.Now()

	r.add(ViolationRecord{Time: now})
	r.add(ViolationRecord{Time: now})
	r.reset()

	if r.count != 0 {
		t.Errorf("Expected empty ring after reset, got %d", r.count)
	}
	if got := r.countSince(now.Add(-time.Minute)); got != 0 {
		t.Errorf("Expected no violations after reset, got %d", got)
	}
}
