package journal

import (
	"context"
	"time"

	"mercator-hq/callisto/pkg/pacer"
)

// DefaultListLimit is the number of violations returned when a query does not
// set its own limit.
const DefaultListLimit = 100

// ViolationEntry is a persisted record of one throttled admission.
type ViolationEntry struct {
	// ID is a unique identifier assigned when the entry is recorded.
	ID string `json:"id"`

	// Time is when the throttled acquisition began waiting.
	Time time.Time `json:"time"`

	// Channel is the admission channel that throttled.
	Channel string `json:"channel"`

	// Endpoint is the upstream endpoint the caller was pacing for.
	Endpoint string `json:"endpoint"`

	// WaitTime is how long the caller had to wait for tokens.
	WaitTime time.Duration `json:"wait_time"`
}

// SnapshotEntry is a persisted point-in-time copy of one channel's
// statistics.
type SnapshotEntry struct {
	// ID is a unique identifier assigned when the entry is recorded.
	ID string `json:"id"`

	// Time is when the snapshot was taken.
	Time time.Time `json:"time"`

	// Channel is the admission channel the snapshot describes.
	Channel string `json:"channel"`

	// Stats is the full channel snapshot.
	Stats pacer.ChannelSnapshot `json:"stats"`
}

// ViolationQuery filters ListViolations results. Zero-value fields match
// everything.
type ViolationQuery struct {
	// Channel restricts results to one admission channel.
	Channel string

	// Endpoint restricts results to one upstream endpoint.
	Endpoint string

	// Since restricts results to entries at or after this time.
	Since time.Time

	// Limit caps the number of returned entries, newest first.
	// Zero means DefaultListLimit.
	Limit int
}

// Backend defines the interface for journal persistence.
//
// Implementations must be safe for concurrent use. All methods accept a
// context for cancellation and timeout control.
type Backend interface {
	// SaveViolation persists a throttle violation entry.
	SaveViolation(ctx context.Context, entry *ViolationEntry) error

	// SaveSnapshot persists a channel statistics snapshot.
	SaveSnapshot(ctx context.Context, entry *SnapshotEntry) error

	// ListViolations returns violations matching the query, newest first.
	ListViolations(ctx context.Context, query ViolationQuery) ([]*ViolationEntry, error)

	// CountViolations returns the number of violations on a channel at or
	// after since. An empty channel counts across all channels.
	CountViolations(ctx context.Context, channel string, since time.Time) (int64, error)

	// ListSnapshots returns snapshots for a channel at or after since,
	// newest first. An empty channel matches all channels.
	ListSnapshots(ctx context.Context, channel string, since time.Time, limit int) ([]*SnapshotEntry, error)

	// Prune removes entries older than the cutoff from both the violation
	// and snapshot tables and reports how many were deleted.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}
