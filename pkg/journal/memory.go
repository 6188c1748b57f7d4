package journal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryBackend implements Backend using in-memory storage.
// This is the default backend and provides fast access with no persistence.
// All data is lost when the process exits.
//
// MemoryBackend is thread-safe and supports concurrent access using
// sync.RWMutex. Both entry kinds are bounded; the oldest entries are evicted
// once the cap is reached.
type MemoryBackend struct {
	// violations holds entries in insertion order, oldest first.
	violations []*ViolationEntry

	// snapshots holds entries in insertion order, oldest first.
	snapshots []*SnapshotEntry

	// mu protects both slices.
	mu sync.RWMutex

	// maxEntries bounds each slice independently.
	maxEntries int
}

// MemoryBackendConfig configures the memory backend.
type MemoryBackendConfig struct {
	// MaxEntries is the maximum number of entries kept per kind.
	// Oldest entries are evicted when this limit is reached.
	// Default: 10,000
	MaxEntries int
}

// NewMemoryBackend creates a new in-memory journal backend with default
// settings.
func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithConfig(MemoryBackendConfig{MaxEntries: 10000})
}

// NewMemoryBackendWithConfig creates a new in-memory backend with custom
// configuration.
func NewMemoryBackendWithConfig(cfg MemoryBackendConfig) *MemoryBackend {
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 10000
	}

	return &MemoryBackend{
		maxEntries: cfg.MaxEntries,
	}
}

// SaveViolation persists a throttle violation entry.
func (m *MemoryBackend) SaveViolation(ctx context.Context, entry *ViolationEntry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if entry.Channel == "" {
		return fmt.Errorf("channel cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.violations) >= m.maxEntries {
		m.violations = m.violations[1:]
	}
	m.violations = append(m.violations, entry)

	return nil
}

// SaveSnapshot persists a channel statistics snapshot.
func (m *MemoryBackend) SaveSnapshot(ctx context.Context, entry *SnapshotEntry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if entry.Channel == "" {
		return fmt.Errorf("channel cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.snapshots) >= m.maxEntries {
		m.snapshots = m.snapshots[1:]
	}
	m.snapshots = append(m.snapshots, entry)

	return nil
}

// ListViolations returns violations matching the query, newest first.
func (m *MemoryBackend) ListViolations(ctx context.Context, query ViolationQuery) ([]*ViolationEntry, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*ViolationEntry
	for i := len(m.violations) - 1; i >= 0 && len(matched) < limit; i-- {
		entry := m.violations[i]
		if query.Channel != "" && entry.Channel != query.Channel {
			continue
		}
		if query.Endpoint != "" && entry.Endpoint != query.Endpoint {
			continue
		}
		if !query.Since.IsZero() && entry.Time.Before(query.Since) {
			continue
		}
		matched = append(matched, entry)
	}

	return matched, nil
}

// CountViolations returns the number of violations on a channel at or after
// since.
func (m *MemoryBackend) CountViolations(ctx context.Context, channel string, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, entry := range m.violations {
		if channel != "" && entry.Channel != channel {
			continue
		}
		if !since.IsZero() && entry.Time.Before(since) {
			continue
		}
		count++
	}

	return count, nil
}

// ListSnapshots returns snapshots for a channel at or after since, newest
// first.
func (m *MemoryBackend) ListSnapshots(ctx context.Context, channel string, since time.Time, limit int) ([]*SnapshotEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*SnapshotEntry
	for i := len(m.snapshots) - 1; i >= 0 && len(matched) < limit; i-- {
		entry := m.snapshots[i]
		if channel != "" && entry.Channel != channel {
			continue
		}
		if !since.IsZero() && entry.Time.Before(since) {
			continue
		}
		matched = append(matched, entry)
	}

	return matched, nil
}

// Prune removes entries older than the cutoff.
func (m *MemoryBackend) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64

	kept := m.violations[:0]
	for _, entry := range m.violations {
		if entry.Time.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	m.violations = kept

	keptSnaps := m.snapshots[:0]
	for _, entry := range m.snapshots {
		if entry.Time.Before(olderThan) {
			deleted++
			continue
		}
		keptSnaps = append(keptSnaps, entry)
	}
	m.snapshots = keptSnaps

	return deleted, nil
}

// Close releases any resources held by the backend.
func (m *MemoryBackend) Close() error {
	return nil
}

// Size returns the current number of stored violations and snapshots.
// This is useful for monitoring and testing.
func (m *MemoryBackend) Size() (violations, snapshots int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.violations), len(m.snapshots)
}
