package journal

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/pacer"
)

// RecorderConfig contains configuration for the violation recorder.
type RecorderConfig struct {
	// BufferSize is the size of the async write channel buffer.
	// Default: 1000
	BufferSize int

	// WriteTimeout is the timeout for writing an entry to the backend.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		BufferSize:   1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder persists throttle violations asynchronously. It implements
// pacer.ViolationSink: Record enqueues and returns immediately so admission
// is never slowed by journal writes. When the buffer is full the entry is
// dropped and counted.
type Recorder struct {
	backend Backend
	config  *RecorderConfig

	entryCh chan *ViolationEntry
	wg      sync.WaitGroup
	done    chan struct{}
	dropped atomic.Int64
	logger  *slog.Logger
}

var _ pacer.ViolationSink = (*Recorder)(nil)

// NewRecorder creates a violation recorder writing to the given backend and
// starts its background worker.
func NewRecorder(backend Backend, config *RecorderConfig, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		backend: backend,
		config:  config,
		entryCh: make(chan *ViolationEntry, config.BufferSize),
		done:    make(chan struct{}),
		logger:  logger.With("component", "journal.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("violation recorder started",
		"buffer_size", config.BufferSize,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record enqueues a violation for async persistence. It never blocks: when
// the buffer is full or the recorder is shutting down the entry is dropped.
func (r *Recorder) Record(v pacer.ViolationRecord) {
	entry := &ViolationEntry{
		ID:       uuid.New().String(),
		Time:     v.Time,
		Channel:  string(v.Channel),
		Endpoint: v.Endpoint,
		WaitTime: v.WaitTime,
	}

	select {
	case r.entryCh <- entry:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.logger.Warn("violation buffer full, dropping entries",
				"dropped_total", n,
				"buffer_size", r.config.BufferSize,
			)
		}
	}
}

// Dropped returns the number of violations dropped because the buffer was
// full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close gracefully shuts down the recorder by draining the async channel and
// waiting for pending writes to complete.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()

	r.logger.Info("violation recorder stopped", "dropped_total", r.dropped.Load())
	return nil
}

// worker drains the entry channel and writes entries to the backend.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case entry := <-r.entryCh:
			r.writeEntry(entry)

		case <-r.done:
			// Drain remaining entries before exit
			for {
				select {
				case entry := <-r.entryCh:
					r.writeEntry(entry)
				default:
					return
				}
			}
		}
	}
}

// writeEntry writes a single entry to the backend.
func (r *Recorder) writeEntry(entry *ViolationEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if err := r.backend.SaveViolation(ctx, entry); err != nil {
		r.logger.Error("failed to persist violation",
			"entry_id", entry.ID,
			"channel", entry.Channel,
			"error", err,
		)
		return
	}

	r.logger.Debug("violation persisted",
		"entry_id", entry.ID,
		"channel", entry.Channel,
		"endpoint", entry.Endpoint,
		"wait_ms", entry.WaitTime.Milliseconds(),
	)

	if duration := time.Since(start); duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow journal write",
			"entry_id", entry.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
