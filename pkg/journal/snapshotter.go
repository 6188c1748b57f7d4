package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/pacer"
)

// Snapshotter periodically copies per-channel limiter statistics into the
// journal so utilization can be analyzed after the fact.
type Snapshotter struct {
	limiter  *pacer.Limiter
	backend  Backend
	interval time.Duration
	logger   *slog.Logger

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewSnapshotter creates a snapshotter sampling the limiter every interval.
func NewSnapshotter(limiter *pacer.Limiter, backend Backend, interval time.Duration, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Snapshotter{
		limiter:  limiter,
		backend:  backend,
		interval: interval,
		logger:   logger.With("component", "journal.snapshotter"),
		done:     make(chan struct{}),
	}
}

// Start launches the background sampling loop. A zero or negative interval
// disables sampling.
func (s *Snapshotter) Start() {
	if s.interval <= 0 {
		s.logger.Info("snapshot interval not configured, skipping snapshotter")
		return
	}

	s.wg.Add(1)
	go s.run()

	s.logger.Info("stats snapshotter started", "interval", s.interval)
}

// Stop stops the sampling loop. It is safe to call more than once.
func (s *Snapshotter) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Snapshotter) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sample()
		case <-s.done:
			return
		}
	}
}

// sample writes one snapshot entry per channel.
func (s *Snapshotter) sample() {
	snap := s.limiter.AllStats()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for channel, stats := range snap.Channels {
		entry := &SnapshotEntry{
			ID:      uuid.New().String(),
			Time:    snap.Taken,
			Channel: string(channel),
			Stats:   stats,
		}

		if err := s.backend.SaveSnapshot(ctx, entry); err != nil {
			s.logger.Error("failed to persist stats snapshot",
				"channel", channel,
				"error", err,
			)
		}
	}
}
