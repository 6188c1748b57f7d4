// Package journal persists throttle violations and channel statistics
// snapshots for later analysis.
//
// # Recording Flow
//
// Violations are recorded asynchronously so admission latency never includes
// journal writes:
//
//  1. The limiter throttles an acquisition and hands the violation to the
//     Recorder (a pacer.ViolationSink)
//  2. Record assigns an ID and enqueues, returning immediately; full buffers
//     drop the entry and count it
//  3. A background worker drains the buffer and writes to the Backend
//  4. Close drains whatever remains before shutdown
//
// A Snapshotter samples the limiter's per-channel statistics on an interval
// and writes SnapshotEntry records through the same Backend.
//
// # Backends
//
// Two Backend implementations are provided:
//
//   - MemoryBackend: bounded in-memory slices, no persistence. The default.
//   - SQLiteBackend: durable single-file storage with WAL journaling.
//
// # Retention
//
// A Scheduler prunes entries older than the configured maximum age on a cron
// schedule:
//
//	sched := journal.NewScheduler(backend, cfg.Journal.Retention, logger)
//	if err := sched.Start(ctx); err != nil {
//	    return err
//	}
//	defer sched.Stop()
//
// # Basic Usage
//
//	backend, err := journal.NewSQLiteBackend("./data/journal.db")
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	rec := journal.NewRecorder(backend, nil, logger)
//	defer rec.Close()
//
//	limiter, err := pacer.New(pacer.Config{
//	    PublicLimit:  10,
//	    PrivateLimit: 15,
//	    Violations:   rec,
//	})
package journal
