// Package server provides the operational HTTP server: metrics, health
// probes, version info, and pacing statistics.
//
// This server never carries upstream traffic. It is a read-mostly side
// channel so operators, probes, and the callisto stats command can see
// what the pacer is doing in a running process.
//
// # Basic Usage
//
// Creating and starting the server:
//
//	import (
//	    "context"
//	    "mercator-hq/callisto/pkg/config"
//	    "mercator-hq/callisto/pkg/pacer"
//	    "mercator-hq/callisto/pkg/server"
//	)
//
//	limiter, _ := pacer.New(pacer.Config{PublicLimit: 10, PrivateLimit: 20})
//
//	srv, err := server.New(cfg.Server, server.Options{
//	    Limiter: limiter,
//	    Checker: checker,
//	    Metrics: collector.Handler(),
//	    Version: version,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Blocks until ctx is cancelled or Shutdown is called.
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Routes
//
//   - GET /metrics - Prometheus exposition (when a handler is wired)
//   - GET /healthz - Liveness probe (always 200 while the process runs)
//   - GET /readyz - Readiness probe (runs registered component checks)
//   - GET /version - Build version, commit, build time, Go version
//   - GET /stats - Snapshot of every channel's pacing statistics
//   - GET /stats/{channel} - One channel ("public" or "private")
//   - POST /stats/reset - Zero all counters and violation history
//
// # Graceful Shutdown
//
// Start blocks until its context is cancelled, the listener fails, or
// Shutdown is called from another goroutine. Either path drains active
// connections for up to server.shutdown_timeout before forcing closure.
//
// # Thread Safety
//
// All server operations are safe for concurrent use.
package server
