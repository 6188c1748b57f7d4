// Package health implements the liveness and readiness probes for the ops
// server.
//
// # Overview
//
// A Checker holds named component checks registered at wiring time. The
// liveness probe (/healthz) only confirms the process is alive; the
// readiness probe (/readyz) runs every registered check concurrently and
// answers 503 while any component is unhealthy. The /version endpoint
// reports build metadata injected through ldflags.
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("pacer", func(ctx context.Context) error {
//		_, err := limiter.Stats(pacer.ChannelPublic)
//		return err
//	})
//	checker.RegisterCheck("journal", func(ctx context.Context) error {
//		_, err := backend.CountViolations(ctx, "", time.Time{})
//		return err
//	})
//
//	mux.HandleFunc("/healthz", checker.LivenessHandler())
//	mux.HandleFunc("/readyz", checker.ReadinessHandler())
//	mux.HandleFunc("/version", health.VersionHandler(version, commit, buildTime))
package health
