// Package telemetry groups Callisto's observability packages.
//
// # Components
//
//   - logging: slog construction and context-scoped fields
//   - metrics: Prometheus collector polling limiter state
//   - tracing: OpenTelemetry spans for outbound calls
//   - health: liveness/readiness probes and version endpoint
//
// Each subpackage is wired independently at startup; there is no umbrella
// constructor. A typical daemon builds the logger first, then hands it to
// the collector, tracer, and checker alongside the limiter:
//
//	logger, err := logging.New(cfg.Telemetry.Logging)
//	collector := metrics.NewCollector(limiter, collectorCfg, logger)
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, version)
//	checker := health.New(5 * time.Second)
package telemetry
