// Package logging builds the structured loggers used across Callisto.
//
// # Overview
//
// The logging package configures Go's standard log/slog package:
//   - JSON or logfmt-style text output
//   - Configurable log levels (debug, info, warn, error)
//   - Context-aware field extraction for request IDs, channels, and endpoints
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging)
//	if err != nil {
//	    return err
//	}
//
//	logger.Info("admission throttled",
//	    "channel", "public",
//	    "endpoint", "ticker",
//	    "wait_ms", 142,
//	)
//
//	// Carry request metadata through a context
//	ctx = logging.WithRequestID(ctx, "4f3a...")
//	logging.FromContext(ctx, logger).Info("request sent")
//
// Components receive their logger explicitly, usually narrowed with
// logger.With("component", name).
package logging
