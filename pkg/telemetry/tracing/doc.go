// Package tracing initializes OpenTelemetry tracing for outbound call
// spans.
//
// # Overview
//
// New builds a Tracer from the telemetry.tracing config section: an OTLP
// gRPC exporter behind a batcher, a ParentBased sampler (always, never, or
// trace-ID ratio), and W3C Trace Context propagation. With tracing
// disabled the returned Tracer is a noop and every call site stays
// unchanged.
//
// # Spans
//
// The transport opens one span per upstream call and records the admission
// outcome on it with the callisto.* attributes:
//
//	ctx, span := tracer.Start(ctx, "transport.call")
//	defer span.End()
//
//	wait, err := limiter.AcquireN(channel, endpoint, cost)
//	tracing.SetPacingAttributes(span, string(channel), endpoint, wait)
//	...
//	tracing.SetStatus(span, err)
//
// # Propagation
//
// Inject writes traceparent/tracestate headers on outbound requests so the
// upstream can join the trace; TraceID correlates log lines with exported
// spans.
package tracing
