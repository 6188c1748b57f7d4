package tracing

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "callisto.*" namespace; HTTP attributes on
// transport spans follow OpenTelemetry semantic conventions.
const (
	// Admission attributes
	AttrChannel      = "callisto.channel"
	AttrEndpoint     = "callisto.endpoint"
	AttrPacingWaitMs = "callisto.pacing_wait_ms"

	// Transport attributes
	AttrRequestID  = "callisto.request_id"
	AttrRetryCount = "callisto.retry_count"
)

// SetPacingAttributes records the admission outcome on a span: which
// channel admitted the call, the endpoint label, and the wait imposed.
//
// Example:
//
//	SetPacingAttributes(span, "public", "ticker", 142*time.Millisecond)
func SetPacingAttributes(span trace.Span, channel, endpoint string, wait time.Duration) {
	span.SetAttributes(
		attribute.String(AttrChannel, channel),
		attribute.String(AttrEndpoint, endpoint),
		attribute.Float64(AttrPacingWaitMs, float64(wait.Microseconds())/1000.0),
	)
}

// SetRequestAttributes records transport request identity on a span.
func SetRequestAttributes(span trace.Span, requestID string, attempt int) {
	span.SetAttributes(
		attribute.String(AttrRequestID, requestID),
		attribute.Int(AttrRetryCount, attempt),
	)
}

// SetStatus sets the span status from an error. A nil error marks the span
// OK; otherwise the error is recorded and the span marked failed.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
