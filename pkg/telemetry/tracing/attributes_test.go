package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpan runs fn inside a recorded span and returns the finished span.
func recordSpan(t *testing.T, fn func(span trace.Span)) sdktrace.ReadOnlySpan {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	_, span := provider.Tracer("test").Start(context.Background(), "op")
	fn(span)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 recorded span, got %d", len(spans))
	}
	return spans[0]
}

func findAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSetPacingAttributes(t *testing.T) {
	span := recordSpan(t, func(span trace.Span) {
		SetPacingAttributes(span, "public", "ticker", 142*time.Millisecond)
	})

	attrs := span.Attributes()

	if v, ok := findAttr(attrs, AttrChannel); !ok || v.AsString() != "public" {
		t.Errorf("expected channel attribute 'public', got %v", v)
	}
	if v, ok := findAttr(attrs, AttrEndpoint); !ok || v.AsString() != "ticker" {
		t.Errorf("expected endpoint attribute 'ticker', got %v", v)
	}
	if v, ok := findAttr(attrs, AttrPacingWaitMs); !ok || v.AsFloat64() != 142.0 {
		t.Errorf("expected wait attribute 142, got %v", v)
	}
}

func TestSetRequestAttributes(t *testing.T) {
	span := recordSpan(t, func(span trace.Span) {
		SetRequestAttributes(span, "req-abc", 2)
	})

	attrs := span.Attributes()

	if v, ok := findAttr(attrs, AttrRequestID); !ok || v.AsString() != "req-abc" {
		t.Errorf("expected request id attribute, got %v", v)
	}
	if v, ok := findAttr(attrs, AttrRetryCount); !ok || v.AsInt64() != 2 {
		t.Errorf("expected retry count 2, got %v", v)
	}
}

func TestSetStatus(t *testing.T) {
	okSpan := recordSpan(t, func(span trace.Span) {
		SetStatus(span, nil)
	})
	if okSpan.Status().Code != codes.Ok {
		t.Errorf("expected OK status, got %v", okSpan.Status().Code)
	}

	errSpan := recordSpan(t, func(span trace.Span) {
		SetStatus(span, errors.New("upstream unreachable"))
	})
	if errSpan.Status().Code != codes.Error {
		t.Errorf("expected Error status, got %v", errSpan.Status().Code)
	}
	if errSpan.Status().Description != "upstream unreachable" {
		t.Errorf("expected error description, got %q", errSpan.Status().Description)
	}
	if len(errSpan.Events()) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestInject(t *testing.T) {
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	headers := make(http.Header)
	Inject(ctx, headers)

	if headers.Get("traceparent") == "" {
		t.Error("expected traceparent header to be injected")
	}

	// Round trip through Extract
	extracted := Extract(context.Background(), headers)
	if TraceID(extracted) != TraceID(ctx) {
		t.Error("expected extracted context to carry the same trace ID")
	}
}
