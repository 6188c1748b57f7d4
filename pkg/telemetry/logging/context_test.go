package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"mercator-hq/callisto/pkg/config"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if got := GetRequestID(ctx); got != "" {
		t.Errorf("expected empty request ID on fresh context, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithChannel(ctx, "private")
	ctx = WithEndpoint(ctx, "balance")

	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
	if got := GetChannel(ctx); got != "private" {
		t.Errorf("expected private, got %q", got)
	}
	if got := GetEndpoint(ctx); got != "balance" {
		t.Errorf("expected balance, got %q", got)
	}
}

func TestFromContext_AttachesFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewWithWriter(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithRequestID(context.Background(), "req-456")
	ctx = WithEndpoint(ctx, "ticker")

	FromContext(ctx, base).Info("request sent")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-456") {
		t.Errorf("expected request_id field in output:\n%s", out)
	}
	if !strings.Contains(out, "endpoint=ticker") {
		t.Errorf("expected endpoint field in output:\n%s", out)
	}
}

func TestFromContext_EmptyContextReturnsBase(t *testing.T) {
	base := Discard()
	if got := FromContext(context.Background(), base); got != base {
		t.Error("expected base logger unchanged for empty context")
	}
}

func TestExtractContextFields_SkipsEmpty(t *testing.T) {
	ctx := WithChannel(context.Background(), "public")

	fields := extractContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 elements, got %d: %v", len(fields), fields)
	}
	if fields[0] != "channel" || fields[1] != "public" {
		t.Errorf("unexpected fields: %v", fields)
	}
}
