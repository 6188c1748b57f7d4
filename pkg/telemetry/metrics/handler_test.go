package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestHandler_ServesChannelGauges(t *testing.T) {
	collector, _ := newTestCollector(t, 10)
	collector.poll()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	collector.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "callisto_channel_tokens") {
		t.Error("expected callisto_channel_tokens in exposition")
	}
	if !strings.Contains(body, `channel="public"`) {
		t.Error("expected public channel label in exposition")
	}
	if !strings.Contains(body, `channel="private"`) {
		t.Error("expected private channel label in exposition")
	}

	// The default gatherer contributes Go runtime metrics
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines from the default gatherer")
	}
}

func TestHandlerWithOptions(t *testing.T) {
	collector, _ := newTestCollector(t, 10)
	collector.poll()

	handler := collector.HandlerWithOptions(promhttp.HandlerOpts{
		MaxRequestsInFlight: 1,
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "callisto_channel_capacity") {
		t.Error("expected callisto_channel_capacity in exposition")
	}
}
