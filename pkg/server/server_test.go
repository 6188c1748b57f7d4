package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/pacer"
	"mercator-hq/callisto/pkg/telemetry/health"
	"mercator-hq/callisto/pkg/telemetry/logging"
)

func newTestLimiter(t *testing.T) *pacer.Limiter {
	t.Helper()

	limiter, err := pacer.New(pacer.Config{
		PublicLimit:  100,
		PrivateLimit: 100,
		Logger:       logging.Discard(),
	})
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	return limiter
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()

	if opts.Limiter == nil {
		opts.Limiter = newTestLimiter(t)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	cfg := config.NewDefault().Server
	cfg.ListenAddress = "127.0.0.1:0"

	srv, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func waitRunning(t *testing.T, s *Server) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.IsRunning() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server did not start in time")
}

func TestNew_RequiresLimiter(t *testing.T) {
	_, err := New(config.NewDefault().Server, Options{})
	if err == nil {
		t.Error("New() without a limiter should error")
	}
}

func TestRoutes_Healthz(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var status health.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Status != health.StatusOK {
		t.Errorf("status = %q, want %q", status.Status, health.StatusOK)
	}
}

func TestRoutes_ReadyzDegraded(t *testing.T) {
	checker := health.New(time.Second)
	checker.RegisterCheck("journal", func(ctx context.Context) error {
		return fmt.Errorf("database is closed")
	})

	srv := newTestServer(t, Options{Checker: checker})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var status health.Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Checks["journal"].Message != "database is closed" {
		t.Errorf("check message = %q, want the check error", status.Checks["journal"].Message)
	}
}

func TestRoutes_Version(t *testing.T) {
	srv := newTestServer(t, Options{
		Version:   "1.2.3",
		Commit:    "abc123",
		BuildTime: "2026-08-20T00:00:00Z",
	})

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var info health.VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if info.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", info.Version)
	}
	if info.GoVersion == "" {
		t.Error("go_version is empty")
	}
}

func TestRoutes_StatsAll(t *testing.T) {
	limiter := newTestLimiter(t)
	if _, err := limiter.Acquire(pacer.ChannelPublic, "/ticker"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := limiter.Acquire(pacer.ChannelPublic, "/depth"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	srv := newTestServer(t, Options{Limiter: limiter})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var snapshot pacer.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	public, ok := snapshot.Channels[pacer.ChannelPublic]
	if !ok {
		t.Fatal("snapshot missing public channel")
	}
	if public.TotalRequests != 2 {
		t.Errorf("public TotalRequests = %d, want 2", public.TotalRequests)
	}
	if _, ok := snapshot.Channels[pacer.ChannelPrivate]; !ok {
		t.Error("snapshot missing private channel")
	}
	if snapshot.Taken.IsZero() {
		t.Error("snapshot timestamp is zero")
	}
}

func TestRoutes_StatsChannel(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/stats/private", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var snapshot pacer.ChannelSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if snapshot.Channel != pacer.ChannelPrivate {
		t.Errorf("channel = %q, want private", snapshot.Channel)
	}
	if snapshot.Capacity == 0 {
		t.Error("capacity missing from channel snapshot")
	}
}

func TestRoutes_StatsUnknownChannel(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/stats/vip", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRoutes_StatsMethods(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/stats", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/stats/public", http.StatusMethodNotAllowed},
		{http.MethodGet, "/stats/reset", http.StatusMethodNotAllowed},
		{http.MethodHead, "/stats", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Errorf("HEAD response has a body (%d bytes)", rec.Body.Len())
			}
		})
	}
}

func TestRoutes_StatsReset(t *testing.T) {
	limiter := newTestLimiter(t)
	if _, err := limiter.Acquire(pacer.ChannelPublic, "/ticker"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	srv := newTestServer(t, Options{Limiter: limiter})

	req := httptest.NewRequest(http.MethodPost, "/stats/reset", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	stats, err := limiter.Stats(pacer.ChannelPublic)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalRequests != 0 {
		t.Errorf("TotalRequests = %d, want 0 after reset", stats.TotalRequests)
	}
}

func TestRoutes_Metrics(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("callisto_up 1\n"))
	})

	srv := newTestServer(t, Options{Metrics: metricsHandler})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "callisto_up") {
		t.Errorf("metrics body = %q, want callisto_up", rec.Body.String())
	}
}

func TestRoutes_MetricsUnwired(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 with no metrics handler", rec.Code)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := newTestServer(t, Options{})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(context.Background())
	}()
	waitRunning(t, srv)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Start() returned %v after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Shutdown")
	}

	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}

	// Repeated shutdown is a no-op.
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestServer_ContextCancelStops(t *testing.T) {
	srv := newTestServer(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()
	waitRunning(t, srv)

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Start() returned %v after cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}

	if srv.IsRunning() {
		t.Error("IsRunning() = true after cancellation")
	}
}

func TestServer_StartTwice(t *testing.T) {
	srv := newTestServer(t, Options{})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(context.Background())
	}()
	waitRunning(t, srv)
	defer func() {
		_ = srv.Shutdown(context.Background())
		<-errChan
	}()

	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() should error while running")
	}
}

func TestServer_ListenFailure(t *testing.T) {
	// Occupy a port so the server's bind fails.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()

	cfg := config.NewDefault().Server
	cfg.ListenAddress = ln.Addr().String()

	srv, err := New(cfg, Options{
		Limiter: newTestLimiter(t),
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := srv.Start(context.Background()); err == nil {
		t.Error("Start() on an occupied port should error")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after listen failure")
	}
}
