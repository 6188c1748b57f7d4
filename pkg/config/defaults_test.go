package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Pacing.PublicLimit != DefaultPacingPublicLimit {
		t.Errorf("expected public limit %v, got %v", DefaultPacingPublicLimit, cfg.Pacing.PublicLimit)
	}
	if cfg.Pacing.PrivateLimit != DefaultPacingPrivateLimit {
		t.Errorf("expected private limit %v, got %v", DefaultPacingPrivateLimit, cfg.Pacing.PrivateLimit)
	}
	if cfg.Pacing.BurstMultiplier != DefaultPacingBurstMultiplier {
		t.Errorf("expected burst multiplier %v, got %v", DefaultPacingBurstMultiplier, cfg.Pacing.BurstMultiplier)
	}
	if cfg.Transport.Timeout != DefaultTransportTimeout {
		t.Errorf("expected transport timeout %v, got %v", DefaultTransportTimeout, cfg.Transport.Timeout)
	}
	if cfg.Transport.UserAgent != DefaultTransportUserAgent {
		t.Errorf("expected user agent %q, got %q", DefaultTransportUserAgent, cfg.Transport.UserAgent)
	}
	if cfg.Journal.Backend != DefaultJournalBackend {
		t.Errorf("expected journal backend %q, got %q", DefaultJournalBackend, cfg.Journal.Backend)
	}
	if cfg.Journal.Retention.Schedule != DefaultJournalRetentionCron {
		t.Errorf("expected retention schedule %q, got %q", DefaultJournalRetentionCron, cfg.Journal.Retention.Schedule)
	}
	if cfg.Profiles.Source != DefaultProfilesSource {
		t.Errorf("expected profiles source %q, got %q", DefaultProfilesSource, cfg.Profiles.Source)
	}
	if cfg.Server.ListenAddress != DefaultServerListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultServerListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != DefaultLoggingLevel {
		t.Errorf("expected logging level %q, got %q", DefaultLoggingLevel, cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Metrics.Path != DefaultMetricsPath {
		t.Errorf("expected metrics path %q, got %q", DefaultMetricsPath, cfg.Telemetry.Metrics.Path)
	}
	if cfg.Telemetry.Tracing.Sampler != DefaultTracingSampler {
		t.Errorf("expected sampler %q, got %q", DefaultTracingSampler, cfg.Telemetry.Tracing.Sampler)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		Pacing: PacingConfig{
			PublicLimit:     3,
			PrivateLimit:    7,
			BurstMultiplier: 1.5,
		},
		Journal: JournalConfig{
			Backend: "sqlite",
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{Level: "debug", Format: "json"},
		},
	}
	ApplyDefaults(&cfg)

	if cfg.Pacing.PublicLimit != 3 {
		t.Errorf("public limit overwritten: got %v", cfg.Pacing.PublicLimit)
	}
	if cfg.Pacing.BurstMultiplier != 1.5 {
		t.Errorf("burst multiplier overwritten: got %v", cfg.Pacing.BurstMultiplier)
	}
	if cfg.Journal.Backend != "sqlite" {
		t.Errorf("journal backend overwritten: got %q", cfg.Journal.Backend)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("logging level overwritten: got %q", cfg.Telemetry.Logging.Level)
	}

	// Untouched fields still receive defaults
	if cfg.Journal.SQLite.Path != DefaultJournalSQLitePath {
		t.Errorf("expected default sqlite path, got %q", cfg.Journal.SQLite.Path)
	}
	if cfg.Server.ShutdownTimeout != DefaultServerShutdownTimeout {
		t.Errorf("expected default shutdown timeout, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	first := cfg

	ApplyDefaults(&cfg)
	if cfg != first {
		t.Error("second ApplyDefaults call changed the configuration")
	}
}

func TestNewDefault_IsValid(t *testing.T) {
	cfg := NewDefault()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default configuration failed validation: %v", err)
	}

	if !cfg.Journal.Enabled {
		t.Error("expected journal enabled by default")
	}
	if !cfg.Server.Enabled {
		t.Error("expected server enabled by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
	if !cfg.Telemetry.Tracing.Insecure {
		t.Error("expected insecure tracing transport by default")
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("expected tracing disabled by default")
	}
	if cfg.Journal.SnapshotInterval != time.Minute {
		t.Errorf("expected snapshot interval 1m, got %v", cfg.Journal.SnapshotInterval)
	}
}
