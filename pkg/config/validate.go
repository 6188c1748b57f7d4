package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "pacing.public_limit").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validatePacing(&cfg.Pacing)...)
	errs = append(errs, validateTransport(&cfg.Transport)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateProfiles(&cfg.Profiles)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// ValidatePacing validates a pacing section in isolation. Profile documents
// reuse it so a profile obeys the same rules as the file's pacing section.
func ValidatePacing(cfg *PacingConfig) error {
	if errs := validatePacing(cfg); len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validatePacing validates pacing configuration.
func validatePacing(cfg *PacingConfig) []FieldError {
	var errs []FieldError

	if cfg.PublicLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "pacing.public_limit",
			Message: "public limit must be greater than zero",
		})
	}
	if cfg.PrivateLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "pacing.private_limit",
			Message: "private limit must be greater than zero",
		})
	}
	if cfg.BurstMultiplier < 1 {
		errs = append(errs, FieldError{
			Field:   "pacing.burst_multiplier",
			Message: "burst multiplier must be at least 1",
		})
	}
	if cfg.AlertThresholdPct <= 0 || cfg.AlertThresholdPct > 100 {
		errs = append(errs, FieldError{
			Field:   "pacing.alert_threshold_pct",
			Message: "alert threshold must be between 0 and 100",
		})
	}

	return errs
}

// validateTransport validates transport configuration.
func validateTransport(cfg *TransportConfig) []FieldError {
	var errs []FieldError

	// Base URLs are optional; when the transport is unused they stay empty.
	errs = append(errs, validateBaseURL("transport.public_base_url", cfg.PublicBaseURL)...)
	errs = append(errs, validateBaseURL("transport.private_base_url", cfg.PrivateBaseURL)...)

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "transport.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "transport.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if cfg.RetryBackoff <= 0 {
		errs = append(errs, FieldError{
			Field:   "transport.retry_backoff",
			Message: "retry backoff must be positive",
		})
	}
	if cfg.UnhealthyThreshold < 1 {
		errs = append(errs, FieldError{
			Field:   "transport.unhealthy_threshold",
			Message: "unhealthy threshold must be at least 1",
		})
	}

	return errs
}

// validateBaseURL checks that a base URL, when set, parses and uses an
// http or https scheme.
func validateBaseURL(field, raw string) []FieldError {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("invalid URL format: %v", err),
		}}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("unsupported URL scheme %q (must be http or https)", u.Scheme),
		}}
	}
	if u.Host == "" {
		return []FieldError{{
			Field:   field,
			Message: "URL must include a host",
		}}
	}

	return nil
}

// validateJournal validates journal configuration.
func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "journal.backend",
			Message: fmt.Sprintf("unknown backend %q (must be \"memory\" or \"sqlite\")", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "journal.sqlite.path",
			Message: "path is required for the sqlite backend",
		})
	}
	if cfg.BufferSize < 1 {
		errs = append(errs, FieldError{
			Field:   "journal.buffer_size",
			Message: "buffer size must be at least 1",
		})
	}
	if cfg.SnapshotInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.snapshot_interval",
			Message: "snapshot interval must be non-negative",
		})
	}
	if cfg.Retention.MaxAge <= 0 {
		errs = append(errs, FieldError{
			Field:   "journal.retention.max_age",
			Message: "retention max age must be positive",
		})
	}
	if cfg.Retention.Schedule == "" {
		errs = append(errs, FieldError{
			Field:   "journal.retention.schedule",
			Message: "retention schedule is required",
		})
	}

	return errs
}

// validateProfiles validates profile configuration.
func validateProfiles(cfg *ProfilesConfig) []FieldError {
	var errs []FieldError

	switch cfg.Source {
	case "none", "dir", "git":
	default:
		errs = append(errs, FieldError{
			Field:   "profiles.source",
			Message: fmt.Sprintf("unknown source %q (must be \"none\", \"dir\", or \"git\")", cfg.Source),
		})
	}

	if cfg.Source == "dir" && cfg.Dir == "" {
		errs = append(errs, FieldError{
			Field:   "profiles.dir",
			Message: "dir is required when source is \"dir\"",
		})
	}
	if cfg.Source == "git" && cfg.Git.URL == "" {
		errs = append(errs, FieldError{
			Field:   "profiles.git.url",
			Message: "url is required when source is \"git\"",
		})
	}
	if cfg.Name != "" && cfg.Source == "none" {
		errs = append(errs, FieldError{
			Field:   "profiles.name",
			Message: "a profile name requires a source of \"dir\" or \"git\"",
		})
	}

	return errs
}

// validateServer validates operational server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with \"/\"",
		})
	}
	if cfg.Metrics.PollInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.poll_interval",
			Message: "poll interval must be positive",
		})
	}

	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("unknown sampler %q (must be always, never, or ratio)", cfg.Tracing.Sampler),
		})
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}

	return errs
}
