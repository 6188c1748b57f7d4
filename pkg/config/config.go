package config

import "time"

// Config is the root configuration structure for Callisto.
// It contains all configuration sections for request pacing, the upstream
// transport, the violation journal, pacing profiles, the operational HTTP
// server, and telemetry.
type Config struct {
	// Pacing contains configuration for the two-channel admission limiter,
	// including per-channel request rates and burst headroom.
	Pacing PacingConfig `yaml:"pacing"`

	// Transport contains configuration for the paced HTTP client used to
	// reach the upstream API, including base URLs and retry behavior.
	Transport TransportConfig `yaml:"transport"`

	// Journal contains configuration for violation and snapshot persistence
	// including backend selection and retention settings.
	Journal JournalConfig `yaml:"journal"`

	// Profiles contains configuration for named pacing profiles loaded from
	// a local directory or a git repository.
	Profiles ProfilesConfig `yaml:"profiles"`

	// Server contains configuration for the operational HTTP server that
	// exposes stats, health, and metrics endpoints.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PacingConfig contains configuration for the admission limiter.
type PacingConfig struct {
	// PublicLimit is the sustained request rate for the public channel,
	// in requests per second. Fractional rates are allowed.
	// Default: 10
	PublicLimit float64 `yaml:"public_limit"`

	// PrivateLimit is the sustained request rate for the private channel,
	// in requests per second. Fractional rates are allowed.
	// Default: 15
	PrivateLimit float64 `yaml:"private_limit"`

	// BurstMultiplier scales each channel's bucket capacity relative to its
	// rate. A multiplier of 2.0 lets a channel absorb two seconds of traffic
	// at the sustained rate before throttling. Must be at least 1.
	// Default: 2.0
	BurstMultiplier float64 `yaml:"burst_multiplier"`

	// AlertThresholdPct is the channel utilization percentage above which
	// ShouldAlert reports true.
	// Default: 80
	AlertThresholdPct float64 `yaml:"alert_threshold_pct"`

	// Watch enables hot reload of pacing settings when the configuration
	// file changes. Only the pacing section is applied on reload.
	// Default: false
	Watch bool `yaml:"watch"`
}

// TransportConfig contains configuration for the paced upstream HTTP client.
type TransportConfig struct {
	// PublicBaseURL is the base URL for public (unauthenticated) endpoints.
	// Example: "https://api.example.com/public"
	PublicBaseURL string `yaml:"public_base_url"`

	// PrivateBaseURL is the base URL for private (authenticated) endpoints.
	// Example: "https://api.example.com/private"
	PrivateBaseURL string `yaml:"private_base_url"`

	// Timeout is the per-request timeout, covering connection, request,
	// and response body.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries after a retryable upstream
	// failure (5xx status or transport error). Zero disables retries.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the base delay between retries. The delay doubles
	// after each attempt.
	// Default: 500ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// UserAgent is the User-Agent header sent with upstream requests.
	// Default: "callisto"
	UserAgent string `yaml:"user_agent"`

	// UnhealthyThreshold is the number of consecutive upstream failures
	// after which the transport reports itself unhealthy.
	// Default: 5
	UnhealthyThreshold int `yaml:"unhealthy_threshold"`
}

// JournalConfig contains configuration for violation and snapshot persistence.
type JournalConfig struct {
	// Enabled controls whether throttle violations and periodic stats
	// snapshots are persisted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the persistence backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// BufferSize is the size of the asynchronous write buffer. Writes are
	// dropped when the buffer is full rather than blocking admission.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// SnapshotInterval is how often channel statistics are snapshotted to
	// the journal. Zero disables periodic snapshots.
	// Default: 1m
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`

	// SQLite contains SQLite backend specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains journal retention configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite backend configuration.
type SQLiteConfig struct {
	// Path is the filesystem path to the SQLite database file.
	// Default: "./data/journal.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long a write waits for a locked database before
	// failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains journal retention configuration.
type RetentionConfig struct {
	// MaxAge is how long journal records are kept before pruning.
	// Default: 168h (7 days)
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is the cron expression for the prune job, in standard
	// five-field cron syntax.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`
}

// ProfilesConfig contains configuration for named pacing profiles.
type ProfilesConfig struct {
	// Source selects where profiles are loaded from.
	// Options: "none", "dir", "git"
	// Default: "none"
	Source string `yaml:"source"`

	// Name is the profile to apply at startup. Empty means the pacing
	// section of this file is used as-is.
	Name string `yaml:"name"`

	// Dir is the directory containing profile YAML documents when Source
	// is "dir".
	// Default: "./profiles"
	Dir string `yaml:"dir"`

	// Git contains git source specific configuration.
	Git GitConfig `yaml:"git"`
}

// GitConfig contains configuration for git-sourced pacing profiles.
type GitConfig struct {
	// URL is the clone URL of the repository holding profile documents.
	// Example: "https://github.com/example/pacing-profiles.git"
	URL string `yaml:"url"`

	// Ref is the branch to sync.
	// Default: "main"
	Ref string `yaml:"ref"`

	// Path is the directory inside the repository containing profile
	// documents.
	// Default: "profiles"
	Path string `yaml:"path"`

	// TokenEnv names the environment variable holding an access token for
	// private repositories. Empty means anonymous access.
	TokenEnv string `yaml:"token_env"`

	// CacheDir is the local checkout directory.
	// Default: "./data/profiles"
	CacheDir string `yaml:"cache_dir"`
}

// ServerConfig contains configuration for the operational HTTP server.
type ServerConfig struct {
	// Enabled controls whether the operational server is started.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:9180").
	// Default: "127.0.0.1:9180"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether Prometheus metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// PollInterval is how often limiter gauges (token balances, utilization)
	// are sampled.
	// Default: 10s
	PollInterval time.Duration `yaml:"poll_interval"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1 (10%)
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name attached to exported spans.
	// Default: "callisto"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
