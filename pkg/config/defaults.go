package config

import "time"

// Default values for configuration fields.
const (
	// Pacing defaults
	DefaultPacingPublicLimit     = 10.0
	DefaultPacingPrivateLimit    = 15.0
	DefaultPacingBurstMultiplier = 2.0
	DefaultPacingAlertThreshold  = 80.0

	// Transport defaults
	DefaultTransportTimeout            = 30 * time.Second
	DefaultTransportMaxRetries         = 3
	DefaultTransportRetryBackoff       = 500 * time.Millisecond
	DefaultTransportUserAgent          = "callisto"
	DefaultTransportUnhealthyThreshold = 5

	// Journal defaults
	DefaultJournalEnabled          = true
	DefaultJournalBackend          = "memory"
	DefaultJournalBufferSize       = 1000
	DefaultJournalSnapshotInterval = time.Minute
	DefaultJournalSQLitePath       = "./data/journal.db"
	DefaultJournalSQLiteBusyWait   = 5 * time.Second
	DefaultJournalRetentionMaxAge  = 7 * 24 * time.Hour
	DefaultJournalRetentionCron    = "0 3 * * *"

	// Profile defaults
	DefaultProfilesSource      = "none"
	DefaultProfilesDir         = "./profiles"
	DefaultProfilesGitRef      = "main"
	DefaultProfilesGitPath     = "profiles"
	DefaultProfilesGitCacheDir = "./data/profiles"

	// Server defaults
	DefaultServerEnabled         = true
	DefaultServerListenAddress   = "127.0.0.1:9180"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Second
	DefaultServerIdleTimeout     = 60 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "text"
	DefaultMetricsEnabled      = true
	DefaultMetricsPath         = "/metrics"
	DefaultMetricsPollInterval = 10 * time.Second
	DefaultTracingSampler      = "ratio"
	DefaultTracingSampleRatio  = 0.1
	DefaultTracingServiceName  = "callisto"
	DefaultTracingInsecure     = true
	DefaultTracingTimeout      = 10 * time.Second
)

// ApplyDefaults fills in default values for any configuration field still at
// its zero value. It is idempotent and safe to call on a partially populated
// configuration.
//
// Boolean fields are not touched here: a zero-value bool is indistinguishable
// from an explicit false. Load seeds the booleans that default to true before
// parsing the file, so an explicit false in the file survives.
func ApplyDefaults(cfg *Config) {
	// Pacing defaults
	if cfg.Pacing.PublicLimit == 0 {
		cfg.Pacing.PublicLimit = DefaultPacingPublicLimit
	}
	if cfg.Pacing.PrivateLimit == 0 {
		cfg.Pacing.PrivateLimit = DefaultPacingPrivateLimit
	}
	if cfg.Pacing.BurstMultiplier == 0 {
		cfg.Pacing.BurstMultiplier = DefaultPacingBurstMultiplier
	}
	if cfg.Pacing.AlertThresholdPct == 0 {
		cfg.Pacing.AlertThresholdPct = DefaultPacingAlertThreshold
	}

	// Transport defaults
	if cfg.Transport.Timeout == 0 {
		cfg.Transport.Timeout = DefaultTransportTimeout
	}
	if cfg.Transport.MaxRetries == 0 {
		cfg.Transport.MaxRetries = DefaultTransportMaxRetries
	}
	if cfg.Transport.RetryBackoff == 0 {
		cfg.Transport.RetryBackoff = DefaultTransportRetryBackoff
	}
	if cfg.Transport.UserAgent == "" {
		cfg.Transport.UserAgent = DefaultTransportUserAgent
	}
	if cfg.Transport.UnhealthyThreshold == 0 {
		cfg.Transport.UnhealthyThreshold = DefaultTransportUnhealthyThreshold
	}

	// Journal defaults
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = DefaultJournalBackend
	}
	if cfg.Journal.BufferSize == 0 {
		cfg.Journal.BufferSize = DefaultJournalBufferSize
	}
	if cfg.Journal.SnapshotInterval == 0 {
		cfg.Journal.SnapshotInterval = DefaultJournalSnapshotInterval
	}
	if cfg.Journal.SQLite.Path == "" {
		cfg.Journal.SQLite.Path = DefaultJournalSQLitePath
	}
	if cfg.Journal.SQLite.BusyTimeout == 0 {
		cfg.Journal.SQLite.BusyTimeout = DefaultJournalSQLiteBusyWait
	}
	if cfg.Journal.Retention.MaxAge == 0 {
		cfg.Journal.Retention.MaxAge = DefaultJournalRetentionMaxAge
	}
	if cfg.Journal.Retention.Schedule == "" {
		cfg.Journal.Retention.Schedule = DefaultJournalRetentionCron
	}

	// Profile defaults
	if cfg.Profiles.Source == "" {
		cfg.Profiles.Source = DefaultProfilesSource
	}
	if cfg.Profiles.Dir == "" {
		cfg.Profiles.Dir = DefaultProfilesDir
	}
	if cfg.Profiles.Git.Ref == "" {
		cfg.Profiles.Git.Ref = DefaultProfilesGitRef
	}
	if cfg.Profiles.Git.Path == "" {
		cfg.Profiles.Git.Path = DefaultProfilesGitPath
	}
	if cfg.Profiles.Git.CacheDir == "" {
		cfg.Profiles.Git.CacheDir = DefaultProfilesGitCacheDir
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultServerListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultServerIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.PollInterval == 0 {
		cfg.Telemetry.Metrics.PollInterval = DefaultMetricsPollInterval
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
}

// NewDefault returns a configuration populated entirely with defaults,
// including the boolean fields that default to true. Callers building a
// configuration programmatically should start from this and override fields
// as needed.
func NewDefault() *Config {
	cfg := baseConfig()
	ApplyDefaults(cfg)
	return cfg
}
