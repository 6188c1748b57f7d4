package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Booleans that default to true are seeded before unmarshal so an
	// explicit false in the file is preserved.
	cfg := baseConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CALLISTO_SECTION_FIELD (e.g., CALLISTO_PACING_PUBLIC_LIMIT).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// baseConfig returns a zero configuration with the boolean fields whose
// default is true already set.
func baseConfig() *Config {
	return &Config{
		Journal: JournalConfig{Enabled: DefaultJournalEnabled},
		Server:  ServerConfig{Enabled: DefaultServerEnabled},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{Insecure: DefaultTracingInsecure},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format CALLISTO_SECTION_FIELD.
// Values that fail to parse are ignored and the file value is kept.
func applyEnvOverrides(cfg *Config) {
	// Pacing overrides
	if val := os.Getenv("CALLISTO_PACING_PUBLIC_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Pacing.PublicLimit = f
		}
	}
	if val := os.Getenv("CALLISTO_PACING_PRIVATE_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Pacing.PrivateLimit = f
		}
	}
	if val := os.Getenv("CALLISTO_PACING_BURST_MULTIPLIER"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Pacing.BurstMultiplier = f
		}
	}
	if val := os.Getenv("CALLISTO_PACING_ALERT_THRESHOLD_PCT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Pacing.AlertThresholdPct = f
		}
	}
	if val := os.Getenv("CALLISTO_PACING_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Pacing.Watch = b
		}
	}

	// Transport overrides
	if val := os.Getenv("CALLISTO_TRANSPORT_PUBLIC_BASE_URL"); val != "" {
		cfg.Transport.PublicBaseURL = val
	}
	if val := os.Getenv("CALLISTO_TRANSPORT_PRIVATE_BASE_URL"); val != "" {
		cfg.Transport.PrivateBaseURL = val
	}
	if val := os.Getenv("CALLISTO_TRANSPORT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Transport.Timeout = d
		}
	}
	if val := os.Getenv("CALLISTO_TRANSPORT_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Transport.MaxRetries = i
		}
	}

	// Journal overrides
	if val := os.Getenv("CALLISTO_JOURNAL_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Journal.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_JOURNAL_BACKEND"); val != "" {
		cfg.Journal.Backend = val
	}
	if val := os.Getenv("CALLISTO_JOURNAL_SQLITE_PATH"); val != "" {
		cfg.Journal.SQLite.Path = val
	}

	// Profile overrides
	if val := os.Getenv("CALLISTO_PROFILES_SOURCE"); val != "" {
		cfg.Profiles.Source = val
	}
	if val := os.Getenv("CALLISTO_PROFILES_NAME"); val != "" {
		cfg.Profiles.Name = val
	}
	if val := os.Getenv("CALLISTO_PROFILES_DIR"); val != "" {
		cfg.Profiles.Dir = val
	}
	if val := os.Getenv("CALLISTO_PROFILES_GIT_URL"); val != "" {
		cfg.Profiles.Git.URL = val
	}
	if val := os.Getenv("CALLISTO_PROFILES_GIT_REF"); val != "" {
		cfg.Profiles.Git.Ref = val
	}

	// Server overrides
	if val := os.Getenv("CALLISTO_SERVER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}

	// Telemetry overrides
	if val := os.Getenv("CALLISTO_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("CALLISTO_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}
