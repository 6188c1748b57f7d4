// Package config provides configuration management for Callisto.
//
// This package handles loading and validating configuration from YAML files
// with environment variable overrides, and watching the configuration file
// for changes so pacing settings can be reloaded without a restart.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.Load("callisto.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadWithEnvOverrides("callisto.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CALLISTO_SECTION_FIELD.
// For example:
//
//   - CALLISTO_PACING_PUBLIC_LIMIT overrides pacing.public_limit
//   - CALLISTO_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CALLISTO_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// There is no global configuration instance. The loaded Config is passed
// explicitly to each component that needs it.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation
// errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - pacing.public_limit: public limit must be greater than zero
//	  - journal.backend: unknown backend "postgres" (must be "memory" or "sqlite")
//
// # Hot Reload
//
// When pacing.watch is enabled, a Watcher monitors the configuration file
// and re-applies the pacing section on change. Invalid files are rejected
// and the running configuration is kept.
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	pacing:
//	  public_limit: 10
//	  private_limit: 15
//	  burst_multiplier: 2.0
//
//	journal:
//	  enabled: true
//	  backend: "sqlite"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "text"
package config
