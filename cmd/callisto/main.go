// Callisto is a pre-emptive client-side pacing daemon for upstream APIs.
//
// It spends a token budget before every upstream call instead of reacting
// to 429 responses after the fact, providing:
//   - Independent token buckets for the public and private channels
//   - A paced HTTP client that waits for admission before each attempt
//   - A violation journal with SQLite or in-memory persistence
//   - Named pacing profiles loaded from a directory or a git repository
//   - Pacing statistics, health probes, and Prometheus metrics over HTTP
//
// Usage:
//
//	# Start the daemon with default configuration
//	callisto run
//
//	# Start with custom configuration file
//	callisto run --config /path/to/callisto.yaml
//
//	# Start with a named pacing profile
//	callisto run --profile conservative
//
//	# Validate configuration and profiles
//	callisto validate
//
//	# Query a running daemon for pacing statistics
//	callisto stats --channel public
//
//	# Sync the profile cache from git
//	callisto profiles sync
//
// For complete documentation, see: https://github.com/mercator-hq/callisto
package main

func main() {
	Execute()
}
