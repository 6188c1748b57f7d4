package main

import (
	"log/slog"
	"strings"
	"sync"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/pacer"
	"mercator-hq/callisto/pkg/profile"
)

// reloader applies configuration file changes to a running daemon. Only the
// pacing limits can change live; every other section is reported as needing
// a restart. An invalid file is rejected and the running configuration
// stays active.
type reloader struct {
	path    string
	limiter *pacer.Limiter
	profile *profile.Profile
	logger  *slog.Logger

	mu      sync.Mutex
	current *config.Config
}

func newReloader(path string, cfg *config.Config, active *profile.Profile, limiter *pacer.Limiter, logger *slog.Logger) *reloader {
	return &reloader{
		path:    path,
		limiter: limiter,
		profile: active,
		logger:  logger.With("component", "reload"),
		current: cfg,
	}
}

// reload is the watcher callback. It re-reads the file, re-applies the
// active profile, and reconfigures the limiter when the pacing limits
// moved.
func (r *reloader) reload() error {
	next, err := config.LoadWithEnvOverrides(r.path)
	if err != nil {
		r.logger.Error("rejecting configuration change", "error", err)
		return err
	}

	// An active profile keeps overriding the file's pacing section, the
	// same way it did at startup.
	if r.profile != nil {
		r.profile.Apply(next)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sections := restartSections(r.current, next); len(sections) > 0 {
		r.logger.Info("configuration sections changed that only apply after a restart",
			"sections", strings.Join(sections, ", "))
	}

	if !pacingChanged(r.current.Pacing, next.Pacing) {
		r.current = next
		return nil
	}

	prev := r.current.Pacing
	if err := r.limiter.Reconfigure(next.Pacing.PublicLimit, next.Pacing.PrivateLimit, next.Pacing.BurstMultiplier); err != nil {
		r.logger.Error("rejecting pacing change", "error", err)
		return err
	}
	r.current = next

	r.logger.Info("pacing reconfigured",
		"public_limit", next.Pacing.PublicLimit,
		"private_limit", next.Pacing.PrivateLimit,
		"burst_multiplier", next.Pacing.BurstMultiplier,
		"previous_public_limit", prev.PublicLimit,
		"previous_private_limit", prev.PrivateLimit,
		"previous_burst_multiplier", prev.BurstMultiplier)
	return nil
}

// pacingChanged reports whether the fields the limiter can take live
// differ. The alert threshold and the watch toggle need a restart and are
// handled by restartSections.
func pacingChanged(a, b config.PacingConfig) bool {
	return a.PublicLimit != b.PublicLimit ||
		a.PrivateLimit != b.PrivateLimit ||
		a.BurstMultiplier != b.BurstMultiplier
}

// restartSections names the changed configuration sections a running daemon
// cannot apply live.
func restartSections(cur, next *config.Config) []string {
	var sections []string
	if next.Pacing.AlertThresholdPct != cur.Pacing.AlertThresholdPct {
		sections = append(sections, "pacing.alert_threshold_pct")
	}
	if next.Pacing.Watch != cur.Pacing.Watch {
		sections = append(sections, "pacing.watch")
	}
	if next.Transport != cur.Transport {
		sections = append(sections, "transport")
	}
	if next.Journal != cur.Journal {
		sections = append(sections, "journal")
	}
	if next.Profiles != cur.Profiles {
		sections = append(sections, "profiles")
	}
	if next.Server != cur.Server {
		sections = append(sections, "server")
	}
	if next.Telemetry != cur.Telemetry {
		sections = append(sections, "telemetry")
	}
	return sections
}
