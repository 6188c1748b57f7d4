// Package profile loads named pacing parameter sets shared across a fleet.
//
// A profile is a small YAML document describing the limits of one upstream:
//
//	name: conservative
//	description: default venue limits, confirmed 2026-06
//	pacing:
//	  public_limit: 5
//	  private_limit: 8
//	  burst_multiplier: 1.5
//	  alert_threshold_pct: 75
//
// Profiles come from a local directory or from a git repository kept
// current with Syncer. Store indexes the documents under a directory; a
// selected profile overlays the configuration's pacing section via Apply
// before the limiter is built:
//
//	store := profile.NewStore(cfg.Profiles.Dir)
//	if err := store.Load(); err != nil {
//		return err
//	}
//	if p, ok := store.Get("conservative"); ok {
//		p.Apply(cfg)
//	}
//
// Profile documents obey the same validation rules as the configuration
// file's pacing section.
package profile
