package profile

import (
	"fmt"
	"strings"

	"mercator-hq/callisto/pkg/config"
)

// Profile is a named pacing parameter set. Fleets publish profiles for the
// venues they call so every deployment paces against the same upstream
// limits instead of each operator guessing.
type Profile struct {
	// Name identifies the profile. It must be unique within a store and is
	// the value passed to run --profile.
	Name string `yaml:"name"`

	// Description is free-form operator documentation, typically the venue
	// and the date the limits were confirmed.
	Description string `yaml:"description"`

	// Pacing is the parameter set applied over the configuration's pacing
	// section when the profile is selected.
	Pacing Pacing `yaml:"pacing"`

	// Source is the file the profile was loaded from. Filled by the store,
	// not the document.
	Source string `yaml:"-"`
}

// Pacing mirrors the pacing section of the configuration file. Limits are
// required; burst multiplier and alert threshold fall back to the
// configuration defaults when omitted.
type Pacing struct {
	PublicLimit       float64 `yaml:"public_limit"`
	PrivateLimit      float64 `yaml:"private_limit"`
	BurstMultiplier   float64 `yaml:"burst_multiplier"`
	AlertThresholdPct float64 `yaml:"alert_threshold_pct"`
}

// Validate checks the profile against the same rules as the configuration
// file's pacing section. Omitted burst multiplier and alert threshold are
// defaulted first; omitted limits fail validation.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if strings.ContainsAny(p.Name, " \t/\\") {
		return fmt.Errorf("profile name %q must not contain spaces or path separators", p.Name)
	}

	if err := config.ValidatePacing(p.pacingConfig()); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return nil
}

// Apply overlays the profile's parameters onto the configuration's pacing
// section. Fields outside the pacing section are untouched, including the
// watch flag.
func (p *Profile) Apply(cfg *config.Config) {
	pacing := p.pacingConfig()
	cfg.Pacing.PublicLimit = pacing.PublicLimit
	cfg.Pacing.PrivateLimit = pacing.PrivateLimit
	cfg.Pacing.BurstMultiplier = pacing.BurstMultiplier
	cfg.Pacing.AlertThresholdPct = pacing.AlertThresholdPct
}

// pacingConfig converts the profile's pacing block into a config pacing
// section with defaults filled for the optional fields.
func (p *Profile) pacingConfig() *config.PacingConfig {
	cfg := &config.PacingConfig{
		PublicLimit:       p.Pacing.PublicLimit,
		PrivateLimit:      p.Pacing.PrivateLimit,
		BurstMultiplier:   p.Pacing.BurstMultiplier,
		AlertThresholdPct: p.Pacing.AlertThresholdPct,
	}
	if cfg.BurstMultiplier == 0 {
		cfg.BurstMultiplier = config.DefaultPacingBurstMultiplier
	}
	if cfg.AlertThresholdPct == 0 {
		cfg.AlertThresholdPct = config.DefaultPacingAlertThreshold
	}
	return cfg
}
