package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage pacing profiles",
	Long: `Manage the pacing profiles the daemon can apply over its configuration.

Profiles come from the source named in the config file: a local directory
(profiles.source: dir) or a git repository (profiles.source: git). The git
source keeps a local checkout in the configured cache directory; sync it
with "callisto profiles sync".`,
}

var profilesListFlags = struct {
	output string
}{}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available pacing profiles",
	Long: `List the pacing profiles available from the configured source.

The git source is read from its local cache without touching the network;
run "callisto profiles sync" first to fetch or update the cache.

Examples:
  callisto profiles list
  callisto profiles list --output json`,
	RunE: listProfiles,
}

var profilesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the profile cache from the configured git repository",
	Long: `Clone or update the local checkout of the profile git repository.

The first sync clones the pinned branch into the cache directory; later
syncs pull it. Requires profiles.source to be "git" in the config file.

Examples:
  callisto profiles sync
  callisto profiles sync --config /etc/callisto/callisto.yaml`,
	RunE: syncProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesSyncCmd)

	profilesListCmd.Flags().StringVarP(&profilesListFlags.output, "output", "o", "text", "output format (text or json)")
}

func listProfiles(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(profilesListFlags.output)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	store, err := openStore(cfg)
	if err != nil {
		if store == nil {
			return cli.NewConfigError("profiles", err.Error())
		}
		// Broken documents are reported but don't hide the good ones.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(os.Stdout, store.List())
	}

	profiles := store.List()
	if len(profiles) == 0 {
		fmt.Printf("No profiles found in %s\n", store.Dir())
		return nil
	}

	fmt.Printf("%d profiles in %s:\n\n", len(profiles), store.Dir())
	for _, p := range profiles {
		fmt.Printf("  %-20s public %g rps, private %g rps, burst x%g\n",
			p.Name, p.Pacing.PublicLimit, p.Pacing.PrivateLimit, p.Pacing.BurstMultiplier)
		if p.Description != "" {
			fmt.Printf("  %-20s %s\n", "", p.Description)
		}
	}
	return nil
}

func syncProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if cfg.Profiles.Source != "git" {
		return cli.NewConfigError("profiles.source",
			fmt.Sprintf("profiles sync needs a git source, config has %q", cfg.Profiles.Source))
	}

	syncer, err := profile.NewSyncer(cfg.Profiles.Git)
	if err != nil {
		return cli.NewConfigError("profiles.git", err.Error())
	}

	ctx := cli.SetupSignalHandler()
	result, err := syncer.Sync(ctx)
	if err != nil {
		return cli.NewCommandError("profiles sync", err)
	}

	switch {
	case result.Cloned:
		fmt.Printf("✓ Cloned %s at %s\n", cfg.Profiles.Git.URL, shortSHA(result.ToSHA))
	case result.HadChanges:
		fmt.Printf("✓ Updated to %s (was %s)\n", shortSHA(result.ToSHA), shortSHA(result.FromSHA))
	default:
		fmt.Printf("✓ Already up to date at %s\n", shortSHA(result.ToSHA))
	}

	if head, err := syncer.Head(); err == nil {
		msg := head.Message
		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}
		fmt.Printf("  %s  %s  %s\n", head.Timestamp.Format("2006-01-02 15:04"), head.Author, msg)
	}

	store := profile.NewStore(syncer.ProfileDir())
	if err := store.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	fmt.Printf("✓ %d profiles available in %s\n", store.Len(), syncer.ProfileDir())
	return nil
}

// openStore loads the profile store from local state only: the configured
// directory, or the git cache without syncing it first.
func openStore(cfg *config.Config) (*profile.Store, error) {
	var dir string
	switch cfg.Profiles.Source {
	case "dir":
		dir = cfg.Profiles.Dir
	case "git":
		dir = filepath.Join(cfg.Profiles.Git.CacheDir, cfg.Profiles.Git.Path)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil, fmt.Errorf("profile cache %s not found, run \"callisto profiles sync\" first", dir)
		}
	case "", "none":
		return nil, fmt.Errorf("no profile source configured (profiles.source is %q)", cfg.Profiles.Source)
	default:
		return nil, fmt.Errorf("unknown profiles source %q", cfg.Profiles.Source)
	}

	store := profile.NewStore(dir)
	err := store.Load()
	return store, err
}

// syncAndOpenStore loads the profile store for startup use, syncing the git
// cache first so the daemon paces against the current profile set.
func syncAndOpenStore(ctx context.Context, cfg *config.Config) (*profile.Store, error) {
	if cfg.Profiles.Source == "git" {
		syncer, err := profile.NewSyncer(cfg.Profiles.Git)
		if err != nil {
			return nil, err
		}
		if _, err := syncer.Sync(ctx); err != nil {
			return nil, err
		}
	}
	return openStore(cfg)
}

// applyProfile overlays the named profile onto the configuration's pacing
// section. Documents that fail to load are tolerated as long as the named
// profile is intact.
func applyProfile(ctx context.Context, cfg *config.Config, name string, logger *slog.Logger) (*profile.Profile, error) {
	store, err := syncAndOpenStore(ctx, cfg)
	if err != nil {
		if store == nil {
			return nil, err
		}
		logger.Warn("some profile documents failed to load", "error", err)
	}

	p, ok := store.Get(name)
	if !ok {
		names := store.Names()
		if len(names) == 0 {
			return nil, fmt.Errorf("profile %q not found in %s", name, store.Dir())
		}
		return nil, fmt.Errorf("profile %q not found in %s (available: %s)",
			name, store.Dir(), strings.Join(names, ", "))
	}

	p.Apply(cfg)
	return p, nil
}

// shortSHA abbreviates a commit hash for display.
func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
