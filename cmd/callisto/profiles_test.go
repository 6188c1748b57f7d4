package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/telemetry/logging"
)

func TestOpenStoreDirSource(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "conservative", 5, 2)
	writeProfile(t, dir, "aggressive", 50, 20)

	cfg := config.NewDefault()
	cfg.Profiles.Source = "dir"
	cfg.Profiles.Dir = dir

	store, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore() returned error: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestOpenStoreNoSource(t *testing.T) {
	cfg := config.NewDefault()

	store, err := openStore(cfg)
	if err == nil {
		t.Fatal("openStore() without a source should return error")
	}
	if store != nil {
		t.Error("openStore() without a source should return a nil store")
	}
}

func TestOpenStoreGitCacheMissing(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Profiles.Source = "git"
	cfg.Profiles.Git.URL = "https://example.com/profiles.git"
	cfg.Profiles.Git.CacheDir = filepath.Join(t.TempDir(), "never-synced")

	_, err := openStore(cfg)
	if err == nil {
		t.Fatal("openStore() with a missing git cache should return error")
	}
	if !strings.Contains(err.Error(), "profiles sync") {
		t.Errorf("error %q should point at the sync command", err)
	}
}

func TestOpenStoreGitCachePresent(t *testing.T) {
	cacheDir := t.TempDir()
	profileDir := filepath.Join(cacheDir, "profiles")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		t.Fatalf("failed to create cache layout: %v", err)
	}
	writeProfile(t, profileDir, "steady", 8, 4)

	cfg := config.NewDefault()
	cfg.Profiles.Source = "git"
	cfg.Profiles.Git.URL = "https://example.com/profiles.git"
	cfg.Profiles.Git.CacheDir = cacheDir

	store, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore() returned error: %v", err)
	}
	if _, ok := store.Get("steady"); !ok {
		t.Error("cached profile not loaded")
	}
}

func TestApplyProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "conservative", 5, 2)

	cfg := config.NewDefault()
	cfg.Profiles.Source = "dir"
	cfg.Profiles.Dir = dir

	p, err := applyProfile(context.Background(), cfg, "conservative", logging.Discard())
	if err != nil {
		t.Fatalf("applyProfile() returned error: %v", err)
	}
	if p.Name != "conservative" {
		t.Errorf("Name = %q, want %q", p.Name, "conservative")
	}
	if cfg.Pacing.PublicLimit != 5 {
		t.Errorf("PublicLimit = %g, want the profile's 5", cfg.Pacing.PublicLimit)
	}
	if cfg.Pacing.PrivateLimit != 2 {
		t.Errorf("PrivateLimit = %g, want the profile's 2", cfg.Pacing.PrivateLimit)
	}
}

func TestApplyProfileNotFound(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "conservative", 5, 2)

	cfg := config.NewDefault()
	cfg.Profiles.Source = "dir"
	cfg.Profiles.Dir = dir

	_, err := applyProfile(context.Background(), cfg, "reckless", logging.Discard())
	if err == nil {
		t.Fatal("applyProfile() should report the missing profile")
	}
	if !strings.Contains(err.Error(), "conservative") {
		t.Errorf("error %q should list the available profiles", err)
	}
}

func TestShortSHA(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0123456789abcdef", "01234567"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortSHA(tt.in); got != tt.want {
			t.Errorf("shortSHA(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProfilesCommandTree(t *testing.T) {
	if profilesCmd == nil {
		t.Fatal("profilesCmd is nil")
	}

	var haveList, haveSync bool
	for _, sub := range profilesCmd.Commands() {
		switch sub.Use {
		case "list":
			haveList = true
		case "sync":
			haveSync = true
		}
	}
	if !haveList {
		t.Error("profiles command is missing the list subcommand")
	}
	if !haveSync {
		t.Error("profiles command is missing the sync subcommand")
	}
}
