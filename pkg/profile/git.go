package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"mercator-hq/callisto/pkg/config"
)

// syncTimeout bounds a single clone or pull.
const syncTimeout = 60 * time.Second

// SyncResult reports what a Sync call did.
type SyncResult struct {
	// Cloned is true when the repository was cloned fresh rather than
	// pulled.
	Cloned bool

	// FromSHA is the HEAD before the pull. Empty on a fresh clone.
	FromSHA string

	// ToSHA is the HEAD after the sync.
	ToSHA string

	// HadChanges reports whether the checkout moved.
	HadChanges bool
}

// CommitInfo describes the checkout's HEAD commit.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Syncer keeps a local checkout of a profile repository current. The
// checkout lives in the configured cache directory and survives restarts;
// the first Sync clones, later calls pull the pinned branch.
type Syncer struct {
	cfg config.GitConfig

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewSyncer creates a syncer for the given git source. No network activity
// happens until Sync is called.
func NewSyncer(cfg config.GitConfig) (*Syncer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("profile repository URL cannot be empty")
	}
	if cfg.Ref == "" {
		return nil, fmt.Errorf("profile repository ref cannot be empty")
	}
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("profile cache directory cannot be empty")
	}

	return &Syncer{cfg: cfg}, nil
}

// ProfileDir returns the directory inside the checkout holding profile
// documents. Point a Store at it after a successful Sync.
func (s *Syncer) ProfileDir() string {
	return filepath.Join(s.cfg.CacheDir, s.cfg.Path)
}

// Sync brings the local checkout up to date with the remote. A missing
// checkout is cloned, an existing one is opened and pulled. Safe for
// concurrent use.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	if s.repo == nil {
		if _, err := os.Stat(filepath.Join(s.cfg.CacheDir, ".git")); err == nil {
			repo, err := gogit.PlainOpen(s.cfg.CacheDir)
			if err != nil {
				return nil, fmt.Errorf("failed to open cached checkout: %w", err)
			}
			s.repo = repo
		}
	}

	if s.repo == nil {
		return s.clone(ctx)
	}
	return s.pull(ctx)
}

// clone performs the initial checkout of the pinned branch.
func (s *Syncer) clone(ctx context.Context) (*SyncResult, error) {
	if err := os.MkdirAll(s.cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	auth, err := s.auth()
	if err != nil {
		return nil, err
	}

	repo, err := gogit.PlainCloneContext(ctx, s.cfg.CacheDir, false, &gogit.CloneOptions{
		URL:           s.cfg.URL,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Ref),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone profile repository: %w", err)
	}
	s.repo = repo

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD after clone: %w", err)
	}

	return &SyncResult{
		Cloned:     true,
		ToSHA:      head.Hash().String(),
		HadChanges: true,
	}, nil
}

// pull fast-forwards the existing checkout.
func (s *Syncer) pull(ctx context.Context) (*SyncResult, error) {
	head, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD: %w", err)
	}
	fromSHA := head.Hash().String()

	worktree, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	auth, err := s.auth()
	if err != nil {
		return nil, err
	}

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName: "origin",
		Force:      false,
		Auth:       auth,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("failed to pull profile repository: %w", err)
	}

	newHead, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD after pull: %w", err)
	}
	toSHA := newHead.Hash().String()

	return &SyncResult{
		FromSHA:    fromSHA,
		ToSHA:      toSHA,
		HadChanges: fromSHA != toSHA,
	}, nil
}

// Head returns metadata about the checkout's current HEAD commit.
func (s *Syncer) Head() (*CommitInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, fmt.Errorf("profile repository not synced yet")
	}

	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD: %w", err)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD commit: %w", err)
	}

	return &CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
	}, nil
}

// auth resolves the access token named by token_env. A configured name
// whose variable is unset is an error so a missing secret fails loudly
// instead of silently falling back to anonymous access.
func (s *Syncer) auth() (transport.AuthMethod, error) {
	if s.cfg.TokenEnv == "" {
		return nil, nil
	}

	token := os.Getenv(s.cfg.TokenEnv)
	if token == "" {
		return nil, fmt.Errorf("environment variable %s named by profiles.git.token_env is not set", s.cfg.TokenEnv)
	}

	// Username is arbitrary for token auth.
	return &githttp.BasicAuth{Username: "git", Password: token}, nil
}
