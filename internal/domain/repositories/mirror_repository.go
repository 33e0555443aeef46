package repositories

import (
	"context"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
)

// Branches holds branch tips keyed by short branch name.
type Branches struct {
	Local  map[string]string
	Remote map[string]string
	// Head is the checked-out branch, empty when HEAD is detached.
	Head string
}

// MirrorRepository is the VCS primitive the sync executor drives. Every call is
// addressed by the job's local path, so implementations hold no per-job state.
type MirrorRepository interface {
	// Clone creates job.LocalPath with job.DefaultBranch checked out, or the remote HEAD
	// when the default branch is unset or missing.
	// Returns entities.ErrEmptyRemote when the remote has nothing to clone.
	Clone(ctx context.Context, job entities.SyncJob) error

	// Fetch updates every remote-tracking branch from the remote.
	Fetch(ctx context.Context, job entities.SyncJob) error

	// Branches enumerates local branches and remote-tracking branches.
	Branches(ctx context.Context, job entities.SyncJob) (Branches, error)

	// IsAncestor reports whether ancestor is reachable from descendant.
	IsAncestor(ctx context.Context, job entities.SyncJob, ancestor, descendant string) (bool, error)

	// FastForward creates the local branch or moves it forward to target.
	FastForward(ctx context.Context, job entities.SyncJob, branch, target string) error

	// ForceReset deletes the local branch and recreates it at target.
	ForceReset(ctx context.Context, job entities.SyncJob, branch, target string) error

	// DeleteBranch removes a local branch. The checked-out branch is never removed.
	DeleteBranch(ctx context.Context, job entities.SyncJob, branch string) error

	// WorktreeClean reports whether the checked-out files match HEAD, untracked files included.
	WorktreeClean(ctx context.Context, job entities.SyncJob) (bool, error)

	// DiscardChanges hard-resets the worktree to HEAD and removes untracked files.
	DiscardChanges(ctx context.Context, job entities.SyncJob) error
}
