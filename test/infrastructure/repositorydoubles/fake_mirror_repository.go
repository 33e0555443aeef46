//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/internal/domain/repositories"
)

// FakeMirrorRepository implements repositories.MirrorRepository in memory.
// Remotes are addressed by URL, working copies by local path. Clone creates the
// local directory so that a second run sees an existing mirror.
type FakeMirrorRepository struct {
	mu sync.Mutex

	// Remotes maps a remote URL to its branch tips.
	Remotes map[string]map[string]string
	// Ancestors maps a commit to every commit reachable from it.
	Ancestors map[string]map[string]bool

	// --- failure injection ---
	CloneErr error
	// FetchErrs are returned by successive Fetch calls, nil entries succeed
	FetchErrs     []error
	ForceResetErr error
	DeleteErr     error
	DiscardErr    error

	// --- spy ---
	CloneCalls       int
	FetchCalls       int
	FastForwardCalls []string
	ForceResetCalls  []string
	DeleteCalls      []string
	DiscardCalls     int

	locals   map[string]map[string]string
	tracking map[string]map[string]string
	heads    map[string]string
	dirty    map[string]bool
}

var _ repositories.MirrorRepository = (*FakeMirrorRepository)(nil)

// NewFakeMirrorRepository creates an empty fake.
func NewFakeMirrorRepository() *FakeMirrorRepository {
	return &FakeMirrorRepository{
		Remotes:   make(map[string]map[string]string),
		Ancestors: make(map[string]map[string]bool),
		locals:    make(map[string]map[string]string),
		tracking:  make(map[string]map[string]string),
		heads:     make(map[string]string),
		dirty:     make(map[string]bool),
	}
}

// SetRemote replaces the branches of a remote.
func (f *FakeMirrorRepository) SetRemote(url string, branches map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Remotes[url] = maps.Clone(branches)
}

// Descends records that every ancestor is reachable from descendant.
func (f *FakeMirrorRepository) Descends(descendant string, ancestors ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Ancestors[descendant] == nil {
		f.Ancestors[descendant] = make(map[string]bool)
	}
	for _, ancestor := range ancestors {
		f.Ancestors[descendant][ancestor] = true
	}
}

// SetLocalBranch moves a local branch of an existing working copy, simulating local commits.
func (f *FakeMirrorRepository) SetLocalBranch(localPath, branch, tip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locals[localPath] == nil {
		f.locals[localPath] = make(map[string]string)
	}
	f.locals[localPath][branch] = tip
}

// SetDirty simulates local edits in the worktree of a working copy.
func (f *FakeMirrorRepository) SetDirty(localPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirty[localPath] = true
}

// IsDirty reports whether the worktree of a working copy still has local edits.
func (f *FakeMirrorRepository) IsDirty(localPath string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty[localPath]
}

// Head returns the checked-out branch of a working copy.
func (f *FakeMirrorRepository) Head(localPath string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heads[localPath]
}

// LocalBranches returns a copy of the local branches of a working copy.
func (f *FakeMirrorRepository) LocalBranches(localPath string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.locals[localPath])
}

func (f *FakeMirrorRepository) Clone(_ context.Context, job entities.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CloneCalls++

	if f.CloneErr != nil {
		return f.CloneErr
	}
	remote, ok := f.Remotes[job.RemoteURL]
	if !ok {
		return entities.NewSyncError(entities.ErrorKindAuth, "clone", errors.New("repository not found"))
	}
	if len(remote) == 0 {
		return fmt.Errorf("clone: %w", entities.ErrEmptyRemote)
	}

	if err := os.MkdirAll(filepath.Join(job.LocalPath, ".git"), 0o755); err != nil {
		return entities.NewSyncError(entities.ErrorKindLocalState, "clone", err)
	}

	head := job.DefaultBranch
	if _, exists := remote[head]; !exists {
		names := make([]string, 0, len(remote))
		for name := range remote {
			names = append(names, name)
		}
		sort.Strings(names)
		head = names[0]
	}
	f.heads[job.LocalPath] = head
	f.locals[job.LocalPath] = map[string]string{head: remote[head]}
	f.tracking[job.LocalPath] = maps.Clone(remote)
	return nil
}

func (f *FakeMirrorRepository) Fetch(_ context.Context, job entities.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.FetchCalls
	f.FetchCalls++

	if call < len(f.FetchErrs) && f.FetchErrs[call] != nil {
		return f.FetchErrs[call]
	}
	remote, ok := f.Remotes[job.RemoteURL]
	if !ok {
		return entities.NewSyncError(entities.ErrorKindAuth, "fetch", errors.New("repository not found"))
	}
	if len(remote) == 0 {
		return fmt.Errorf("fetch: %w", entities.ErrEmptyRemote)
	}
	f.tracking[job.LocalPath] = maps.Clone(remote)
	return nil
}

func (f *FakeMirrorRepository) Branches(_ context.Context, job entities.SyncJob) (repositories.Branches, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	local := maps.Clone(f.locals[job.LocalPath])
	if local == nil {
		local = make(map[string]string)
	}
	remote := maps.Clone(f.tracking[job.LocalPath])
	if remote == nil {
		remote = make(map[string]string)
	}
	return repositories.Branches{Local: local, Remote: remote, Head: f.heads[job.LocalPath]}, nil
}

func (f *FakeMirrorRepository) IsAncestor(
	_ context.Context,
	_ entities.SyncJob,
	ancestor, descendant string,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ancestor == descendant || f.Ancestors[descendant][ancestor], nil
}

func (f *FakeMirrorRepository) FastForward(_ context.Context, job entities.SyncJob, branch, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FastForwardCalls = append(f.FastForwardCalls, branch)
	f.setLocal(job.LocalPath, branch, target)
	return nil
}

func (f *FakeMirrorRepository) ForceReset(_ context.Context, job entities.SyncJob, branch, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ForceResetCalls = append(f.ForceResetCalls, branch)
	if f.ForceResetErr != nil {
		return f.ForceResetErr
	}
	f.setLocal(job.LocalPath, branch, target)
	return nil
}

func (f *FakeMirrorRepository) DeleteBranch(_ context.Context, job entities.SyncJob, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls = append(f.DeleteCalls, branch)
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if f.heads[job.LocalPath] == branch {
		return entities.NewSyncError(entities.ErrorKindLocalState, "delete branch", errors.New("branch is checked out"))
	}
	delete(f.locals[job.LocalPath], branch)
	return nil
}

func (f *FakeMirrorRepository) WorktreeClean(_ context.Context, job entities.SyncJob) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dirty[job.LocalPath], nil
}

func (f *FakeMirrorRepository) DiscardChanges(_ context.Context, job entities.SyncJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DiscardCalls++
	if f.DiscardErr != nil {
		return f.DiscardErr
	}
	delete(f.dirty, job.LocalPath)
	return nil
}

func (f *FakeMirrorRepository) setLocal(localPath, branch, tip string) {
	if f.locals[localPath] == nil {
		f.locals[localPath] = make(map[string]string)
	}
	f.locals[localPath][branch] = tip
}
