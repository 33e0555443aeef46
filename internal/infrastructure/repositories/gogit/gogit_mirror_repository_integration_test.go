//go:build integration

package gogit_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/internal/infrastructure/repositories/gogit"
)

func commitUpstream(t *testing.T, repo *git.Repository, dir, content string) plumbing.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte(content), 0o600))
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add("README.md")
	require.NoError(t, err)
	hash, err := worktree.Commit(content, &git.CommitOptions{
		Author: &object.Signature{Name: "upstream", Email: "upstream@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func TestMirrorRepositoryCloneAndFetch(t *testing.T) {
	t.Run("should clone a remote and pick up new commits on fetch", func(t *testing.T) {
		// given
		upstreamDir := t.TempDir()
		upstream, err := git.PlainInit(upstreamDir, false)
		require.NoError(t, err)
		first := commitUpstream(t, upstream, upstreamDir, "one")

		mirror := gogit.NewMirrorRepository()
		job := entities.SyncJob{
			LocalPath: filepath.Join(t.TempDir(), "alice", "tool"),
			RemoteURL: upstreamDir,
		}
		require.NoError(t, mirror.Clone(context.Background(), job))
		cloned, err := mirror.Branches(context.Background(), job)
		require.NoError(t, err)
		second := commitUpstream(t, upstream, upstreamDir, "two")

		// when
		err = mirror.Fetch(context.Background(), job)

		// then
		require.NoError(t, err)
		assert.Equal(t, first.String(), cloned.Remote["master"])
		fetched, branchesErr := mirror.Branches(context.Background(), job)
		require.NoError(t, branchesErr)
		assert.Equal(t, second.String(), fetched.Remote["master"])
		assert.Equal(t, first.String(), fetched.Local["master"])
	})

	t.Run("should check out the default branch the platform reports", func(t *testing.T) {
		// given
		upstreamDir := t.TempDir()
		upstream, err := git.PlainInit(upstreamDir, false)
		require.NoError(t, err)
		base := commitUpstream(t, upstream, upstreamDir, "one")
		require.NoError(t, upstream.Storer.SetReference(
			plumbing.NewHashReference(plumbing.NewBranchReferenceName("develop"), base),
		))
		mirror := gogit.NewMirrorRepository()
		job := entities.SyncJob{
			LocalPath:     filepath.Join(t.TempDir(), "alice", "tool"),
			RemoteURL:     upstreamDir,
			DefaultBranch: "develop",
		}

		// when
		err = mirror.Clone(context.Background(), job)

		// then
		require.NoError(t, err)
		branches, branchesErr := mirror.Branches(context.Background(), job)
		require.NoError(t, branchesErr)
		assert.Equal(t, "develop", branches.Head)
	})

	t.Run("should fall back to the remote HEAD when the default branch is missing", func(t *testing.T) {
		// given
		upstreamDir := t.TempDir()
		upstream, err := git.PlainInit(upstreamDir, false)
		require.NoError(t, err)
		commitUpstream(t, upstream, upstreamDir, "one")
		mirror := gogit.NewMirrorRepository()
		job := entities.SyncJob{
			LocalPath:     filepath.Join(t.TempDir(), "alice", "tool"),
			RemoteURL:     upstreamDir,
			DefaultBranch: "gone",
		}

		// when
		err = mirror.Clone(context.Background(), job)

		// then
		require.NoError(t, err)
		branches, branchesErr := mirror.Branches(context.Background(), job)
		require.NoError(t, branchesErr)
		assert.Equal(t, "master", branches.Head)
	})

	t.Run("should report an empty remote and leave nothing behind", func(t *testing.T) {
		// given
		upstreamDir := t.TempDir()
		_, err := git.PlainInit(upstreamDir, false)
		require.NoError(t, err)
		mirror := gogit.NewMirrorRepository()
		job := entities.SyncJob{
			LocalPath: filepath.Join(t.TempDir(), "empty"),
			RemoteURL: upstreamDir,
		}

		// when
		err = mirror.Clone(context.Background(), job)

		// then
		require.Error(t, err)
		assert.True(t, errors.Is(err, entities.ErrEmptyRemote))
		_, statErr := os.Stat(job.LocalPath)
		assert.True(t, os.IsNotExist(statErr))
	})
}
