package gogit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/internal/domain/repositories"
)

const (
	originName   = git.DefaultRemoteName
	remotePrefix = "refs/remotes/" + originName + "/"
	fetchRefSpec = config.RefSpec("+refs/heads/*:refs/remotes/" + originName + "/*")
)

// MirrorRepository implements repositories.MirrorRepository on top of go-git.
// The token travels as HTTP basic auth and is never written to the remote URL.
type MirrorRepository struct{}

// NewMirrorRepository creates the go-git mirror primitive.
func NewMirrorRepository() *MirrorRepository {
	return &MirrorRepository{}
}

var _ repositories.MirrorRepository = (*MirrorRepository)(nil)

func (r *MirrorRepository) Clone(ctx context.Context, job entities.SyncJob) error {
	opts := &git.CloneOptions{
		URL:        job.RemoteURL,
		Auth:       authFor(job.Credentials),
		RemoteName: originName,
	}
	if job.DefaultBranch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(job.DefaultBranch)
	}

	// go-git removes what it created when the clone fails, so a retry starts clean
	_, err := git.PlainCloneContext(ctx, job.LocalPath, false, opts)
	if err != nil && opts.ReferenceName != "" && errors.Is(err, plumbing.ErrReferenceNotFound) {
		logger.Debugf("Default branch %q not found on %s, cloning the remote HEAD", job.DefaultBranch, job.ID())
		opts.ReferenceName = ""
		_, err = git.PlainCloneContext(ctx, job.LocalPath, false, opts)
	}
	if err != nil {
		return remoteError("clone", err)
	}
	return nil
}

func (r *MirrorRepository) Fetch(ctx context.Context, job entities.SyncJob) error {
	repo, err := open(job)
	if err != nil {
		return err
	}
	if syncErr := syncRemoteURL(repo, job.RemoteURL); syncErr != nil {
		return syncErr
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: originName,
		RefSpecs:   []config.RefSpec{fetchRefSpec},
		Auth:       authFor(job.Credentials),
		Force:      true,
		Prune:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return remoteError("fetch", err)
	}
	return nil
}

func (r *MirrorRepository) Branches(_ context.Context, job entities.SyncJob) (repositories.Branches, error) {
	branches := repositories.Branches{
		Local:  make(map[string]string),
		Remote: make(map[string]string),
	}

	repo, err := open(job)
	if err != nil {
		return branches, err
	}

	refs, err := repo.References()
	if err != nil {
		return branches, localError("list references", err)
	}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		switch {
		case name.IsBranch():
			branches.Local[name.Short()] = ref.Hash().String()
		case strings.HasPrefix(name.String(), remotePrefix):
			short := strings.TrimPrefix(name.String(), remotePrefix)
			if short != "HEAD" {
				branches.Remote[short] = ref.Hash().String()
			}
		}
		return nil
	})
	if err != nil {
		return branches, localError("list references", err)
	}

	if head, headErr := repo.Storer.Reference(plumbing.HEAD); headErr == nil &&
		head.Type() == plumbing.SymbolicReference && head.Target().IsBranch() {
		branches.Head = head.Target().Short()
	}

	return branches, nil
}

func (r *MirrorRepository) IsAncestor(
	_ context.Context,
	job entities.SyncJob,
	ancestor, descendant string,
) (bool, error) {
	repo, err := open(job)
	if err != nil {
		return false, err
	}

	ancestorCommit, err := repo.CommitObject(plumbing.NewHash(ancestor))
	if err != nil {
		return false, localError("read commit "+ancestor, err)
	}
	descendantCommit, err := repo.CommitObject(plumbing.NewHash(descendant))
	if err != nil {
		return false, localError("read commit "+descendant, err)
	}

	isAncestor, err := ancestorCommit.IsAncestor(descendantCommit)
	if err != nil {
		return false, localError("walk history", err)
	}
	return isAncestor, nil
}

func (r *MirrorRepository) FastForward(_ context.Context, job entities.SyncJob, branch, target string) error {
	repo, err := open(job)
	if err != nil {
		return err
	}
	if moveErr := moveBranch(repo, branch, plumbing.NewHash(target)); moveErr != nil {
		return moveErr
	}
	return ensureTracking(repo, branch)
}

func (r *MirrorRepository) ForceReset(_ context.Context, job entities.SyncJob, branch, target string) error {
	repo, err := open(job)
	if err != nil {
		return err
	}

	refName := plumbing.NewBranchReferenceName(branch)
	if !isHead(repo, refName) {
		if removeErr := repo.Storer.RemoveReference(refName); removeErr != nil {
			return localError("delete branch "+branch, removeErr)
		}
	}
	if moveErr := moveBranch(repo, branch, plumbing.NewHash(target)); moveErr != nil {
		return moveErr
	}
	return ensureTracking(repo, branch)
}

func (r *MirrorRepository) DeleteBranch(_ context.Context, job entities.SyncJob, branch string) error {
	repo, err := open(job)
	if err != nil {
		return err
	}

	refName := plumbing.NewBranchReferenceName(branch)
	if isHead(repo, refName) {
		return entities.NewSyncError(entities.ErrorKindLocalState, "delete branch "+branch,
			errors.New("branch is checked out"))
	}
	if removeErr := repo.Storer.RemoveReference(refName); removeErr != nil {
		return localError("delete branch "+branch, removeErr)
	}
	if configErr := repo.DeleteBranch(branch); configErr != nil && !errors.Is(configErr, git.ErrBranchNotFound) {
		return localError("delete branch "+branch, configErr)
	}
	return nil
}

func (r *MirrorRepository) WorktreeClean(_ context.Context, job entities.SyncJob) (bool, error) {
	repo, err := open(job)
	if err != nil {
		return false, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return false, localError("open worktree", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return false, localError("read worktree status", err)
	}
	return status.IsClean(), nil
}

func (r *MirrorRepository) DiscardChanges(_ context.Context, job entities.SyncJob) error {
	repo, err := open(job)
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		return localError("resolve HEAD", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return localError("open worktree", err)
	}

	if resetErr := worktree.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: head.Hash()}); resetErr != nil {
		return localError("reset worktree", resetErr)
	}
	if cleanErr := worktree.Clean(&git.CleanOptions{Dir: true}); cleanErr != nil {
		return localError("remove untracked files", cleanErr)
	}
	return nil
}

func open(job entities.SyncJob) (*git.Repository, error) {
	repo, err := git.PlainOpen(job.LocalPath)
	if err != nil {
		return nil, localError("open "+job.LocalPath, err)
	}
	return repo, nil
}

// moveBranch points branch at target. The checked-out branch is moved through a hard
// reset so the worktree follows it.
func moveBranch(repo *git.Repository, branch string, target plumbing.Hash) error {
	refName := plumbing.NewBranchReferenceName(branch)
	if isHead(repo, refName) {
		worktree, err := repo.Worktree()
		if err != nil {
			return localError("open worktree", err)
		}
		if resetErr := worktree.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: target}); resetErr != nil {
			return localError("reset "+branch, resetErr)
		}
		return nil
	}

	if err := repo.Storer.SetReference(plumbing.NewHashReference(refName, target)); err != nil {
		return localError("update branch "+branch, err)
	}
	return nil
}

// ensureTracking makes branch track its remote counterpart, like git does after a checkout.
func ensureTracking(repo *git.Repository, branch string) error {
	if _, err := repo.Branch(branch); err == nil {
		return nil
	}
	err := repo.CreateBranch(&config.Branch{
		Name:   branch,
		Remote: originName,
		Merge:  plumbing.NewBranchReferenceName(branch),
	})
	if err != nil && !errors.Is(err, git.ErrBranchExists) {
		return localError("configure branch "+branch, err)
	}
	return nil
}

func isHead(repo *git.Repository, refName plumbing.ReferenceName) bool {
	head, err := repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return false
	}
	return head.Type() == plumbing.SymbolicReference && head.Target() == refName
}

// syncRemoteURL keeps origin pointing at the URL the platform currently reports.
func syncRemoteURL(repo *git.Repository, remoteURL string) error {
	cfg, err := repo.Config()
	if err != nil {
		return localError("read config", err)
	}

	remote, ok := cfg.Remotes[originName]
	if ok && len(remote.URLs) > 0 && remote.URLs[0] == remoteURL {
		return nil
	}
	if !ok {
		remote = &config.RemoteConfig{Name: originName, Fetch: []config.RefSpec{fetchRefSpec}}
		cfg.Remotes[originName] = remote
	}
	remote.URLs = []string{remoteURL}

	if setErr := repo.SetConfig(cfg); setErr != nil {
		return localError("write config", setErr)
	}
	return nil
}

func authFor(credentials entities.Credentials) transport.AuthMethod {
	if credentials.IsEmpty() {
		return nil
	}
	return &http.BasicAuth{Username: credentials.Username, Password: credentials.Token}
}

// remoteError maps failures of operations talking to the remote. Unknown causes are transport faults.
func remoteError(op string, err error) error {
	switch {
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return fmt.Errorf("%s: %w", op, entities.ErrEmptyRemote)
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrInvalidAuthMethod),
		errors.Is(err, transport.ErrRepositoryNotFound):
		return entities.NewSyncError(entities.ErrorKindAuth, op, err)
	case isLocalFault(err):
		return entities.NewSyncError(entities.ErrorKindLocalState, op, err)
	default:
		return entities.NewSyncError(entities.ErrorKindTransport, op, err)
	}
}

// localError maps failures of operations confined to the working copy.
func localError(op string, err error) error {
	return entities.NewSyncError(entities.ErrorKindLocalState, op, err)
}

func isLocalFault(err error) bool {
	return errors.Is(err, git.ErrRepositoryNotExists) ||
		errors.Is(err, git.ErrRepositoryAlreadyExists) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.ENOSPC)
}
