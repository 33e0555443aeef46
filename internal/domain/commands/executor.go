package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/internal/domain/repositories"
)

const defaultRetryBackoff = 2 * time.Second

// JobExecutor brings one job to a terminal outcome. It never returns an error:
// failures are part of the outcome.
type JobExecutor interface {
	Execute(ctx context.Context, job entities.SyncJob) entities.SyncOutcome
}

// ExecutorOptions tunes the sync state machine.
type ExecutorOptions struct {
	FetchRetries  int
	RetryBackoff  time.Duration
	PruneBranches bool
}

// MirrorExecutor is the sync state machine:
// Absent -> Cloning -> Clean, Clean -> Fetching -> {FastForwarded, Diverged},
// Diverged -> Recovering -> Clean, anything -> Failed.
type MirrorExecutor struct {
	mirror repositories.MirrorRepository
	opts   ExecutorOptions
}

// NewMirrorExecutor creates a MirrorExecutor on top of the given VCS primitive.
func NewMirrorExecutor(mirror repositories.MirrorRepository, opts ExecutorOptions) *MirrorExecutor {
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	if opts.FetchRetries < 0 {
		opts.FetchRetries = 0
	}
	return &MirrorExecutor{mirror: mirror, opts: opts}
}

// Execute runs the job and reports how it ended.
func (it *MirrorExecutor) Execute(ctx context.Context, job entities.SyncJob) entities.SyncOutcome {
	start := time.Now()
	log := jobLogger(job)

	outcome := it.execute(ctx, job, log)
	outcome.Job = job
	outcome.Duration = time.Since(start)

	switch outcome.Status {
	case entities.StatusFailed:
		log.Errorf("Sync failed: %v", outcome.Err)
	case entities.StatusSkipped:
		log.Warnf("Sync skipped: %s", outcome.Detail)
	default:
		log.Infof("Finished synchronizing (%s) in %s", outcome.Status, outcome.Duration.Round(time.Millisecond))
	}
	return outcome
}

func (it *MirrorExecutor) execute(
	ctx context.Context,
	job entities.SyncJob,
	log *logger.Entry,
) entities.SyncOutcome {
	exists, err := localPathExists(job.LocalPath)
	if err != nil {
		return entities.FailedOutcome(job, err)
	}
	if !exists {
		return it.create(ctx, job, log)
	}
	return it.update(ctx, job, log)
}

// create handles the Absent state.
func (it *MirrorExecutor) create(
	ctx context.Context,
	job entities.SyncJob,
	log *logger.Entry,
) entities.SyncOutcome {
	log.Infof("Cloning into %s...", job.LocalPath)
	if err := it.mirror.Clone(ctx, job); err != nil {
		if errors.Is(err, entities.ErrEmptyRemote) {
			return entities.SkippedOutcome(job, "remote repository has no branches")
		}
		return entities.FailedOutcome(job, err)
	}

	if _, err := it.reconcile(ctx, job, log); err != nil {
		if errors.Is(err, entities.ErrEmptyRemote) {
			return entities.SkippedOutcome(job, "remote repository has no branches")
		}
		return entities.FailedOutcome(job, err)
	}
	return entities.SyncOutcome{Status: entities.StatusCreated}
}

// update handles Clean -> Fetching -> {FastForwarded, Diverged -> Recovering}.
func (it *MirrorExecutor) update(
	ctx context.Context,
	job entities.SyncJob,
	log *logger.Entry,
) entities.SyncOutcome {
	log.Debugf("Updating %s...", job.LocalPath)
	if err := it.fetch(ctx, job, log); err != nil {
		if errors.Is(err, entities.ErrEmptyRemote) {
			return entities.SkippedOutcome(job, "remote repository has no branches")
		}
		return entities.FailedOutcome(job, err)
	}

	recovered, err := it.reconcile(ctx, job, log)
	if errors.Is(err, entities.ErrEmptyRemote) {
		return entities.SkippedOutcome(job, "remote repository has no branches")
	}
	if err == nil {
		recovered, err = it.restoreWorktree(ctx, job, recovered, log)
	}
	if err != nil {
		return entities.SyncOutcome{
			Status:            entities.StatusFailed,
			Kind:              entities.KindOf(err),
			Err:               err,
			RecoveredBranches: recovered,
		}
	}
	if len(recovered) > 0 {
		return entities.SyncOutcome{Status: entities.StatusRecovered, RecoveredBranches: recovered}
	}
	return entities.SyncOutcome{Status: entities.StatusUpdated}
}

// fetch retries transport faults with exponential backoff.
func (it *MirrorExecutor) fetch(ctx context.Context, job entities.SyncJob, log *logger.Entry) error {
	backoff := it.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := it.mirror.Fetch(ctx, job)
		if err == nil {
			return nil
		}
		var syncErr *entities.SyncError
		if !errors.As(err, &syncErr) || !syncErr.Retryable() || attempt >= it.opts.FetchRetries {
			return err
		}

		log.Warnf("Fetch attempt %d failed, retrying in %s: %v", attempt+1, backoff, err)
		select {
		case <-ctx.Done():
			return entities.NewSyncError(entities.ErrorKindTransport, "fetch", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// reconcile walks every remote branch and brings the local branch of the same name to it.
// Local branches without a remote counterpart are only touched when pruning is enabled.
func (it *MirrorExecutor) reconcile(
	ctx context.Context,
	job entities.SyncJob,
	log *logger.Entry,
) ([]string, error) {
	branches, err := it.mirror.Branches(ctx, job)
	if err != nil {
		return nil, err
	}
	if len(branches.Remote) == 0 {
		return nil, entities.ErrEmptyRemote
	}

	var recovered []string
	for _, name := range sortedKeys(branches.Remote) {
		remoteTip := branches.Remote[name]
		localTip, exists := branches.Local[name]

		switch {
		case !exists:
			log.Debugf("Creating branch %q", name)
			if ffErr := it.mirror.FastForward(ctx, job, name, remoteTip); ffErr != nil {
				return recovered, ffErr
			}
		case localTip == remoteTip:
			continue
		default:
			fastForward, ancestorErr := it.mirror.IsAncestor(ctx, job, localTip, remoteTip)
			if ancestorErr != nil {
				return recovered, ancestorErr
			}
			if fastForward {
				log.Debugf("Fast-forwarding branch %q", name)
				if ffErr := it.mirror.FastForward(ctx, job, name, remoteTip); ffErr != nil {
					return recovered, ffErr
				}
				continue
			}

			log.Warnf("Branch %q diverged from the remote, resetting it to %s", name, shortHash(remoteTip))
			if resetErr := it.mirror.ForceReset(ctx, job, name, remoteTip); resetErr != nil {
				return recovered, entities.NewSyncError(
					entities.ErrorKindDivergenceRecovery,
					fmt.Sprintf("reset branch %q", name),
					resetErr,
				)
			}
			recovered = append(recovered, name)
		}
	}

	if it.opts.PruneBranches {
		it.prune(ctx, job, branches, log)
	}

	return recovered, nil
}

// restoreWorktree discards local edits of the checked-out branch so the mirror shows the remote.
// The branch is reported as recovered when something was discarded.
func (it *MirrorExecutor) restoreWorktree(
	ctx context.Context,
	job entities.SyncJob,
	recovered []string,
	log *logger.Entry,
) ([]string, error) {
	clean, err := it.mirror.WorktreeClean(ctx, job)
	if err != nil || clean {
		return recovered, err
	}

	branches, err := it.mirror.Branches(ctx, job)
	if err != nil {
		return recovered, err
	}
	log.Warnf("Worktree of %q has local changes, discarding them", branches.Head)
	if discardErr := it.mirror.DiscardChanges(ctx, job); discardErr != nil {
		return recovered, entities.NewSyncError(entities.ErrorKindDivergenceRecovery, "discard local changes", discardErr)
	}
	if branches.Head != "" && !slices.Contains(recovered, branches.Head) {
		recovered = append(recovered, branches.Head)
	}
	return recovered, nil
}

func (it *MirrorExecutor) prune(
	ctx context.Context,
	job entities.SyncJob,
	branches repositories.Branches,
	log *logger.Entry,
) {
	for _, name := range sortedKeys(branches.Local) {
		if _, ok := branches.Remote[name]; ok {
			continue
		}
		if err := it.mirror.DeleteBranch(ctx, job, name); err != nil {
			log.Warnf("Could not prune branch %q: %v", name, err)
			continue
		}
		log.Infof("Pruned branch %q deleted on the remote", name)
	}
}

func localPathExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, entities.NewSyncError(entities.ErrorKindLocalState, "stat "+path, err)
	}
	if !info.IsDir() {
		return false, entities.NewSyncError(entities.ErrorKindLocalState, "stat "+path,
			errors.New("local path exists and is not a directory"))
	}

	// an empty directory is cloned into
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, entities.NewSyncError(entities.ErrorKindLocalState, "read "+path, err)
	}
	return len(entries) > 0, nil
}

func jobLogger(job entities.SyncJob) *logger.Entry {
	return logger.WithFields(logger.Fields{
		"platform":   job.Descriptor.PlatformID,
		"repository": job.Descriptor.FullName(),
	})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
