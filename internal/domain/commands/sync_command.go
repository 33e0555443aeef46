package commands

import (
	"context"
	"strconv"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/gitbackup/internal/infrastructure/repositories"
)

// Sync is the interface for the sync command.
type Sync interface {
	Execute(ctx context.Context, settings *entities.Settings, opts SyncOptions) (*entities.Summary, error)
}

// SyncOptions holds runtime options for a single run.
type SyncOptions struct {
	Workers int // overrides max_concurrent_workers when positive
}

// SyncCommand orchestrates the full mirror flow:
// list platforms -> exclude -> classify -> build jobs -> worker pool -> summary.
type SyncCommand struct {
	platformRegistry *infraRepos.PlatformRegistry
	mirror           repositories.MirrorRepository
}

// NewSyncCommand creates a new SyncCommand.
func NewSyncCommand(
	platformRegistry *infraRepos.PlatformRegistry,
	mirror repositories.MirrorRepository,
) *SyncCommand {
	return &SyncCommand{
		platformRegistry: platformRegistry,
		mirror:           mirror,
	}
}

// Execute runs one synchronization. It only returns an error for configuration
// problems detected before any job starts; everything else ends up in the summary.
func (it *SyncCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts SyncOptions,
) (*entities.Summary, error) {
	rules, err := settings.RuleSet()
	if err != nil {
		return nil, err
	}

	workers := settings.MaxConcurrentWorkers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	platforms, openFailures := openPlatforms(it.platformRegistry, settings.Platforms)
	stream, listingFailures := discover(ctx, platforms)

	p := newPlanner(settings.BackupPath, settings.DenyList(), rules)
	jobs := make(chan entities.SyncJob)
	go func() {
		defer close(jobs)
		for item := range stream {
			if job, ok := p.plan(item); ok {
				jobs <- job
			}
		}
	}()

	logger.Infof("Synchronizing into %s with %d workers", settings.BackupPath, workers)

	executor := NewMirrorExecutor(it.mirror, ExecutorOptions{
		FetchRetries:  settings.FetchRetries,
		PruneBranches: settings.PruneBranches,
	})
	outcomes := NewScheduler(executor, workers).Run(ctx, jobs)

	// jobs is closed only after the planner drained the stream, so its state is final here
	summary := entities.NewSummary()
	for _, outcome := range append(outcomes, p.collisions...) {
		if !summary.Add(outcome) {
			logger.Warnf("Dropping %s outcome of %s: the job already has one", outcome.Status, outcome.Job.ID())
		}
	}
	summary.Unmapped = p.unmapped
	summary.PlatformFailures = append(openFailures, listingFailures()...)

	report(summary)
	return summary, nil
}

// report logs the run summary.
func report(summary *entities.Summary) {
	counts := summary.Counts()
	parts := make([]string, 0, len(entities.AllStatuses()))
	for _, status := range entities.AllStatuses() {
		parts = append(parts, string(status)+"="+strconv.Itoa(counts[status]))
	}
	logger.Infof("Run complete: %d repositories (%s)", len(summary.Outcomes), strings.Join(parts, ", "))

	for _, outcome := range summary.Recovered() {
		logger.Warnf("Reset diverged branches of %s: %s",
			outcome.Job.Descriptor.FullName(), strings.Join(outcome.RecoveredBranches, ", "))
	}
	for _, descriptor := range summary.Unmapped {
		logger.Warnf("Could not classify %s (topics: %v, language: %q)",
			descriptor.FullName(), descriptor.Topics, descriptor.PrimaryLanguage)
	}
	for _, failure := range summary.PlatformFailures {
		logger.Errorf("Platform %s failed (%s): %v", failure.PlatformID, failure.Kind, failure.Err)
	}
	for _, outcome := range summary.Failed() {
		logger.Errorf("Failed %s (%s): %v", outcome.Job.ID(), outcome.Kind, outcome.Err)
	}
}
