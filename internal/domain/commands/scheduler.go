package commands

import (
	"context"
	"fmt"
	"runtime/debug"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
)

// Scheduler runs sync jobs on a bounded worker pool.
type Scheduler struct {
	executor JobExecutor
	workers  int
}

// NewScheduler creates a Scheduler running at most workers jobs at once.
func NewScheduler(executor JobExecutor, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{executor: executor, workers: workers}
}

// Run consumes jobs until the channel is closed and returns exactly one outcome per job.
// Once ctx is done no further job is started: the remaining ones are reported as skipped,
// while jobs already running are left to finish so no mirror is left half written.
func (it *Scheduler) Run(ctx context.Context, jobs <-chan entities.SyncJob) []entities.SyncOutcome {
	results := make(chan entities.SyncOutcome)
	collected := make(chan []entities.SyncOutcome)
	go func() {
		var outcomes []entities.SyncOutcome
		for outcome := range results {
			outcomes = append(outcomes, outcome)
		}
		collected <- outcomes
	}()

	// running jobs must not observe the caller aborting
	jobCtx := context.WithoutCancel(ctx)

	var group errgroup.Group
	group.SetLimit(it.workers)
	for job := range jobs {
		if ctx.Err() != nil {
			results <- entities.SkippedOutcome(job, "run aborted before the job started")
			continue
		}
		group.Go(func() error {
			if ctx.Err() != nil {
				results <- entities.SkippedOutcome(job, "run aborted before the job started")
				return nil
			}
			results <- it.isolate(jobCtx, job)
			return nil
		})
	}
	_ = group.Wait()
	close(results)

	return <-collected
}

// isolate turns a panicking job into a Failed outcome instead of taking the pool down.
func (it *Scheduler) isolate(ctx context.Context, job entities.SyncJob) (outcome entities.SyncOutcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.WithField("repository", job.Descriptor.FullName()).
				Errorf("Sync job panicked: %v\n%s", recovered, debug.Stack())
			outcome = entities.FailedOutcome(job, entities.NewSyncError(
				entities.ErrorKindLocalState, "sync", fmt.Errorf("panic: %v", recovered),
			))
		}
	}()
	outcome = it.executor.Execute(ctx, job)
	outcome.Job = job
	return outcome
}
