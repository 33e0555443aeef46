//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rios0rios0/gitbackup/internal/domain/commands"
	"github.com/rios0rios0/gitbackup/internal/domain/entities"
)

// SpyJobExecutor implements commands.JobExecutor, recording concurrency and outcomes.
type SpyJobExecutor struct {
	// Delay is how long each job pretends to work.
	Delay time.Duration
	// FailNames and PanicNames select jobs by repository name.
	FailNames  map[string]bool
	PanicNames map[string]bool
	// Started is signalled (non-blocking) each time a job starts.
	Started chan string

	mu         sync.Mutex
	running    int
	maxRunning int
	executed   []string
}

var _ commands.JobExecutor = (*SpyJobExecutor)(nil)

func (s *SpyJobExecutor) Execute(_ context.Context, job entities.SyncJob) entities.SyncOutcome {
	name := job.Descriptor.Name

	s.mu.Lock()
	s.running++
	if s.running > s.maxRunning {
		s.maxRunning = s.running
	}
	s.executed = append(s.executed, name)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running--
		s.mu.Unlock()
	}()

	if s.Started != nil {
		select {
		case s.Started <- name:
		default:
		}
	}
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	if s.PanicNames[name] {
		panic("boom: " + name)
	}
	if s.FailNames[name] {
		return entities.FailedOutcome(job, entities.NewSyncError(
			entities.ErrorKindTransport, "fetch", errors.New("connection reset"),
		))
	}
	return entities.SyncOutcome{Job: job, Status: entities.StatusCreated}
}

// MaxRunning returns the highest number of jobs observed running at once.
func (s *SpyJobExecutor) MaxRunning() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxRunning
}

// Executed returns the names of the jobs that were started.
func (s *SpyJobExecutor) Executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.executed...)
}
