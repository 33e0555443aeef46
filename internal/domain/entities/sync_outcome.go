package entities

import (
	"sort"
	"time"
)

// SyncStatus is the terminal state of one job.
type SyncStatus string

const (
	StatusCreated   SyncStatus = "Created"
	StatusUpdated   SyncStatus = "Updated"
	StatusRecovered SyncStatus = "Recovered"
	StatusSkipped   SyncStatus = "Skipped"
	StatusFailed    SyncStatus = "Failed"
)

// AllStatuses lists every status in reporting order.
func AllStatuses() []SyncStatus {
	return []SyncStatus{StatusCreated, StatusUpdated, StatusRecovered, StatusSkipped, StatusFailed}
}

// SyncOutcome is the result of executing one SyncJob.
type SyncOutcome struct {
	Job    SyncJob
	Status SyncStatus
	Kind   ErrorKind
	Err    error
	Detail string

	// RecoveredBranches lists the local branches that were destructively reset.
	RecoveredBranches []string
	Duration          time.Duration
}

// FailedOutcome builds a Failed outcome from err.
func FailedOutcome(job SyncJob, err error) SyncOutcome {
	return SyncOutcome{Job: job, Status: StatusFailed, Kind: KindOf(err), Err: err}
}

// SkippedOutcome builds a Skipped outcome with a reason.
func SkippedOutcome(job SyncJob, detail string) SyncOutcome {
	return SyncOutcome{Job: job, Status: StatusSkipped, Detail: detail}
}

// PlatformFailure records a listing that aborted.
type PlatformFailure struct {
	PlatformID string
	Kind       ErrorKind
	Err        error
}

// Summary is the order-independent report of one run.
type Summary struct {
	Outcomes         map[string]SyncOutcome
	PlatformFailures []PlatformFailure
	Unmapped         []RepositoryDescriptor
}

// NewSummary creates an empty summary.
func NewSummary() *Summary {
	return &Summary{Outcomes: make(map[string]SyncOutcome)}
}

// Add records an outcome under its job identity. An identity keeps its first outcome:
// Add reports false and changes nothing when the identity is already recorded.
func (s *Summary) Add(outcome SyncOutcome) bool {
	id := outcome.Job.ID()
	if _, exists := s.Outcomes[id]; exists {
		return false
	}
	s.Outcomes[id] = outcome
	return true
}

// Counts returns the number of outcomes per status.
func (s *Summary) Counts() map[SyncStatus]int {
	counts := make(map[SyncStatus]int, len(AllStatuses()))
	for _, outcome := range s.Outcomes {
		counts[outcome.Status]++
	}
	return counts
}

// Failed returns the failed outcomes sorted by job identity.
func (s *Summary) Failed() []SyncOutcome {
	return s.withStatus(StatusFailed)
}

// Recovered returns the recovered outcomes sorted by job identity.
func (s *Summary) Recovered() []SyncOutcome {
	return s.withStatus(StatusRecovered)
}

// HasFailures reports whether the run should be considered unsuccessful.
func (s *Summary) HasFailures() bool {
	return len(s.PlatformFailures) > 0 || len(s.Failed()) > 0
}

func (s *Summary) withStatus(status SyncStatus) []SyncOutcome {
	var result []SyncOutcome
	for _, outcome := range s.Outcomes {
		if outcome.Status == status {
			result = append(result, outcome)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Job.ID() < result[j].Job.ID()
	})
	return result
}
