// Package paging walks numbered result pages of a provider API and turns them into a lazy
// sequence, pausing on rate limits and resuming from the page that was refused.
package paging

import (
	"context"
	"iter"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
)

const minimumPause = time.Second

// FetchPage loads one page. next is the number of the following page, or 0 after the last one.
type FetchPage[T any] func(ctx context.Context, page int) (items []T, next int, err error)

// Walker iterates pages under a rate-limit policy.
type Walker struct {
	policy entities.RateLimitPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

// NewWalker creates a Walker sleeping on the wall clock.
func NewWalker(policy entities.RateLimitPolicy) *Walker {
	return &Walker{policy: policy, sleep: sleepContext, now: time.Now}
}

// WithClock replaces the sleeping and time functions. Used by tests.
func (w *Walker) WithClock(sleep func(ctx context.Context, d time.Duration) error, now func() time.Time) *Walker {
	return &Walker{policy: w.policy, sleep: sleep, now: now}
}

// Walk yields every item of every page starting at first. A non rate-limit error, or a
// rate limit that outlasts the policy, is yielded once and ends the sequence.
func Walk[T any](ctx context.Context, w *Walker, first int, fetch FetchPage[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		page := first
		throttled := 0

		for {
			items, next, err := fetch(ctx, page)
			if err != nil {
				if !entities.IsKind(err, entities.ErrorKindRateLimit) || throttled >= w.policy.MaxRetries {
					yield(zero, err)
					return
				}
				throttled++

				pause := w.pause(err)
				logger.Warnf("Rate limited on page %d, resuming in %s (%d/%d)",
					page, pause, throttled, w.policy.MaxRetries)
				if sleepErr := w.sleep(ctx, pause); sleepErr != nil {
					yield(zero, entities.NewSyncError(entities.ErrorKindTransport, "list repositories", sleepErr))
					return
				}
				continue
			}
			throttled = 0

			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}

			if next == 0 {
				return
			}
			page = next
		}
	}
}

// pause is the time left until the advertised reset, clamped to the policy.
func (w *Walker) pause(err error) time.Duration {
	var pause time.Duration
	if syncErr := asSyncError(err); syncErr != nil && !syncErr.ResetAt.IsZero() {
		pause = syncErr.ResetAt.Sub(w.now())
	}
	if pause < minimumPause {
		pause = minimumPause
	}
	if w.policy.MaxWait > 0 && pause > w.policy.MaxWait {
		pause = w.policy.MaxWait
	}
	return pause
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
