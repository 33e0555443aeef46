//go:build unit

package entities_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/test/domain/entitybuilders"
)

func jobNamed(name string) entities.SyncJob {
	descriptor := entitybuilders.NewDescriptorBuilder().WithName(name).BuildDescriptor()
	return entities.BuildJob(descriptor, "other", "/backups", entities.Credentials{})
}

func TestSummary(t *testing.T) {
	t.Parallel()

	t.Run("should count outcomes per status", func(t *testing.T) {
		t.Parallel()

		// given
		summary := entities.NewSummary()
		summary.Add(entities.SyncOutcome{Job: jobNamed("a"), Status: entities.StatusCreated})
		summary.Add(entities.SyncOutcome{Job: jobNamed("b"), Status: entities.StatusCreated})
		summary.Add(entities.SkippedOutcome(jobNamed("c"), "empty"))

		// when
		counts := summary.Counts()

		// then
		assert.Equal(t, 2, counts[entities.StatusCreated])
		assert.Equal(t, 1, counts[entities.StatusSkipped])
		assert.Zero(t, counts[entities.StatusFailed])
		assert.False(t, summary.HasFailures())
	})

	t.Run("should keep the first outcome recorded for a job", func(t *testing.T) {
		t.Parallel()

		// given
		summary := entities.NewSummary()
		failed := entities.FailedOutcome(jobNamed("a"), errors.New("reset by peer"))
		require.True(t, summary.Add(failed))

		// when
		added := summary.Add(entities.SkippedOutcome(jobNamed("a"), "local path already claimed"))

		// then
		assert.False(t, added)
		assert.Len(t, summary.Outcomes, 1)
		assert.Equal(t, entities.StatusFailed, summary.Outcomes[jobNamed("a").ID()].Status)
		assert.True(t, summary.HasFailures())
	})

	t.Run("should list failures sorted with their kind", func(t *testing.T) {
		t.Parallel()

		// given
		summary := entities.NewSummary()
		authErr := entities.NewSyncError(entities.ErrorKindAuth, "clone", errors.New("denied"))
		summary.Add(entities.FailedOutcome(jobNamed("zeta"), authErr))
		summary.Add(entities.FailedOutcome(jobNamed("alpha"), errors.New("reset by peer")))

		// when
		failed := summary.Failed()

		// then
		assert.True(t, summary.HasFailures())
		assert.Len(t, failed, 2)
		assert.Equal(t, "alpha", failed[0].Job.Descriptor.Name)
		assert.Equal(t, entities.ErrorKindTransport, failed[0].Kind)
		assert.Equal(t, entities.ErrorKindAuth, failed[1].Kind)
	})

	t.Run("should fail the run when a platform listing failed", func(t *testing.T) {
		t.Parallel()

		// given
		summary := entities.NewSummary()
		summary.PlatformFailures = append(summary.PlatformFailures, entities.PlatformFailure{PlatformID: "gitlab@gitlab.com"})

		// when
		failed := summary.HasFailures()

		// then
		assert.True(t, failed)
	})
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	t.Run("should find the kind through wrapping", func(t *testing.T) {
		t.Parallel()

		// given
		err := errors.Join(errors.New("context"), entities.NewSyncError(entities.ErrorKindRateLimit, "list", nil))

		// when
		kind := entities.KindOf(err)

		// then
		assert.Equal(t, entities.ErrorKindRateLimit, kind)
	})

	t.Run("should treat untyped errors as transport faults", func(t *testing.T) {
		t.Parallel()

		// when
		kind := entities.KindOf(errors.New("EOF"))

		// then
		assert.Equal(t, entities.ErrorKindTransport, kind)
	})
}
