//go:build unit

package commands_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitbackup/internal/domain/commands"
	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	infraRepos "github.com/rios0rios0/gitbackup/internal/infrastructure/repositories"
	"github.com/rios0rios0/gitbackup/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/gitbackup/test/infrastructure/repositorydoubles"
)

type syncFixture struct {
	github   *doubles.SpyPlatformRepository
	gitlab   *doubles.SpyPlatformRepository
	mirror   *doubles.FakeMirrorRepository
	registry *infraRepos.PlatformRegistry
	settings *entities.Settings
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	fixture := &syncFixture{
		github: &doubles.SpyPlatformRepository{
			PlatformID: "gh",
			Creds:      entities.Credentials{Username: "x-access-token", Token: "ghp"},
		},
		gitlab: &doubles.SpyPlatformRepository{
			PlatformID: "gl",
			Creds:      entities.Credentials{Username: "oauth2", Token: "glpat"},
		},
		mirror:   doubles.NewFakeMirrorRepository(),
		registry: infraRepos.NewPlatformRegistry(),
		settings: &entities.Settings{
			BackupPath:           t.TempDir(),
			MaxConcurrentWorkers: 2,
			Platforms: []entities.PlatformConfig{
				{Kind: entities.PlatformGitHub, Name: "gh", Token: "ghp"},
				{Kind: entities.PlatformGitLab, Name: "gl", Token: "glpat"},
			},
			LanguageMapping: entities.LanguageMapping{
				{Folder: "go", Tokens: []string{"go"}},
				{Folder: "web", Tokens: []string{"javascript", "frontend"}},
			},
		},
	}
	fixture.registry.Register(entities.PlatformGitHub, fixture.github.Factory())
	fixture.registry.Register(entities.PlatformGitLab, fixture.gitlab.Factory())
	return fixture
}

// repository registers a descriptor on the given platform together with a one-branch remote.
func (f *syncFixture) repository(
	platform *doubles.SpyPlatformRepository,
	builder *entitybuilders.DescriptorBuilder,
) entities.RepositoryDescriptor {
	descriptor := builder.WithPlatformID(platform.PlatformID).BuildDescriptor()
	platform.Descriptors = append(platform.Descriptors, descriptor)
	f.mirror.SetRemote(descriptor.CloneURL, map[string]string{"main": "c1"})
	return descriptor
}

func (f *syncFixture) run(t *testing.T) *entities.Summary {
	t.Helper()
	summary, err := commands.NewSyncCommand(f.registry, f.mirror).
		Execute(context.Background(), f.settings, commands.SyncOptions{})
	require.NoError(t, err)
	return summary
}

func TestSyncCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should mirror the repositories of every platform into classified folders", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newSyncFixture(t)
		tool := fixture.repository(fixture.github,
			entitybuilders.NewDescriptorBuilder().WithOwner("alice").WithName("tool").WithLanguage("Go"))
		site := fixture.repository(fixture.gitlab,
			entitybuilders.NewDescriptorBuilder().WithOwner("team/web").WithName("site").WithTopics("frontend").
				WithCloneURL("https://gitlab.example.com/team/web/site.git"))

		// when
		summary := fixture.run(t)

		// then
		require.Len(t, summary.Outcomes, 2)
		assert.Equal(t, entities.StatusCreated, summary.Outcomes[tool.ID()].Status)
		assert.Equal(t, filepath.Join(fixture.settings.BackupPath, "alice", "go", "tool"),
			summary.Outcomes[tool.ID()].Job.LocalPath)
		assert.Equal(t, filepath.Join(fixture.settings.BackupPath, "team/web", "web", "site"),
			summary.Outcomes[site.ID()].Job.LocalPath)
		assert.Equal(t, "glpat", summary.Outcomes[site.ID()].Job.Credentials.Token)
		assert.False(t, summary.HasFailures())
	})

	t.Run("should not produce any outcome for an excluded repository", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newSyncFixture(t)
		kept := fixture.repository(fixture.github, entitybuilders.NewDescriptorBuilder().WithName("kept"))
		dropped := fixture.repository(fixture.github, entitybuilders.NewDescriptorBuilder().WithName("dropped"))
		fixture.settings.ExcludeRepositories = []string{dropped.FullName()}

		// when
		summary := fixture.run(t)

		// then
		assert.Contains(t, summary.Outcomes, kept.ID())
		assert.NotContains(t, summary.Outcomes, dropped.ID())
		assert.Equal(t, 1, fixture.mirror.CloneCalls)
	})

	t.Run("should keep syncing the other platforms when one listing fails", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newSyncFixture(t)
		tool := fixture.repository(fixture.github, entitybuilders.NewDescriptorBuilder().WithName("tool"))
		partial := fixture.repository(fixture.gitlab,
			entitybuilders.NewDescriptorBuilder().WithOwner("bob").WithName("partial"))
		fixture.gitlab.ListErr = entities.NewSyncError(entities.ErrorKindRateLimit, "list projects", errors.New("429"))

		// when
		summary := fixture.run(t)

		// then
		assert.Equal(t, entities.StatusCreated, summary.Outcomes[tool.ID()].Status)
		assert.Equal(t, entities.StatusCreated, summary.Outcomes[partial.ID()].Status)
		require.Len(t, summary.PlatformFailures, 1)
		assert.Equal(t, "gl", summary.PlatformFailures[0].PlatformID)
		assert.Equal(t, entities.ErrorKindRateLimit, summary.PlatformFailures[0].Kind)
		assert.True(t, summary.HasFailures())
	})

	t.Run("should skip the second repository claiming the same local path", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newSyncFixture(t)
		first := fixture.repository(fixture.github,
			entitybuilders.NewDescriptorBuilder().WithOwner("alice").WithName("tool"))
		second := fixture.repository(fixture.gitlab,
			entitybuilders.NewDescriptorBuilder().WithOwner("alice").WithName("tool"))

		// when
		summary := fixture.run(t)

		// then
		require.Len(t, summary.Outcomes, 2)
		statuses := []entities.SyncStatus{summary.Outcomes[first.ID()].Status, summary.Outcomes[second.ID()].Status}
		assert.ElementsMatch(t, []entities.SyncStatus{entities.StatusCreated, entities.StatusSkipped}, statuses)
		assert.Equal(t, 1, fixture.mirror.CloneCalls)
	})

	t.Run("should keep the real outcome when two accounts share one identity", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newSyncFixture(t)
		fixture.settings.Platforms = []entities.PlatformConfig{
			{Kind: entities.PlatformGitHub, Token: "personal"},
			{Kind: entities.PlatformGitHub, Token: "work"},
		}
		shared := fixture.repository(fixture.github,
			entitybuilders.NewDescriptorBuilder().WithOwner("acme").WithName("shared"))

		// when
		summary := fixture.run(t)

		// then
		require.Len(t, summary.Outcomes, 1)
		assert.Equal(t, entities.StatusCreated, summary.Outcomes[shared.ID()].Status)
		assert.Equal(t, 1, fixture.github.ListCalls)
		require.Len(t, summary.PlatformFailures, 1)
		assert.Equal(t, "github@api.github.com", summary.PlatformFailures[0].PlatformID)
		assert.True(t, summary.HasFailures())
	})

	t.Run("should report repositories whose language matched no rule", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newSyncFixture(t)
		odd := fixture.repository(fixture.github,
			entitybuilders.NewDescriptorBuilder().WithName("odd").WithLanguage("COBOL"))

		// when
		summary := fixture.run(t)

		// then
		require.Len(t, summary.Unmapped, 1)
		assert.Equal(t, odd.ID(), summary.Unmapped[0].ID())
		assert.Contains(t, summary.Outcomes[odd.ID()].Job.LocalPath, entities.FallbackFolder)
	})

	t.Run("should record a platform whose kind is not registered", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newSyncFixture(t)
		fixture.settings.Platforms = append(fixture.settings.Platforms,
			entities.PlatformConfig{Kind: "bitbucket", Name: "bb", Token: "t"})

		// when
		summary := fixture.run(t)

		// then
		require.Len(t, summary.PlatformFailures, 1)
		assert.Equal(t, "bb", summary.PlatformFailures[0].PlatformID)
	})

	t.Run("should refuse to start with invalid classification rules", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newSyncFixture(t)
		fixture.repository(fixture.github, entitybuilders.NewDescriptorBuilder())
		fixture.settings.LanguageMapping = entities.LanguageMapping{{Folder: "../escape", Tokens: []string{"go"}}}

		// when
		summary, err := commands.NewSyncCommand(fixture.registry, fixture.mirror).
			Execute(context.Background(), fixture.settings, commands.SyncOptions{})

		// then
		require.Error(t, err)
		assert.Nil(t, summary)
		assert.True(t, entities.IsKind(err, entities.ErrorKindClassificationConfig))
		assert.Zero(t, fixture.github.ListCalls)
		assert.Zero(t, fixture.mirror.CloneCalls)
	})

	t.Run("should produce the same layout when run twice", func(t *testing.T) {
		t.Parallel()

		// given
		fixture := newSyncFixture(t)
		tool := fixture.repository(fixture.github, entitybuilders.NewDescriptorBuilder().WithName("tool"))
		first := fixture.run(t)

		// when
		second := fixture.run(t)

		// then
		assert.Equal(t, entities.StatusCreated, first.Outcomes[tool.ID()].Status)
		assert.Equal(t, entities.StatusUpdated, second.Outcomes[tool.ID()].Status)
		assert.Equal(t, first.Outcomes[tool.ID()].Job.LocalPath, second.Outcomes[tool.ID()].Job.LocalPath)
	})
}
