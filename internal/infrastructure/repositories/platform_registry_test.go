//go:build unit

package repositories_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	infraRepos "github.com/rios0rios0/gitbackup/internal/infrastructure/repositories"
	"github.com/rios0rios0/gitbackup/test/infrastructure/repositorydoubles"
)

func TestPlatformRegistry(t *testing.T) {
	t.Parallel()

	t.Run("should build the platform registered for the configured kind", func(t *testing.T) {
		t.Parallel()

		// given
		spy := &repositorydoubles.SpyPlatformRepository{PlatformID: "github@api.github.com"}
		registry := infraRepos.NewPlatformRegistry()
		registry.Register(entities.PlatformGitHub, spy.Factory())

		// when
		platform, err := registry.Get(entities.PlatformConfig{Kind: entities.PlatformGitHub, Token: "t"})

		// then
		require.NoError(t, err)
		assert.Equal(t, "github@api.github.com", platform.ID())
	})

	t.Run("should fail for a kind nobody registered", func(t *testing.T) {
		t.Parallel()

		// given
		registry := infraRepos.NewPlatformRegistry()
		registry.Register(entities.PlatformGitLab, (&repositorydoubles.SpyPlatformRepository{}).Factory())
		registry.Register(entities.PlatformGitHub, (&repositorydoubles.SpyPlatformRepository{}).Factory())

		// when
		platform, err := registry.Get(entities.PlatformConfig{Kind: "bitbucket"})

		// then
		require.Error(t, err)
		assert.Nil(t, platform)
		assert.Contains(t, err.Error(), `"bitbucket"`)
		assert.Contains(t, err.Error(), "supported: github, gitlab")
	})

	t.Run("should list registered kinds in order", func(t *testing.T) {
		t.Parallel()

		// given
		registry := infraRepos.NewPlatformRegistry()
		registry.Register(entities.PlatformGitLab, (&repositorydoubles.SpyPlatformRepository{}).Factory())
		registry.Register(entities.PlatformGitHub, (&repositorydoubles.SpyPlatformRepository{}).Factory())

		// when
		names := registry.Names()

		// then
		assert.Equal(t, []string{"github", "gitlab"}, names)
	})
}
