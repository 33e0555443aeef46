package repositories

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitbackup/internal/domain/repositories"
	ghRepo "github.com/rios0rios0/gitbackup/internal/infrastructure/repositories/github"
	glRepo "github.com/rios0rios0/gitbackup/internal/infrastructure/repositories/gitlab"
	gitRepo "github.com/rios0rios0/gitbackup/internal/infrastructure/repositories/gogit"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register platform registry with all platform factories
	if err := container.Provide(func() *PlatformRegistry {
		reg := NewPlatformRegistry()
		reg.Register(entities.PlatformGitHub, ghRepo.NewPlatformRepository)
		reg.Register(entities.PlatformGitLab, glRepo.NewPlatformRepository)
		return reg
	}); err != nil {
		return err
	}

	// Register the go-git mirror primitive
	if err := container.Provide(func() domainRepos.MirrorRepository {
		return gitRepo.NewMirrorRepository()
	}); err != nil {
		return err
	}

	return nil
}
