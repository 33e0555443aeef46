package repositories

import (
	"context"
	"iter"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
)

// PlatformRepository abstracts a Git hosting service (GitHub, GitLab, etc.)
// able to list every repository an account owns or can see.
type PlatformRepository interface {
	// ID returns the platform identity (e.g. "github@api.github.com").
	ID() string

	// Credentials returns the handle sync jobs authenticate their git transport with.
	Credentials() entities.Credentials

	// ListRepositories pages through the provider lazily. Descriptors are unique by owner/name.
	// A failed page yields a single error and ends the sequence.
	ListRepositories(ctx context.Context) iter.Seq2[entities.RepositoryDescriptor, error]
}
