//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, fakes) for
// repository interfaces. These are hand-crafted implementations, no mock frameworks.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"
	"iter"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/internal/domain/repositories"
)

// SpyPlatformRepository implements repositories.PlatformRepository as a configurable spy.
type SpyPlatformRepository struct {
	// --- identity ---
	PlatformID string
	Creds      entities.Credentials

	// --- ListRepositories ---
	Descriptors []entities.RepositoryDescriptor
	// ListErr is yielded after Descriptors, ending the listing
	ListErr   error
	ListCalls int
}

var _ repositories.PlatformRepository = (*SpyPlatformRepository)(nil)

func (p *SpyPlatformRepository) ID() string                        { return p.PlatformID }
func (p *SpyPlatformRepository) Credentials() entities.Credentials { return p.Creds }

func (p *SpyPlatformRepository) ListRepositories(
	_ context.Context,
) iter.Seq2[entities.RepositoryDescriptor, error] {
	p.ListCalls++
	return func(yield func(entities.RepositoryDescriptor, error) bool) {
		for _, descriptor := range p.Descriptors {
			if !yield(descriptor, nil) {
				return
			}
		}
		if p.ListErr != nil {
			yield(entities.RepositoryDescriptor{}, p.ListErr)
		}
	}
}

// Factory returns a platform factory always handing out this spy.
func (p *SpyPlatformRepository) Factory() func(entities.PlatformConfig) (repositories.PlatformRepository, error) {
	return func(entities.PlatformConfig) (repositories.PlatformRepository, error) {
		return p, nil
	}
}
