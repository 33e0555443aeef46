package repositories

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	domainRepos "github.com/rios0rios0/gitbackup/internal/domain/repositories"
)

// PlatformFactory is a constructor function that creates a PlatformRepository from its configuration.
type PlatformFactory func(cfg entities.PlatformConfig) (domainRepos.PlatformRepository, error)

// PlatformRegistry manages all registered Git hosting implementations.
type PlatformRegistry struct {
	platforms map[entities.PlatformKind]PlatformFactory
}

// NewPlatformRegistry creates an empty platform registry.
func NewPlatformRegistry() *PlatformRegistry {
	return &PlatformRegistry{
		platforms: make(map[entities.PlatformKind]PlatformFactory),
	}
}

// Register adds a platform factory under the given kind (e.g. "github").
func (r *PlatformRegistry) Register(kind entities.PlatformKind, factory PlatformFactory) {
	r.platforms[kind] = factory
}

// Get returns a configured platform instance for the given configuration.
func (r *PlatformRegistry) Get(cfg entities.PlatformConfig) (domainRepos.PlatformRepository, error) {
	factory, ok := r.platforms[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown platform kind: %q (supported: %s)", cfg.Kind, strings.Join(r.Names(), ", "))
	}
	return factory(cfg)
}

// Names returns the sorted list of registered platform kinds.
func (r *PlatformRegistry) Names() []string {
	names := make([]string, 0, len(r.platforms))
	for kind := range r.platforms {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}
