package commands

import (
	"context"
	"fmt"
	"sync"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/gitbackup/internal/infrastructure/repositories"
)

// discovered is one descriptor together with the credentials of the platform that listed it.
type discovered struct {
	descriptor  entities.RepositoryDescriptor
	credentials entities.Credentials
}

// openPlatforms instantiates every configured platform. A platform that cannot be
// created is reported as failed without affecting the others.
func openPlatforms(
	registry *infraRepos.PlatformRegistry,
	configs []entities.PlatformConfig,
) ([]repositories.PlatformRepository, []entities.PlatformFailure) {
	var platforms []repositories.PlatformRepository
	var failures []entities.PlatformFailure
	opened := make(map[string]struct{}, len(configs))

	for _, cfg := range configs {
		var platform repositories.PlatformRepository
		var err error
		if _, dup := opened[cfg.ID()]; dup {
			err = fmt.Errorf("platform identity %q is already used by another platform, set a distinct name", cfg.ID())
		} else {
			platform, err = registry.Get(cfg)
		}
		if err != nil {
			logger.Errorf("Failed to initialize platform %s: %v", cfg.ID(), err)
			failures = append(failures, entities.PlatformFailure{
				PlatformID: cfg.ID(),
				Kind:       entities.KindOf(err),
				Err:        err,
			})
			continue
		}
		opened[cfg.ID()] = struct{}{}
		platforms = append(platforms, platform)
	}

	return platforms, failures
}

// discover lists every platform concurrently and merges the descriptors into one stream.
// The returned function reports the listings that aborted; call it once the stream is drained.
func discover(
	ctx context.Context,
	platforms []repositories.PlatformRepository,
) (<-chan discovered, func() []entities.PlatformFailure) {
	stream := make(chan discovered)

	var mu sync.Mutex
	var failures []entities.PlatformFailure

	var wg sync.WaitGroup
	for _, platform := range platforms {
		wg.Go(func() {
			log := logger.WithField("platform", platform.ID())
			log.Info("Listing repositories...")

			count := 0
			for descriptor, err := range platform.ListRepositories(ctx) {
				if err != nil {
					log.Errorf("Listing aborted after %d repositories: %v", count, err)
					mu.Lock()
					failures = append(failures, entities.PlatformFailure{
						PlatformID: platform.ID(),
						Kind:       entities.KindOf(err),
						Err:        err,
					})
					mu.Unlock()
					return
				}
				count++
				stream <- discovered{descriptor: descriptor, credentials: platform.Credentials()}
			}
			log.Infof("Found %d repositories", count)
		})
	}

	go func() {
		wg.Wait()
		close(stream)
	}()

	return stream, func() []entities.PlatformFailure {
		mu.Lock()
		defer mu.Unlock()
		return append([]entities.PlatformFailure(nil), failures...)
	}
}

// planner turns descriptors into jobs: exclusion, classification, job building and
// local path ownership. It is used from a single goroutine.
type planner struct {
	root     string
	denyList entities.DenyList
	rules    *entities.RuleSet
	claimed  map[string]string

	excluded   []entities.RepositoryDescriptor
	unmapped   []entities.RepositoryDescriptor
	collisions []entities.SyncOutcome
}

func newPlanner(root string, denyList entities.DenyList, rules *entities.RuleSet) *planner {
	return &planner{
		root:     root,
		denyList: denyList,
		rules:    rules,
		claimed:  make(map[string]string),
	}
}

// plan returns the job for item, or false when the item must not be synced.
func (p *planner) plan(item discovered) (entities.SyncJob, bool) {
	descriptor := item.descriptor
	if p.denyList.Excludes(descriptor) {
		logger.Debugf("Excluding %s", descriptor.FullName())
		p.excluded = append(p.excluded, descriptor)
		return entities.SyncJob{}, false
	}

	classification := p.rules.Classify(descriptor)
	if classification.Unmapped {
		p.unmapped = append(p.unmapped, descriptor)
	}

	job := entities.BuildJob(descriptor, classification.Folder, p.root, item.credentials)

	// Platforms are not part of the path, so two platforms exposing the same owner/name
	// land on the same working copy. The first one keeps it.
	if owner, taken := p.claimed[job.LocalPath]; taken {
		detail := fmt.Sprintf("local path %s is already claimed by %s", job.LocalPath, owner)
		logger.Warnf("Path collision for %s: %s", job.ID(), detail)
		p.collisions = append(p.collisions, entities.SkippedOutcome(job, detail))
		return entities.SyncJob{}, false
	}
	p.claimed[job.LocalPath] = job.ID()

	return job, true
}
