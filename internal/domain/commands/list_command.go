package commands

import (
	"context"
	"sort"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	infraRepos "github.com/rios0rios0/gitbackup/internal/infrastructure/repositories"
)

// List is the interface for the list command.
type List interface {
	Execute(ctx context.Context, settings *entities.Settings) (*Plan, error)
}

// Plan is what a sync would do, computed without touching any local mirror.
type Plan struct {
	Jobs             []entities.SyncJob
	Excluded         []entities.RepositoryDescriptor
	Unmapped         []entities.RepositoryDescriptor
	Collisions       []entities.SyncOutcome
	PlatformFailures []entities.PlatformFailure
}

// ListCommand discovers, excludes and classifies repositories, stopping before any git work.
type ListCommand struct {
	platformRegistry *infraRepos.PlatformRegistry
}

// NewListCommand creates a new ListCommand.
func NewListCommand(platformRegistry *infraRepos.PlatformRegistry) *ListCommand {
	return &ListCommand{platformRegistry: platformRegistry}
}

// Execute builds the plan. Jobs are sorted by local path.
func (it *ListCommand) Execute(ctx context.Context, settings *entities.Settings) (*Plan, error) {
	rules, err := settings.RuleSet()
	if err != nil {
		return nil, err
	}

	platforms, openFailures := openPlatforms(it.platformRegistry, settings.Platforms)
	stream, listingFailures := discover(ctx, platforms)

	p := newPlanner(settings.BackupPath, settings.DenyList(), rules)
	plan := &Plan{}
	for item := range stream {
		if job, ok := p.plan(item); ok {
			plan.Jobs = append(plan.Jobs, job)
		}
	}

	sort.Slice(plan.Jobs, func(i, j int) bool {
		return plan.Jobs[i].LocalPath < plan.Jobs[j].LocalPath
	})
	plan.Excluded = p.excluded
	plan.Unmapped = p.unmapped
	plan.Collisions = p.collisions
	plan.PlatformFailures = append(openFailures, listingFailures()...)

	logger.Infof("Planned %d repositories (%d excluded, %d unmapped, %d collisions)",
		len(plan.Jobs), len(plan.Excluded), len(plan.Unmapped), len(plan.Collisions))
	return plan, nil
}
