package github

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/internal/domain/repositories"
	"github.com/rios0rios0/gitbackup/internal/infrastructure/repositories/paging"
)

const (
	perPage         = 100
	affiliation     = "owner,collaborator,organization_member"
	defaultGitUser  = "x-access-token"
	listOperation   = "list repositories"
	defaultAPIHost  = "https://api.github.com"
	providerVisible = "all"
)

// GitHubPlatformRepository implements repositories.PlatformRepository for GitHub and GitHub Enterprise.
type GitHubPlatformRepository struct {
	id         string
	username   string
	token      string
	visibility entities.Visibility
	client     *gh.Client
	walker     *paging.Walker
}

// NewPlatformRepository creates a GitHub platform from its configuration.
func NewPlatformRepository(cfg entities.PlatformConfig) (repositories.PlatformRepository, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client := gh.NewClient(tc)
	if server := cfg.ServerURL(); server != defaultAPIHost {
		enterprise, err := client.WithEnterpriseURLs(server, server)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub server %q: %w", server, err)
		}
		client = enterprise
	}

	return &GitHubPlatformRepository{
		id:         cfg.ID(),
		username:   cfg.Username,
		token:      cfg.Token,
		visibility: cfg.Visibility,
		client:     client,
		walker:     paging.NewWalker(cfg.RateLimit),
	}, nil
}

// WithWalker replaces the paging walker. Used by tests to control rate-limit pauses.
func (p *GitHubPlatformRepository) WithWalker(walker *paging.Walker) *GitHubPlatformRepository {
	p.walker = walker
	return p
}

func (p *GitHubPlatformRepository) ID() string { return p.id }

// Credentials uses the configured username, or the placeholder GitHub accepts for token auth.
func (p *GitHubPlatformRepository) Credentials() entities.Credentials {
	username := p.username
	if username == "" {
		username = defaultGitUser
	}
	return entities.Credentials{Username: username, Token: p.token}
}

// ListRepositories lists every repository the token's user owns, collaborates on,
// or can see through an organization membership.
func (p *GitHubPlatformRepository) ListRepositories(
	ctx context.Context,
) iter.Seq2[entities.RepositoryDescriptor, error] {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Visibility:  p.providerVisibility(),
		Affiliation: affiliation,
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	fetch := func(ctx context.Context, page int) ([]*gh.Repository, int, error) {
		opts.Page = page
		repos, resp, err := p.client.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, 0, mapError(err)
		}
		return repos, resp.NextPage, nil
	}

	return func(yield func(entities.RepositoryDescriptor, error) bool) {
		seen := make(map[string]struct{})
		for repo, err := range paging.Walk(ctx, p.walker, 1, fetch) {
			if err != nil {
				yield(entities.RepositoryDescriptor{}, err)
				return
			}

			descriptor := p.toDescriptor(repo)
			if !p.visibility.Admits(descriptor.Visibility) {
				continue
			}
			if _, dup := seen[descriptor.FullName()]; dup {
				continue
			}
			seen[descriptor.FullName()] = struct{}{}

			if !yield(descriptor, nil) {
				return
			}
		}
	}
}

// providerVisibility pushes the filter to GitHub when the API supports it.
// "internal" is not accepted by /user/repos and is filtered locally.
func (p *GitHubPlatformRepository) providerVisibility() string {
	switch p.visibility {
	case entities.VisibilityPublic, entities.VisibilityPrivate:
		return string(p.visibility)
	default:
		return providerVisible
	}
}

func (p *GitHubPlatformRepository) toDescriptor(repo *gh.Repository) entities.RepositoryDescriptor {
	visibility := entities.Visibility(repo.GetVisibility())
	if visibility == "" {
		visibility = entities.VisibilityPublic
		if repo.GetPrivate() {
			visibility = entities.VisibilityPrivate
		}
	}

	return entities.RepositoryDescriptor{
		PlatformID:      p.id,
		Owner:           repo.GetOwner().GetLogin(),
		Name:            repo.GetName(),
		CloneURL:        repo.GetCloneURL(),
		Topics:          repo.Topics,
		PrimaryLanguage: repo.GetLanguage(),
		Visibility:      visibility,
		DefaultBranch:   repo.GetDefaultBranch(),
		Archived:        repo.GetArchived(),
	}
}

// mapError translates go-github failures into the engine's error kinds.
func mapError(err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		syncErr := entities.NewSyncError(entities.ErrorKindRateLimit, listOperation, err)
		syncErr.ResetAt = rateErr.Rate.Reset.Time
		return syncErr
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		syncErr := entities.NewSyncError(entities.ErrorKindRateLimit, listOperation, err)
		if retryAfter := abuseErr.GetRetryAfter(); retryAfter > 0 {
			syncErr.ResetAt = time.Now().Add(retryAfter)
		}
		return syncErr
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch status := respErr.Response.StatusCode; {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return entities.NewSyncError(entities.ErrorKindAuth, listOperation, err)
		case status == http.StatusTooManyRequests:
			return entities.NewSyncError(entities.ErrorKindRateLimit, listOperation, err)
		}
	}

	return entities.NewSyncError(entities.ErrorKindTransport, listOperation, err)
}
