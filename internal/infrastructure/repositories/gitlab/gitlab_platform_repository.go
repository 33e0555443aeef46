package gitlab

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"time"

	logger "github.com/sirupsen/logrus"
	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/sync/errgroup"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/internal/domain/repositories"
	"github.com/rios0rios0/gitbackup/internal/infrastructure/repositories/paging"
)

const (
	perPage         = 100
	languageWorkers = 8
	apiVersion      = 4
	defaultGitUser  = "oauth2"
	listOperation   = "list projects"
	headerReset     = "RateLimit-Reset"
	headerRetry     = "Retry-After"
)

// GitLabPlatformRepository implements repositories.PlatformRepository for gitlab.com and self-managed GitLab.
type GitLabPlatformRepository struct {
	id         string
	username   string
	token      string
	visibility entities.Visibility
	client     *gl.Client
	walker     *paging.Walker
}

// NewPlatformRepository creates a GitLab platform from its configuration.
func NewPlatformRepository(cfg entities.PlatformConfig) (repositories.PlatformRepository, error) {
	// client-go always talks to api/v4
	if cfg.Version() != apiVersion {
		return nil, fmt.Errorf("GitLab API version %d is not supported for %s, only v%d", cfg.Version(), cfg.ID(), apiVersion)
	}

	client, err := gl.NewClient(
		cfg.Token,
		gl.WithBaseURL(cfg.ServerURL()),
		gl.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client for %s: %w", cfg.ID(), err)
	}

	return &GitLabPlatformRepository{
		id:         cfg.ID(),
		username:   cfg.Username,
		token:      cfg.Token,
		visibility: cfg.Visibility,
		client:     client,
		walker:     paging.NewWalker(cfg.RateLimit),
	}, nil
}

// WithWalker replaces the paging walker. Used by tests to control rate-limit pauses.
func (p *GitLabPlatformRepository) WithWalker(walker *paging.Walker) *GitLabPlatformRepository {
	p.walker = walker
	return p
}

func (p *GitLabPlatformRepository) ID() string { return p.id }

// Credentials uses the configured username, or the user name GitLab accepts for token auth.
func (p *GitLabPlatformRepository) Credentials() entities.Credentials {
	username := p.username
	if username == "" {
		username = defaultGitUser
	}
	return entities.Credentials{Username: username, Token: p.token}
}

// ListRepositories lists every project the token's user is a member of.
func (p *GitLabPlatformRepository) ListRepositories(
	ctx context.Context,
) iter.Seq2[entities.RepositoryDescriptor, error] {
	opts := &gl.ListProjectsOptions{
		ListOptions: gl.ListOptions{PerPage: perPage, Page: 1},
		Membership:  gl.Ptr(true),
	}
	if p.visibility != "" && p.visibility != entities.VisibilityAll {
		opts.Visibility = gl.Ptr(gl.VisibilityValue(p.visibility))
	}

	// opts.Page only advances once a page was read, so a rate-limited page is requested again
	fetch := func(ctx context.Context, _ int) ([]entities.RepositoryDescriptor, int, error) {
		projects, resp, err := p.client.Projects.ListProjects(opts, gl.WithContext(ctx))
		if err != nil {
			return nil, 0, mapError(listOperation, resp, err)
		}

		descriptors := make([]entities.RepositoryDescriptor, len(projects))
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(languageWorkers)
		for i, project := range projects {
			group.Go(func() error {
				language, langErr := p.primaryLanguage(groupCtx, project)
				if langErr != nil {
					return langErr
				}
				descriptors[i] = p.toDescriptor(project, language)
				return nil
			})
		}
		if langErr := group.Wait(); langErr != nil {
			return nil, 0, langErr
		}

		opts.Page = resp.NextPage
		return descriptors, int(resp.NextPage), nil
	}

	return func(yield func(entities.RepositoryDescriptor, error) bool) {
		seen := make(map[string]struct{})
		for descriptor, err := range paging.Walk(ctx, p.walker, 1, fetch) {
			if err != nil {
				yield(entities.RepositoryDescriptor{}, err)
				return
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

// primaryLanguage returns the language with the largest share, or "" when GitLab reports none.
// Only rate limits abort the page; any other failure leaves the language unknown.
// Called concurrently for the projects of one page.
func (p *GitLabPlatformRepository) primaryLanguage(ctx context.Context, project *gl.Project) (string, error) {
	languages, resp, err := p.client.Projects.GetProjectLanguages(project.ID, gl.WithContext(ctx))
	if err != nil {
		mapped := mapError("get project languages", resp, err)
		if entities.IsKind(mapped, entities.ErrorKindRateLimit) {
			return "", mapped
		}
		logger.Debugf("Could not read languages of %s: %v", project.PathWithNamespace, err)
		return "", nil
	}
	if languages == nil {
		return "", nil
	}

	var primary string
	var share float32
	for language, percent := range *languages {
		if percent > share || (percent == share && language < primary) {
			primary, share = language, percent
		}
	}
	return primary, nil
}

func (p *GitLabPlatformRepository) toDescriptor(project *gl.Project, language string) entities.RepositoryDescriptor {
	owner := ""
	if project.Namespace != nil {
		owner = project.Namespace.FullPath
	}

	return entities.RepositoryDescriptor{
		PlatformID:      p.id,
		Owner:           owner,
		Name:            project.Path,
		CloneURL:        project.HTTPURLToRepo,
		Topics:          project.Topics,
		PrimaryLanguage: language,
		Visibility:      entities.Visibility(project.Visibility),
		DefaultBranch:   project.DefaultBranch,
		Archived:        project.Archived,
	}
}

// mapError translates client-go failures into the engine's error kinds.
func mapError(op string, resp *gl.Response, err error) error {
	status := 0
	var header http.Header
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
		header = resp.Header
	}
	var respErr *gl.ErrorResponse
	if status == 0 && errors.As(err, &respErr) && respErr.Response != nil {
		status = respErr.Response.StatusCode
		header = respErr.Response.Header
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return entities.NewSyncError(entities.ErrorKindAuth, op, err)
	case status == http.StatusTooManyRequests:
		syncErr := entities.NewSyncError(entities.ErrorKindRateLimit, op, err)
		syncErr.ResetAt = resetTime(header)
		return syncErr
	default:
		return entities.NewSyncError(entities.ErrorKindTransport, op, err)
	}
}

// resetTime reads the advertised reset from RateLimit-Reset (unix seconds) or Retry-After (seconds).
func resetTime(header http.Header) time.Time {
	if header == nil {
		return time.Time{}
	}
	if reset, err := strconv.ParseInt(header.Get(headerReset), 10, 64); err == nil && reset > 0 {
		return time.Unix(reset, 0)
	}
	if retry, err := strconv.Atoi(header.Get(headerRetry)); err == nil && retry > 0 {
		return time.Now().Add(time.Duration(retry) * time.Second)
	}
	return time.Time{}
}
