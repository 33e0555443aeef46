//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
)

// DescriptorBuilder helps create test repository descriptors with a fluent interface.
type DescriptorBuilder struct {
	*testkit.BaseBuilder
	platformID      string
	owner           string
	name            string
	cloneURL        string
	topics          []string
	primaryLanguage string
	visibility      entities.Visibility
	defaultBranch   string
	archived        bool
}

// NewDescriptorBuilder creates a new descriptor builder with sensible defaults.
func NewDescriptorBuilder() *DescriptorBuilder {
	b := &DescriptorBuilder{BaseBuilder: testkit.NewBaseBuilder()}
	b.defaults()
	return b
}

func (b *DescriptorBuilder) defaults() {
	b.platformID = "github@api.github.com"
	b.owner = "alice"
	b.name = "tool"
	b.cloneURL = ""
	b.topics = nil
	b.primaryLanguage = ""
	b.visibility = entities.VisibilityPublic
	b.defaultBranch = "main"
	b.archived = false
}

// WithPlatformID sets the platform identity.
func (b *DescriptorBuilder) WithPlatformID(id string) *DescriptorBuilder {
	b.platformID = id
	return b
}

// WithOwner sets the owner.
func (b *DescriptorBuilder) WithOwner(owner string) *DescriptorBuilder {
	b.owner = owner
	return b
}

// WithName sets the repository name.
func (b *DescriptorBuilder) WithName(name string) *DescriptorBuilder {
	b.name = name
	return b
}

// WithCloneURL sets the clone URL. Defaults to https://example.com/<owner>/<name>.git.
func (b *DescriptorBuilder) WithCloneURL(url string) *DescriptorBuilder {
	b.cloneURL = url
	return b
}

// WithTopics sets the topics in provider order.
func (b *DescriptorBuilder) WithTopics(topics ...string) *DescriptorBuilder {
	b.topics = topics
	return b
}

// WithLanguage sets the primary language.
func (b *DescriptorBuilder) WithLanguage(language string) *DescriptorBuilder {
	b.primaryLanguage = language
	return b
}

// WithVisibility sets the visibility.
func (b *DescriptorBuilder) WithVisibility(visibility entities.Visibility) *DescriptorBuilder {
	b.visibility = visibility
	return b
}

// WithDefaultBranch sets the default branch.
func (b *DescriptorBuilder) WithDefaultBranch(branch string) *DescriptorBuilder {
	b.defaultBranch = branch
	return b
}

// Archived marks the repository as archived.
func (b *DescriptorBuilder) Archived() *DescriptorBuilder {
	b.archived = true
	return b
}

// Build creates the descriptor (satisfies testkit.Builder interface).
func (b *DescriptorBuilder) Build() interface{} {
	return b.BuildDescriptor()
}

// BuildDescriptor creates the descriptor with a concrete return type.
func (b *DescriptorBuilder) BuildDescriptor() entities.RepositoryDescriptor {
	cloneURL := b.cloneURL
	if cloneURL == "" {
		cloneURL = "https://example.com/" + b.owner + "/" + b.name + ".git"
	}
	return entities.RepositoryDescriptor{
		PlatformID:      b.platformID,
		Owner:           b.owner,
		Name:            b.name,
		CloneURL:        cloneURL,
		Topics:          append([]string(nil), b.topics...),
		PrimaryLanguage: b.primaryLanguage,
		Visibility:      b.visibility,
		DefaultBranch:   b.defaultBranch,
		Archived:        b.archived,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *DescriptorBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.defaults()
	return b
}

// Clone creates a deep copy of the DescriptorBuilder.
func (b *DescriptorBuilder) Clone() testkit.Builder {
	return &DescriptorBuilder{
		BaseBuilder:     b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		platformID:      b.platformID,
		owner:           b.owner,
		name:            b.name,
		cloneURL:        b.cloneURL,
		topics:          append([]string(nil), b.topics...),
		primaryLanguage: b.primaryLanguage,
		visibility:      b.visibility,
		defaultBranch:   b.defaultBranch,
		archived:        b.archived,
	}
}
