package entities

import "fmt"

// Visibility is the access level a platform reports for a repository.
type Visibility string

const (
	VisibilityAll      Visibility = "all"
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
)

// IsValid reports whether v is one of the known visibility values.
func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityAll, VisibilityPublic, VisibilityPrivate, VisibilityInternal:
		return true
	default:
		return false
	}
}

// Admits reports whether a repository with the given visibility passes this filter.
func (v Visibility) Admits(other Visibility) bool {
	return v == "" || v == VisibilityAll || v == other
}

// RepositoryDescriptor is the metadata of one remote repository as reported by a platform.
type RepositoryDescriptor struct {
	PlatformID      string
	Owner           string
	Name            string
	CloneURL        string
	Topics          []string // provider order
	PrimaryLanguage string   // empty when the platform reports none
	Visibility      Visibility
	DefaultBranch   string
	Archived        bool
}

// FullName returns the "owner/name" form used by the exclusion list.
func (d RepositoryDescriptor) FullName() string {
	return d.Owner + "/" + d.Name
}

// ID returns the identity of the descriptor across platforms.
func (d RepositoryDescriptor) ID() string {
	return fmt.Sprintf("%s:%s", d.PlatformID, d.FullName())
}
