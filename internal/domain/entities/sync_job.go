package entities

import (
	"path/filepath"
	"strings"
)

// SyncJob is a self-contained unit of work: bring one local mirror in line with its remote.
type SyncJob struct {
	LocalPath     string
	RemoteURL     string
	Credentials   Credentials
	DefaultBranch string
	Descriptor    RepositoryDescriptor
}

// ID returns the identity of the job, shared with its descriptor.
func (j SyncJob) ID() string {
	return j.Descriptor.ID()
}

// BuildJob turns a classified descriptor into a SyncJob rooted at root.
// It never touches the network or the disk.
func BuildJob(
	descriptor RepositoryDescriptor,
	subfolder string,
	root string,
	credentials Credentials,
) SyncJob {
	return SyncJob{
		LocalPath:     filepath.Join(root, descriptor.Owner, subfolder, pathSegment(descriptor.Name)),
		RemoteURL:     descriptor.CloneURL,
		Credentials:   credentials,
		DefaultBranch: descriptor.DefaultBranch,
		Descriptor:    descriptor,
	}
}

// pathSegment strips characters that some platforms allow in display names but
// that would make an awkward directory name.
func pathSegment(name string) string {
	return strings.ReplaceAll(name, " ", "")
}
