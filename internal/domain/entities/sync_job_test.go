//go:build unit

package entities_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
	"github.com/rios0rios0/gitbackup/test/domain/entitybuilders"
)

func TestBuildJob(t *testing.T) {
	t.Parallel()

	t.Run("should lay the mirror out as root/owner/subfolder/name", func(t *testing.T) {
		t.Parallel()

		// given
		descriptor := entitybuilders.NewDescriptorBuilder().
			WithOwner("alice").
			WithName("tool").
			WithCloneURL("https://github.com/alice/tool.git").
			BuildDescriptor()
		credentials := entities.Credentials{Username: "x-access-token", Token: "secret"}

		// when
		job := entities.BuildJob(descriptor, "go", "/backups", credentials)

		// then
		assert.Equal(t, filepath.Join("/backups", "alice", "go", "tool"), job.LocalPath)
		assert.Equal(t, "https://github.com/alice/tool.git", job.RemoteURL)
		assert.Equal(t, credentials, job.Credentials)
		assert.Equal(t, descriptor.ID(), job.ID())
	})

	t.Run("should never embed the token in the remote URL", func(t *testing.T) {
		t.Parallel()

		// given
		descriptor := entitybuilders.NewDescriptorBuilder().BuildDescriptor()

		// when
		job := entities.BuildJob(descriptor, "other", "/backups", entities.Credentials{Token: "secret"})

		// then
		assert.NotContains(t, job.RemoteURL, "secret")
	})

	t.Run("should strip spaces from the repository directory", func(t *testing.T) {
		t.Parallel()

		// given
		descriptor := entitybuilders.NewDescriptorBuilder().WithOwner("alice").WithName("my tool").BuildDescriptor()

		// when
		job := entities.BuildJob(descriptor, "other", "/backups", entities.Credentials{})

		// then
		assert.Equal(t, filepath.Join("/backups", "alice", "other", "mytool"), job.LocalPath)
	})
}

func TestCredentialsString(t *testing.T) {
	t.Parallel()

	t.Run("should redact the token in every format", func(t *testing.T) {
		t.Parallel()

		// given
		credentials := entities.Credentials{Username: "oauth2", Token: "glpat-secret"}

		// when
		plain := credentials.String()
		goSyntax := credentials.GoString()

		// then
		assert.NotContains(t, plain, "glpat-secret")
		assert.NotContains(t, goSyntax, "glpat-secret")
		assert.Contains(t, plain, "oauth2")
	})
}
