package entities

import (
	"net/url"
	"strings"
	"time"
)

// PlatformKind identifies a hosting provider implementation.
type PlatformKind string

const (
	PlatformGitHub PlatformKind = "github"
	PlatformGitLab PlatformKind = "gitlab"
)

const (
	defaultGitHubServer     = "https://api.github.com"
	defaultGitLabServer     = "https://gitlab.com"
	defaultGitLabAPIVersion = 4
	redacted                = "[REDACTED]"
)

// RateLimitPolicy controls how a listing behaves when the provider throttles it.
type RateLimitPolicy struct {
	MaxRetries int           `yaml:"max_retries" toml:"max_retries"`
	MaxWait    time.Duration `yaml:"max_wait"    toml:"max_wait"`
}

// PlatformConfig describes a single configured platform account.
type PlatformConfig struct {
	Kind       PlatformKind `yaml:"kind"        toml:"kind"`
	Name       string       `yaml:"name"        toml:"name"`   // optional label, defaults to kind@host
	Server     string       `yaml:"server"      toml:"server"` // defaults per kind
	APIVersion int          `yaml:"api_version" toml:"api_version"`
	Username   string       `yaml:"username"    toml:"username"`
	Token      string       `yaml:"token"       toml:"token"` // inline, ${ENV_VAR}, or file path
	Visibility Visibility   `yaml:"visibility"  toml:"visibility"`

	RateLimit RateLimitPolicy `yaml:"-" toml:"-"`
}

// ServerURL returns the configured server or the default one for the kind.
func (c PlatformConfig) ServerURL() string {
	server := strings.TrimRight(c.Server, "/")
	if server == "" {
		switch c.Kind {
		case PlatformGitHub:
			return defaultGitHubServer
		case PlatformGitLab:
			return defaultGitLabServer
		}
		return ""
	}
	if !strings.Contains(server, "://") {
		server = "https://" + server
	}
	return server
}

// Version returns the API version, defaulting per kind.
func (c PlatformConfig) Version() int {
	if c.APIVersion > 0 {
		return c.APIVersion
	}
	if c.Kind == PlatformGitLab {
		return defaultGitLabAPIVersion
	}
	return 0
}

// ID returns the platform identity used in descriptor and job identities.
func (c PlatformConfig) ID() string {
	if c.Name != "" {
		return c.Name
	}
	host := c.ServerURL()
	if parsed, err := url.Parse(host); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	return string(c.Kind) + "@" + host
}

// String renders the config without its token.
func (c PlatformConfig) String() string {
	return c.ID() + " (user=" + c.Username + ", token=" + redacted + ")"
}

// Credentials is the authenticated-transport handle handed to sync jobs.
type Credentials struct {
	Username string
	Token    string
}

// IsEmpty reports whether no token is attached.
func (c Credentials) IsEmpty() bool {
	return c.Token == ""
}

func (c Credentials) String() string {
	if c.IsEmpty() {
		return c.Username
	}
	return c.Username + ":" + redacted
}

// GoString keeps %#v from printing the token.
func (c Credentials) GoString() string {
	return "entities.Credentials{" + c.String() + "}"
}
