package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultFetchRetries       = 3
	defaultRateLimitRetries   = 3
	defaultRateLimitMaxWait   = time.Minute
	languageMappingSectionKey = "language_mapping"
)

// Settings is the read-only configuration of one run.
type Settings struct {
	BackupPath           string           `yaml:"backup_path"            toml:"backup_path"`
	MaxConcurrentWorkers int              `yaml:"max_concurrent_workers" toml:"max_concurrent_workers"`
	ExcludeRepositories  []string         `yaml:"exclude_repositories"   toml:"exclude_repositories"`
	Platforms            []PlatformConfig `yaml:"platforms"              toml:"platforms"`
	LanguageMapping      LanguageMapping  `yaml:"language_mapping"       toml:"-"`
	ArchiveFolder        string           `yaml:"archive_folder"         toml:"archive_folder"`
	PruneBranches        bool             `yaml:"prune_branches"         toml:"prune_branches"`
	FetchRetries         int              `yaml:"fetch_retries"          toml:"fetch_retries"`
	RateLimit            RateLimitPolicy  `yaml:"rate_limit"             toml:"rate_limit"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// NewSettings reads, parses and validates a configuration file.
// Files ending in .toml are parsed as TOML, anything else as YAML.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var settings *Settings
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		settings, err = parseTOML(data)
	} else {
		settings, err = parseYAML(data)
	}
	if err != nil {
		return nil, err
	}

	for i := range settings.Platforms {
		settings.Platforms[i].Token = resolveToken(settings.Platforms[i].Token)
	}
	settings.applyDefaults()

	if validateErr := validate(settings); validateErr != nil {
		return nil, validateErr
	}

	return settings, nil
}

// RuleSet builds the validated classification rules of these settings.
func (s *Settings) RuleSet() (*RuleSet, error) {
	rules, err := NewRuleSet(s.LanguageMapping)
	if err != nil {
		return nil, err
	}
	return rules.WithArchiveFolder(s.ArchiveFolder)
}

// DenyList builds the exclusion list of these settings.
func (s *Settings) DenyList() DenyList {
	return NewDenyList(s.ExcludeRepositories)
}

func parseYAML(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &settings, nil
}

// parseTOML decodes the mapping separately because a TOML table decodes into a Go map
// and only the metadata remembers the order of its keys.
func parseTOML(data []byte) (*Settings, error) {
	var settings Settings
	if _, err := toml.Decode(string(data), &settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	var mapping struct {
		LanguageMapping map[string][]string `toml:"language_mapping"`
	}
	meta, err := toml.Decode(string(data), &mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", languageMappingSectionKey, err)
	}

	for _, key := range meta.Keys() {
		if len(key) != 2 || key[0] != languageMappingSectionKey {
			continue
		}
		settings.LanguageMapping = append(settings.LanguageMapping, ClassificationRule{
			Folder: key[1],
			Tokens: mapping.LanguageMapping[key[1]],
		})
	}

	return &settings, nil
}

func (s *Settings) applyDefaults() {
	if s.MaxConcurrentWorkers <= 0 {
		s.MaxConcurrentWorkers = runtime.NumCPU()
	}
	if s.FetchRetries <= 0 {
		s.FetchRetries = defaultFetchRetries
	}
	if s.RateLimit.MaxRetries <= 0 {
		s.RateLimit.MaxRetries = defaultRateLimitRetries
	}
	if s.RateLimit.MaxWait <= 0 {
		s.RateLimit.MaxWait = defaultRateLimitMaxWait
	}
	for i := range s.Platforms {
		s.Platforms[i].Kind = PlatformKind(strings.ToLower(string(s.Platforms[i].Kind)))
		if s.Platforms[i].Visibility == "" {
			s.Platforms[i].Visibility = VisibilityAll
		}
		s.Platforms[i].RateLimit = s.RateLimit
	}
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".gitbackup.yaml",
		".gitbackup.yml",
		".gitbackup.toml",
		"gitbackup.yaml",
		"gitbackup.yml",
		"gitbackup.toml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Debugf("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// validate checks for required configuration values.
func validate(settings *Settings) error {
	if settings.BackupPath == "" {
		return errors.New("backup_path is required")
	}

	if len(settings.Platforms) == 0 {
		return errors.New("at least one platform must be configured")
	}

	identities := make(map[string]int, len(settings.Platforms))
	for i, p := range settings.Platforms {
		if p.Kind == "" {
			return fmt.Errorf("platforms[%d].kind is required", i)
		}
		if first, dup := identities[p.ID()]; dup {
			return fmt.Errorf("platforms[%d] and platforms[%d] are both %q, set a distinct name", first, i, p.ID())
		}
		identities[p.ID()] = i
		if p.Token == "" {
			return fmt.Errorf(
				"platforms[%d].token is required (set inline, via ${ENV_VAR}, or as file path)",
				i,
			)
		}
		if !p.Visibility.IsValid() {
			return fmt.Errorf("platforms[%d].visibility %q is not one of all, public, private, internal", i, p.Visibility)
		}
	}

	for i, entry := range settings.ExcludeRepositories {
		if strings.Count(entry, "/") < 1 || strings.HasPrefix(entry, "/") || strings.HasSuffix(entry, "/") {
			return fmt.Errorf("exclude_repositories[%d] %q must look like owner/name", i, entry)
		}
	}

	if _, err := settings.RuleSet(); err != nil {
		return err
	}

	return nil
}
