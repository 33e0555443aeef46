package entities

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FallbackFolder receives every repository that no rule matched.
const FallbackFolder = "other"

// ClassificationRule maps a target subfolder to the topics or languages that select it.
type ClassificationRule struct {
	Folder string
	Tokens []string
}

// RuleSet is an ordered list of classification rules: the first matching rule wins.
type RuleSet struct {
	rules         []ClassificationRule
	tokens        []map[string]struct{}
	archiveFolder string
}

// Classification is the result of classifying one descriptor.
type Classification struct {
	Folder string
	// Unmapped is set when the descriptor reported a language but nothing matched it.
	Unmapped bool
}

// NewRuleSet validates the rules, keeping their order.
func NewRuleSet(rules []ClassificationRule) (*RuleSet, error) {
	set := &RuleSet{
		rules:  make([]ClassificationRule, 0, len(rules)),
		tokens: make([]map[string]struct{}, 0, len(rules)),
	}
	seen := make(map[string]struct{}, len(rules))

	for i, rule := range rules {
		if err := validateFolder(rule.Folder); err != nil {
			return nil, NewSyncError(ErrorKindClassificationConfig, fmt.Sprintf("language_mapping[%d]", i), err)
		}
		if _, dup := seen[rule.Folder]; dup {
			return nil, NewSyncError(ErrorKindClassificationConfig, "language_mapping",
				fmt.Errorf("folder %q is configured twice", rule.Folder))
		}
		if len(rule.Tokens) == 0 {
			return nil, NewSyncError(ErrorKindClassificationConfig, "language_mapping",
				fmt.Errorf("folder %q has no tokens", rule.Folder))
		}

		tokens := make(map[string]struct{}, len(rule.Tokens))
		for _, token := range rule.Tokens {
			normalized := strings.ToLower(strings.TrimSpace(token))
			if normalized == "" {
				return nil, NewSyncError(ErrorKindClassificationConfig, "language_mapping",
					fmt.Errorf("folder %q has an empty token", rule.Folder))
			}
			tokens[normalized] = struct{}{}
		}

		seen[rule.Folder] = struct{}{}
		set.rules = append(set.rules, rule)
		set.tokens = append(set.tokens, tokens)
	}

	return set, nil
}

// WithArchiveFolder routes archived repositories to folder before any rule is tested.
func (s *RuleSet) WithArchiveFolder(folder string) (*RuleSet, error) {
	if folder == "" {
		return s, nil
	}
	if err := validateFolder(folder); err != nil {
		return nil, NewSyncError(ErrorKindClassificationConfig, "archive_folder", err)
	}
	clone := *s
	clone.archiveFolder = folder
	return &clone, nil
}

// Classify picks the subfolder for a descriptor: topics first, then primary language, then the fallback.
func (s *RuleSet) Classify(descriptor RepositoryDescriptor) Classification {
	if s.archiveFolder != "" && descriptor.Archived {
		return Classification{Folder: s.archiveFolder}
	}

	if folder, ok := s.match(descriptor.Topics); ok {
		return Classification{Folder: folder}
	}

	if descriptor.PrimaryLanguage != "" {
		if folder, ok := s.match([]string{descriptor.PrimaryLanguage}); ok {
			return Classification{Folder: folder}
		}
		return Classification{Folder: FallbackFolder, Unmapped: true}
	}

	return Classification{Folder: FallbackFolder}
}

func (s *RuleSet) match(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	for i, tokens := range s.tokens {
		for _, candidate := range candidates {
			if _, ok := tokens[strings.ToLower(candidate)]; ok {
				return s.rules[i].Folder, true
			}
		}
	}
	return "", false
}

func validateFolder(folder string) error {
	switch {
	case strings.TrimSpace(folder) == "":
		return errors.New("folder name is empty")
	case folder == "." || folder == "..":
		return fmt.Errorf("folder %q is not a valid directory name", folder)
	case strings.ContainsAny(folder, `/\`):
		return fmt.Errorf("folder %q must not contain a path separator", folder)
	}
	return nil
}

// LanguageMapping is the configured folder → tokens mapping, in document order.
type LanguageMapping []ClassificationRule

// UnmarshalYAML keeps the mapping order, which a Go map would lose.
func (m *LanguageMapping) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		rules := make(LanguageMapping, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			var tokens []string
			if err := value.Content[i+1].Decode(&tokens); err != nil {
				return fmt.Errorf("language_mapping.%s: %w", value.Content[i].Value, err)
			}
			rules = append(rules, ClassificationRule{Folder: value.Content[i].Value, Tokens: tokens})
		}
		*m = rules
		return nil
	case yaml.SequenceNode:
		var entries []struct {
			Folder string   `yaml:"folder"`
			Tokens []string `yaml:"tokens"`
		}
		if err := value.Decode(&entries); err != nil {
			return fmt.Errorf("language_mapping: %w", err)
		}
		rules := make(LanguageMapping, 0, len(entries))
		for _, entry := range entries {
			rules = append(rules, ClassificationRule{Folder: entry.Folder, Tokens: entry.Tokens})
		}
		*m = rules
		return nil
	default:
		return fmt.Errorf("language_mapping must be a mapping or a list, line %d", value.Line)
	}
}
