package services

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed abuse_rules.yaml
var defaultAbuseRules []byte

// PriorityRules promote a submission above the default medium priority.
type PriorityRules struct {
	UrgentKeywords         []string `yaml:"urgent_keywords"`
	HighKeywords           []string `yaml:"high_keywords"`
	DealershipUrgentVolume int      `yaml:"dealership_urgent_volume"`
	DealershipHighVolume   int      `yaml:"dealership_high_volume"`
}

// AbuseRules is the tunable part of the abuse heuristic.
type AbuseRules struct {
	SpamKeywords           []string      `yaml:"spam_keywords"`
	Priority               PriorityRules `yaml:"priority"`
	HighFrequencyThreshold int           `yaml:"high_frequency_threshold"`
}

// LoadAbuseRules parses the rule file at path, or the built-in rules when path is empty.
func LoadAbuseRules(path string) (*AbuseRules, error) {
	raw := defaultAbuseRules
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read abuse rules: %w", err)
		}
		raw = data
	}
	return ParseAbuseRules(raw)
}

func ParseAbuseRules(raw []byte) (*AbuseRules, error) {
	var rules AbuseRules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse abuse rules: %w", err)
	}
	if err := rules.validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

func (r *AbuseRules) validate() error {
	if r.HighFrequencyThreshold <= 0 {
		return errors.New("abuse rules: high_frequency_threshold must be positive")
	}
	if r.Priority.DealershipHighVolume <= 0 || r.Priority.DealershipUrgentVolume < r.Priority.DealershipHighVolume {
		return errors.New("abuse rules: dealership volumes must satisfy 0 < high <= urgent")
	}
	if len(r.Priority.UrgentKeywords) == 0 || len(r.Priority.HighKeywords) == 0 {
		return errors.New("abuse rules: priority keyword lists must not be empty")
	}
	return nil
}

// keywordPattern matches any of the phrases as whole words, ignoring case.
// A nil result means the list was empty.
func keywordPattern(phrases []string) *regexp.Regexp {
	return phrasePattern(phrases, `\b`)
}

// containsPattern matches any of the phrases anywhere in the text, ignoring
// case, so "urgent" also matches "urgently".
func containsPattern(phrases []string) *regexp.Regexp {
	return phrasePattern(phrases, "")
}

func phrasePattern(phrases []string, boundary string) *regexp.Regexp {
	quoted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			quoted = append(quoted, regexp.QuoteMeta(p))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)` + boundary + `(?:` + strings.Join(quoted, "|") + `)` + boundary)
}
