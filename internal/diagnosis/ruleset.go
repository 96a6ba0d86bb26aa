package diagnosis

import (
	"fmt"
	"os"
	"strings"

	"carcare/internal/domain"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Rules []domain.DiagnosticRule `yaml:"rules"`
}

// LoadRules reads a YAML rule table that replaces the built-in one.
func LoadRules(path string) ([]domain.DiagnosticRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}
	if err := ValidateRules(f.Rules); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Rules, nil
}

func ValidateRules(rules []domain.DiagnosticRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("rule table is empty")
	}
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		name := r.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		if r.ID != "" {
			if seen[r.ID] {
				return fmt.Errorf("rule %s: duplicate id", name)
			}
			seen[r.ID] = true
		}
		if strings.TrimSpace(r.Problem) == "" {
			return fmt.Errorf("rule %s: problem is required", name)
		}
		if strings.TrimSpace(r.Action) == "" {
			return fmt.Errorf("rule %s: action is required", name)
		}
		if len(normalizeTerms(r.Keywords)) == 0 {
			return fmt.Errorf("rule %s: at least one keyword is required", name)
		}
		if !r.Severity.Valid() {
			return fmt.Errorf("rule %s: invalid severity %q", name, r.Severity)
		}
	}
	return nil
}

// NewMatcherFromFile loads path when set and falls back to the built-in table
// otherwise.
func NewMatcherFromFile(path string) (*Matcher, error) {
	if strings.TrimSpace(path) == "" {
		return NewDefaultMatcher(), nil
	}
	rules, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return NewMatcher(rules), nil
}
