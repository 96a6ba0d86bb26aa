// Package diagnosis classifies free-text vehicle symptom descriptions against
// a fixed table of keyword rules.
//
// Matching is plain substring containment on the lowercased input: there is
// no tokenization or stemming, so a keyword like "hot" also matches inside
// "shot".
package diagnosis

import (
	"context"
	"math"
	"strings"

	"carcare/internal/domain"
)

const (
	keywordWeight     = 3
	conditionWeight   = 2
	multiKeywordBonus = 2
	minMatchScore     = 5

	confidenceBase     = 30
	maxConfidence      = 95
	fallbackConfidence = 25
)

// Match is the outcome of scoring one rule against one normalized input.
type Match struct {
	Keywords   int
	Conditions int
	Score      int
}

// ScoreRule scores rule against text, which must already be normalized.
func ScoreRule(rule domain.DiagnosticRule, text string) Match {
	var m Match
	for _, kw := range rule.Keywords {
		if kw != "" && strings.Contains(text, kw) {
			m.Keywords++
		}
	}
	for _, cond := range rule.Conditions {
		if cond != "" && strings.Contains(text, cond) {
			m.Conditions++
		}
	}
	m.Score = m.Keywords*keywordWeight + m.Conditions*conditionWeight
	if m.Keywords > 1 {
		m.Score += multiKeywordBonus * m.Keywords
	}
	m.Score += rule.Priority
	return m
}

// Confidence converts a winning match into a percentage. Rules with no terms
// yield 0.
func Confidence(rule domain.DiagnosticRule, m Match) int {
	total := len(rule.Keywords) + len(rule.Conditions)
	if total == 0 {
		return 0
	}
	pct := float64(m.Keywords+m.Conditions)/float64(total)*100 + confidenceBase
	if pct > maxConfidence {
		pct = maxConfidence
	}
	if pct < 0 {
		pct = 0
	}
	return int(math.Round(pct))
}

// selectRule returns the index of the highest scoring rule with at least one
// keyword hit, or -1. Ties keep the earlier rule.
func selectRule(rules []domain.DiagnosticRule, text string) (int, Match) {
	best := -1
	var bestMatch Match
	for i, rule := range rules {
		m := ScoreRule(rule, text)
		if m.Keywords == 0 {
			continue
		}
		if best < 0 || m.Score > bestMatch.Score {
			best = i
			bestMatch = m
		}
	}
	return best, bestMatch
}

// FallbackResult is returned when no rule clears the match threshold.
func FallbackResult() domain.DiagnosisResult {
	return domain.DiagnosisResult{
		PossibleProblem: "Unable to determine specific issue",
		SuggestedAction: "Provide more specific details about the symptoms, when they occur, and any sounds or sensations. Consider consulting a qualified mechanic for a professional diagnosis.",
		Severity:        domain.SeverityMedium,
		Confidence:      fallbackConfidence,
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Matcher is the local rule-based classifier. It holds its own normalized
// copy of the rule table and is safe for concurrent use.
type Matcher struct {
	rules []domain.DiagnosticRule
}

func NewMatcher(rules []domain.DiagnosticRule) *Matcher {
	normalized := cloneRules(rules)
	for i := range normalized {
		normalized[i].Keywords = normalizeTerms(normalized[i].Keywords)
		normalized[i].Conditions = normalizeTerms(normalized[i].Conditions)
		if sev, err := domain.ParseSeverity(string(normalized[i].Severity)); err == nil {
			normalized[i].Severity = sev
		}
	}
	return &Matcher{rules: normalized}
}

func NewDefaultMatcher() *Matcher {
	return NewMatcher(builtinRules)
}

func normalizeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = normalizeText(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Diagnose never fails: weak or absent matches produce FallbackResult.
func (m *Matcher) Diagnose(description string) domain.DiagnosisResult {
	text := normalizeText(description)
	idx, match := selectRule(m.rules, text)
	if idx < 0 || match.Score < minMatchScore {
		return FallbackResult()
	}
	rule := m.rules[idx]
	return domain.DiagnosisResult{
		PossibleProblem: rule.Problem,
		SuggestedAction: rule.Action,
		Severity:        rule.Severity,
		Confidence:      Confidence(rule, match),
	}
}

// Classify implements Classifier. The error is always nil.
func (m *Matcher) Classify(_ context.Context, description string) (domain.DiagnosisResult, error) {
	return m.Diagnose(description), nil
}

// Explain reports the winning rule ID and its match for description. ok is
// false when the fallback would be returned.
func (m *Matcher) Explain(description string) (ruleID string, match Match, ok bool) {
	idx, match := selectRule(m.rules, normalizeText(description))
	if idx < 0 || match.Score < minMatchScore {
		return "", match, false
	}
	return m.rules[idx].ID, match, true
}

// Rules returns a copy of the normalized rule table.
func (m *Matcher) Rules() []domain.DiagnosticRule {
	return cloneRules(m.rules)
}
