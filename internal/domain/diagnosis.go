package domain

import (
	"errors"
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	default:
		return "", fmt.Errorf("unknown severity %q (want low, medium or high)", s)
	}
}

func (s Severity) Valid() bool {
	_, err := ParseSeverity(string(s))
	return err == nil
}

// DiagnosticRule maps symptom terms to a diagnosis. Rules are loaded once at
// startup and treated as read-only afterwards.
type DiagnosticRule struct {
	ID         string   `yaml:"id" json:"id"`
	Keywords   []string `yaml:"keywords" json:"keywords"`
	Conditions []string `yaml:"conditions" json:"conditions,omitempty"`
	Problem    string   `yaml:"problem" json:"problem"`
	Action     string   `yaml:"action" json:"action"`
	Severity   Severity `yaml:"severity" json:"severity"`
	Priority   int      `yaml:"priority" json:"priority"`
}

type DiagnosisResult struct {
	PossibleProblem string   `json:"possibleProblem"`
	SuggestedAction string   `json:"suggestedAction"`
	Severity        Severity `json:"severity"`
	Confidence      int      `json:"confidence"`
}

var (
	// ErrInvalidRequest marks a description the classifier refuses to send
	// anywhere (missing or blank).
	ErrInvalidRequest = errors.New("invalid diagnosis request")
	// ErrUpstreamUnavailable marks transport or provider failures of a remote
	// diagnosis backend.
	ErrUpstreamUnavailable = errors.New("diagnosis upstream unavailable")
)
