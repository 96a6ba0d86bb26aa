package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"carcare/internal/domain"
)

type diagnosisResponse struct {
	PossibleProblem string          `json:"possibleProblem"`
	SuggestedAction string          `json:"suggestedAction"`
	Severity        string          `json:"severity"`
	Confidence      json.RawMessage `json:"confidence"`
}

func parseDiagnosisResponse(responseText string) (DiagnosisResult, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	// Models sometimes wrap the object in prose.
	start := strings.Index(responseText, "{")
	end := strings.LastIndex(responseText, "}")
	if start < 0 || end <= start {
		return DiagnosisResult{}, fmt.Errorf("no JSON object in LLM response: %s", responseText)
	}
	responseText = responseText[start : end+1]

	var parsed diagnosisResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return DiagnosisResult{}, fmt.Errorf("parsing LLM diagnosis response: %w (response: %s)", err, responseText)
	}

	problem := strings.TrimSpace(parsed.PossibleProblem)
	if problem == "" {
		return DiagnosisResult{}, fmt.Errorf("LLM response has no possibleProblem")
	}
	severity, err := domain.ParseSeverity(normalizeSeverity(parsed.Severity))
	if err != nil {
		return DiagnosisResult{}, err
	}
	confidence, err := parseConfidenceField(parsed.Confidence)
	if err != nil {
		return DiagnosisResult{}, err
	}

	return DiagnosisResult{
		PossibleProblem: problem,
		SuggestedAction: strings.TrimSpace(parsed.SuggestedAction),
		Severity:        severity,
		Confidence:      confidence,
	}, nil
}

func normalizeSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "high", "critical", "severe", "urgent":
		return string(domain.SeverityHigh)
	case "medium", "moderate":
		return string(domain.SeverityMedium)
	case "low", "minor":
		return string(domain.SeverityLow)
	default:
		return strings.TrimSpace(severity)
	}
}

func parseConfidenceField(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("LLM response has no confidence")
	}

	// Primary expected shape: 80
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		// Also accept "80" or "80%".
		var asString string
		if err := json.Unmarshal(raw, &asString); err != nil {
			return 0, fmt.Errorf("invalid confidence %s", raw)
		}
		asString = strings.TrimSuffix(strings.TrimSpace(asString), "%")
		value, err = strconv.ParseFloat(strings.TrimSpace(asString), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid confidence %q: %w", asString, err)
		}
	}
	if math.IsNaN(value) {
		return 0, fmt.Errorf("invalid confidence %s", raw)
	}
	return int(math.Round(math.Max(0, math.Min(100, value)))), nil
}
