package slackbot

import (
	"fmt"
	"strings"

	"carcare/internal/domain"
	"carcare/internal/telemetry"

	"github.com/slack-go/slack"
)

func severityEmoji(s domain.Severity) string {
	switch s {
	case domain.SeverityHigh:
		return ":red_circle:"
	case domain.SeverityMedium:
		return ":large_orange_circle:"
	default:
		return ":large_green_circle:"
	}
}

// FormatDiagnosis renders a result as mrkdwn. Fallback results render the
// same way as matched ones.
func FormatDiagnosis(symptom string, result DiagnosisResult) string {
	return fmt.Sprintf("> %s\n*Possible problem:* %s\n*Suggested action:* %s\n*Severity:* %s %s\n*Confidence:* %d%%",
		quoteSymptom(symptom),
		result.PossibleProblem,
		result.SuggestedAction,
		severityEmoji(result.Severity), result.Severity,
		result.Confidence)
}

func quoteSymptom(symptom string) string {
	return strings.Join(strings.Fields(symptom), " ")
}

func diagnosisBlocks(symptom string, result DiagnosisResult) []slack.Block {
	return []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, FormatDiagnosis(symptom, result), false, false),
			nil, nil,
		),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "Suggestions only. Have safety issues checked by a mechanic.", false, false),
		),
	}
}

func alertLevelEmoji(l telemetry.Level) string {
	switch l {
	case telemetry.LevelCritical:
		return ":rotating_light:"
	case telemetry.LevelWarning:
		return ":warning:"
	default:
		return ":information_source:"
	}
}

// FormatAlerts renders telemetry alerts, critical first, prefixed by the
// given user mentions when any alert is critical.
func FormatAlerts(alerts []Alert, mentionIDs []string) string {
	critical, warning := telemetry.CountByLevel(alerts)
	var b strings.Builder
	if critical > 0 && len(mentionIDs) > 0 {
		for _, id := range mentionIDs {
			fmt.Fprintf(&b, "<@%s> ", id)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "*Vehicle telemetry check:* %d critical, %d warning", critical, warning)
	for _, want := range []telemetry.Level{telemetry.LevelCritical, telemetry.LevelWarning, telemetry.LevelInfo} {
		for _, a := range alerts {
			if a.Level == want {
				fmt.Fprintf(&b, "\n%s *%s*: %s", alertLevelEmoji(a.Level), a.Component, a.Message)
			}
		}
	}
	return b.String()
}
