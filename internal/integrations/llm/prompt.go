package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxDescriptionChars = 4000

const systemPrompt = `You are an automotive diagnostic assistant. A driver describes a symptom of their car in plain language.

Reply with a single JSON object and nothing else:
{"possibleProblem": "<most likely cause>", "suggestedAction": "<what the driver should do next>", "severity": "low" | "medium" | "high", "confidence": <integer 0-100>}

Rules:
- severity "high" means the car may be unsafe to drive or further damage is likely.
- confidence is how sure you are, not how serious the problem is.
- If the description is not about a vehicle, say so in possibleProblem and use confidence below 30.
- No markdown, no commentary outside the JSON object.`

func buildPrompts(description string) (string, string) {
	description = strings.TrimSpace(description)
	if len(description) > maxDescriptionChars {
		cut := maxDescriptionChars
		for cut > 0 && !utf8.RuneStart(description[cut]) {
			cut--
		}
		description = description[:cut] + "\n...(truncated)"
	}
	userPrompt := fmt.Sprintf("Symptom description:\n%s", description)
	return systemPrompt, userPrompt
}
