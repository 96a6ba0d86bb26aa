package llm

import (
	"context"
	"fmt"
	"strings"

	"carcare/internal/config"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"
const defaultGeminiModel = "gemini-2.5-flash"

// Provider sends one system/user prompt pair to a hosted model and returns
// the raw text of its reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error)
}

// NewProvider builds the provider selected by cfg.DiagnosisBackend.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	model := strings.TrimSpace(cfg.LLMModel)
	switch cfg.DiagnosisBackend {
	case config.BackendAnthropic:
		if model == "" {
			model = defaultAnthropicModel
		}
		return NewAnthropicProvider(cfg.AnthropicAPIKey, model, cfg.AnthropicBaseURL), nil
	case config.BackendOpenAI:
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIProvider(cfg.OpenAIAPIKey, model, cfg.OpenAIBaseURL), nil
	case config.BackendGemini:
		if model == "" {
			model = defaultGeminiModel
		}
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, model, cfg.GeminiBaseURL)
	default:
		return nil, fmt.Errorf("no LLM provider for diagnosis backend %q", cfg.DiagnosisBackend)
	}
}
