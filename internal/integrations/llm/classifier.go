package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carcare/internal/domain"

	"go.uber.org/zap"
)

const malformedProblem = "Unable to interpret diagnosis"
const malformedAction = "The diagnosis service returned an unexpected answer. Describe the symptom again or have the vehicle inspected by a mechanic."
const malformedConfidence = 50

// Classifier diagnoses symptoms by asking a hosted model. It satisfies the
// same contract as the local rule matcher.
type Classifier struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

func NewClassifier(provider Provider, timeout time.Duration, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{provider: provider, timeout: timeout, logger: logger}
}

// MalformedResult is returned when the model answers with something that
// cannot be read as a diagnosis.
func MalformedResult() DiagnosisResult {
	return DiagnosisResult{
		PossibleProblem: malformedProblem,
		SuggestedAction: malformedAction,
		Severity:        domain.SeverityMedium,
		Confidence:      malformedConfidence,
	}
}

func (c *Classifier) Classify(ctx context.Context, description string) (DiagnosisResult, error) {
	if strings.TrimSpace(description) == "" {
		return DiagnosisResult{}, fmt.Errorf("empty symptom description: %w", domain.ErrInvalidRequest)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	systemPrompt, userPrompt := buildPrompts(description)
	started := time.Now()
	responseText, usage, err := c.provider.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		c.logger.Warn("llm diagnosis failed",
			zap.String("backend", c.provider.Name()),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return DiagnosisResult{}, fmt.Errorf("%s: %w: %w", c.provider.Name(), domain.ErrUpstreamUnavailable, err)
	}
	c.logger.Info("llm diagnosis response",
		zap.String("backend", c.provider.Name()),
		zap.Int("size", len(responseText)),
		zap.Int64("tokens_in", usage.InputTokens),
		zap.Int64("tokens_out", usage.OutputTokens),
		zap.Int64("cache_create", usage.CacheCreationInputTokens),
		zap.Int64("cache_read", usage.CacheReadInputTokens),
		zap.Duration("elapsed", time.Since(started)))

	result, err := parseDiagnosisResponse(responseText)
	if err != nil {
		c.logger.Warn("llm diagnosis malformed", zap.String("backend", c.provider.Name()), zap.Error(err))
		return MalformedResult(), nil
	}
	c.logger.Debug("llm diagnosis",
		zap.String("problem", result.PossibleProblem),
		zap.String("severity", string(result.Severity)),
		zap.Int("confidence", result.Confidence))
	return result, nil
}
