package diagnosis

import (
	"context"
	"fmt"

	"carcare/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Classifier turns a symptom description into a diagnosis. The local Matcher
// and the remote LLM classifier both implement it.
type Classifier interface {
	Classify(ctx context.Context, description string) (domain.DiagnosisResult, error)
}

const maxBatchConcurrency = 4

func batchConcurrencyLimit(total int) int {
	if total < 1 {
		return 1
	}
	if total > maxBatchConcurrency {
		return maxBatchConcurrency
	}
	return total
}

// ClassifyAll classifies descriptions concurrently and returns results in
// input order. The first error cancels the remaining calls.
func ClassifyAll(ctx context.Context, c Classifier, descriptions []string) ([]domain.DiagnosisResult, error) {
	results := make([]domain.DiagnosisResult, len(descriptions))
	if len(descriptions) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrencyLimit(len(descriptions)))
	for i, description := range descriptions {
		g.Go(func() error {
			res, err := c.Classify(gctx, description)
			if err != nil {
				return fmt.Errorf("description %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
