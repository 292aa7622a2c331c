package domain

import "context"

// Embedder vectorizes a batch of texts in one provider call. Implementations
// do not cache and do not retry; callers batch to amortize round-trips and own
// the retry policy.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the fixed vector length D.
	Dimensions() int
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbedOne is a convenience for the single-text case (query embedding).
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
