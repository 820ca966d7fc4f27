package extract

import (
	"context"

	"stubborn-archivist/internal/models"
)

// Extractor is the per-item extraction operation the runner drives. It must
// be stateless across invocations: any heavy resource (HTTP client,
// connections) is acquired and released inside one Extract call. Item-level
// problems are reported as a failed outcome, never as a raised fault.
type Extractor interface {
	Extract(ctx context.Context, url string) models.Outcome
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, url string) models.Outcome

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, url string) models.Outcome {
	return f(ctx, url)
}
