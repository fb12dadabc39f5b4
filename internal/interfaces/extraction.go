package interfaces

import (
	"context"

	"github.com/ternarybob/aestimo/internal/models"
)

// ExtractionService is the consumed contract of the external extraction
// provider. Implementations translate provider failures into the gateway
// error taxonomy (ErrRateLimited, ErrTimeout, ErrInvalidResponse).
type ExtractionService interface {
	// Extract derives departmental summaries and line items from document
	// text.
	Extract(ctx context.Context, documentText string) (*models.ExtractionResult, error)

	// Recommend returns ranked vendor/model candidates for one extracted
	// item. The ranking signal is produced by the provider and treated as
	// opaque; callers only order and truncate.
	Recommend(ctx context.Context, item models.ExtractedItem) ([]models.Recommendation, error)
}
