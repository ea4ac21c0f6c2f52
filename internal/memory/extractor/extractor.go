package extractor

import (
	"context"

	"memoria/internal/models"
)

// Extractor turns one input utterance into zero or more atomic facts.
// An empty result means the input carried no factual content and is not an
// error. Duplicates within one call are allowed; deduplication against the
// knowledge base happens downstream during consolidation.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]models.Fact, error)
}
