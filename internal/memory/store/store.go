package store

import (
	"context"
	"time"

	"memoria/internal/models"
)

// Store defines the persistence operations for memories. Every operation
// that can touch more than one row takes an explicit user filter; isolation
// between users is enforced by callers passing the right filter, never by
// the backend.
type Store interface {
	// Upsert inserts the memory, replacing any row with the same ID.
	Upsert(ctx context.Context, mem *models.Memory) error

	// Get returns the memory with the given ID, or nil if it does not exist.
	Get(ctx context.Context, id string) (*models.Memory, error)

	// Delete removes the memory with the given ID. Deleting a missing ID is
	// not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes all memories owned by the given user.
	DeleteByUser(ctx context.Context, userID string) error

	// Search returns up to limit memories of the given user ranked by
	// similarity to vector, keeping only matches with score >= minScore.
	Search(ctx context.Context, userID string, vector []float32, limit int, minScore float32) ([]*models.Memory, error)

	// ListByTimeRange returns up to limit memories of the given user
	// created within [start, end].
	ListByTimeRange(ctx context.Context, userID string, start, end time.Time, limit int) ([]*models.Memory, error)
}
