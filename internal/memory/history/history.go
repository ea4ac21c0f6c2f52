package history

import (
	"context"
	"time"

	"memoria/internal/models"
)

// Entry is one change-log record: which memory changed, how, and what the
// content was before and after.
type Entry struct {
	MemoryID   string             `bson:"memory_id" json:"memory_id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Event      models.ActionEvent `bson:"event" json:"event"`
	OldContent string             `bson:"old_content,omitempty" json:"old_content,omitempty"`
	NewContent string             `bson:"new_content,omitempty" json:"new_content,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Recorder is the append-only change log for consolidation actions. It is
// an audit trail: recording failures are reported to the caller but must
// never abort a consolidation that already mutated the primary store.
type Recorder interface {
	// Record appends one entry to the log.
	Record(ctx context.Context, entry *Entry) error

	// ListByMemory returns the change log of one memory, oldest first.
	ListByMemory(ctx context.Context, memoryID string) ([]*Entry, error)

	// ListByUser returns up to limit most recent entries for one user.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error)
}
