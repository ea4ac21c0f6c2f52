package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"memoria/internal/embedding"
	"memoria/internal/memory/history"
	"memoria/internal/memory/store"
	"memoria/internal/models"
	"memoria/pkg/logger"
)

// applier executes a validated action list against the store, strictly in
// order and fail-fast: the first failing action aborts the rest, leaving
// everything before it durable.
type applier struct {
	store    store.Store
	embedder embedding.Embedding
	history  history.Recorder
	log      *logger.Logger
}

// apply executes the actions for one user. candidates maps memory ID to the
// retrieved memory and supplies the original CreatedAt and old content for
// UPDATE and DELETE; vectors maps fact text to its already-computed
// embedding so ADDs reuse it when the action text matches.
func (a *applier) apply(ctx context.Context, userID string, actions []models.ConsolidationAction, candidates map[string]*models.Memory, vectors map[string][]float32) error {
	for i, action := range actions {
		var err error
		switch action.Event {
		case models.ActionAdd:
			err = a.applyAdd(ctx, userID, action, vectors)
		case models.ActionUpdate:
			err = a.applyUpdate(ctx, userID, action, candidates, vectors)
		case models.ActionDelete:
			err = a.applyDelete(ctx, userID, action, candidates)
		case models.ActionNone:
			// already captured, nothing to write
		}
		if err != nil {
			return &models.ApplyError{Index: i, Action: action, Err: err}
		}
	}
	return nil
}

func (a *applier) applyAdd(ctx context.Context, userID string, action models.ConsolidationAction, vectors map[string][]float32) error {
	vector, err := a.vectorFor(ctx, action.Text, vectors)
	if err != nil {
		return err
	}

	now := time.Now()
	mem := &models.Memory{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   action.Text,
		Embedding: vector,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.Upsert(ctx, mem); err != nil {
		return err
	}

	a.record(ctx, &history.Entry{
		MemoryID:   mem.ID,
		UserID:     userID,
		Event:      models.ActionAdd,
		NewContent: mem.Content,
		CreatedAt:  now,
	})
	return nil
}

func (a *applier) applyUpdate(ctx context.Context, userID string, action models.ConsolidationAction, candidates map[string]*models.Memory, vectors map[string][]float32) error {
	old := candidates[action.ID]

	vector, err := a.vectorFor(ctx, action.Text, vectors)
	if err != nil {
		return err
	}

	now := time.Now()
	mem := &models.Memory{
		ID:        action.ID,
		UserID:    userID,
		Content:   action.Text,
		Embedding: vector,
		CreatedAt: old.CreatedAt,
		UpdatedAt: now,
	}
	if err := a.store.Upsert(ctx, mem); err != nil {
		return err
	}

	a.record(ctx, &history.Entry{
		MemoryID:   mem.ID,
		UserID:     userID,
		Event:      models.ActionUpdate,
		OldContent: old.Content,
		NewContent: mem.Content,
		CreatedAt:  now,
	})
	return nil
}

func (a *applier) applyDelete(ctx context.Context, userID string, action models.ConsolidationAction, candidates map[string]*models.Memory) error {
	old := candidates[action.ID]

	if err := a.store.Delete(ctx, action.ID); err != nil {
		return err
	}

	a.record(ctx, &history.Entry{
		MemoryID:   action.ID,
		UserID:     userID,
		Event:      models.ActionDelete,
		OldContent: old.Content,
		CreatedAt:  time.Now(),
	})
	return nil
}

// vectorFor returns the embedding for text, reusing a precomputed vector
// when one is present in vectors.
func (a *applier) vectorFor(ctx context.Context, text string, vectors map[string][]float32) ([]float32, error) {
	if v, ok := vectors[text]; ok {
		return v, nil
	}
	return a.embedder.Embed(ctx, text)
}

// record appends to the change history. The history is an audit trail, so a
// failure here is logged and swallowed rather than undoing a store mutation
// that already happened.
func (a *applier) record(ctx context.Context, entry *history.Entry) {
	if err := a.history.Record(ctx, entry); err != nil {
		a.log.WithUser(entry.UserID).WithError(models.ErrorInfo{
			Message: err.Error(),
		}).Warn("failed to record history entry")
	}
}
