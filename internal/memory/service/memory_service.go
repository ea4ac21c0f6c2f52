package service

import (
	"context"
	"time"

	"memoria/internal/config"
	"memoria/internal/embedding"
	"memoria/internal/llm"
	"memoria/internal/memory/extractor"
	"memoria/internal/memory/history"
	"memoria/internal/memory/store"
	"memoria/internal/models"
	"memoria/pkg/logger"
)

// Engine is the memory consolidation engine. Remember runs the full
// extract-retrieve-resolve-apply pipeline; the remaining methods are direct
// point operations against the store.
//
// Remember calls for the same user are serialized: the pipeline reads the
// candidate set before writing, and two interleaved runs could otherwise
// both ADD a memory the other should have seen. Calls for different users
// never block each other.
type Engine struct {
	extractor extractor.Extractor
	embedder  embedding.Embedding
	store     store.Store
	history   history.Recorder
	retriever *retriever
	resolver  *resolver
	applier   *applier
	locks     *userLocks
	log       *logger.Logger
}

// NewEngine wires the pipeline stages out of their collaborators.
func NewEngine(
	ext extractor.Extractor,
	emb embedding.Embedding,
	llmClient llm.Client,
	st store.Store,
	hist history.Recorder,
	log *logger.Logger,
	cfg config.ConsolidationConfig,
) *Engine {
	return &Engine{
		extractor: ext,
		embedder:  emb,
		store:     st,
		history:   hist,
		retriever: &retriever{
			embedder:      emb,
			store:         st,
			topK:          cfg.TopK,
			minScore:      cfg.MinScore,
			maxConcurrent: cfg.MaxConcurrentEmbeds,
		},
		resolver: &resolver{llm: llmClient},
		applier: &applier{
			store:    st,
			embedder: emb,
			history:  hist,
			log:      log,
		},
		locks: newUserLocks(),
		log:   log,
	}
}

// Remember ingests one utterance for one user: extract the facts it
// contains, retrieve the existing memories they are about, resolve each fact
// into an action, and apply the actions in order. It returns the actions
// that were applied. Input with no extractable facts is a successful no-op.
//
// Any stage failure aborts the call; only ApplyError leaves a partial
// prefix of the actions durable.
func (e *Engine) Remember(ctx context.Context, userID, text string) ([]models.ConsolidationAction, error) {
	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)

	facts, err := e.extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		e.log.WithUser(userID).Debug("no facts extracted, skipping consolidation")
		return nil, nil
	}

	candidates, vectors, err := e.retriever.retrieve(ctx, userID, facts)
	if err != nil {
		return nil, err
	}

	actions, err := e.resolver.resolve(ctx, facts, candidates)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Memory, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	if err := e.applier.apply(ctx, userID, actions, byID, vectors); err != nil {
		return nil, err
	}

	e.log.WithUser(userID).WithPayload(map[string]interface{}{
		"facts":   len(facts),
		"actions": len(actions),
	}).Info("consolidation complete")
	return actions, nil
}

// Recall returns up to limit memories of the user ranked by semantic
// similarity to the query, most similar first.
func (e *Engine) Recall(ctx context.Context, userID, query string, limit int) ([]*models.Memory, error) {
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &models.RetrievalError{Err: err}
	}
	return e.store.Search(ctx, userID, vector, limit, 0)
}

// Fetch returns the memory with the given ID, or nil if it does not exist.
func (e *Engine) Fetch(ctx context.Context, id string) (*models.Memory, error) {
	return e.store.Get(ctx, id)
}

// Rename replaces the content of an existing memory, re-embedding it and
// bumping UpdatedAt while keeping the ID and CreatedAt. It returns
// ErrMemoryNotFound when no memory has the given ID.
func (e *Engine) Rename(ctx context.Context, id, content string) (*models.Memory, error) {
	mem, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		return nil, models.ErrMemoryNotFound
	}

	e.locks.Lock(mem.UserID)
	defer e.locks.Unlock(mem.UserID)

	vector, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return nil, err
	}

	old := mem.Content
	mem.Content = content
	mem.Embedding = vector
	mem.UpdatedAt = time.Now()
	if err := e.store.Upsert(ctx, mem); err != nil {
		return nil, err
	}

	e.applier.record(ctx, &history.Entry{
		MemoryID:   mem.ID,
		UserID:     mem.UserID,
		Event:      models.ActionUpdate,
		OldContent: old,
		NewContent: content,
		CreatedAt:  mem.UpdatedAt,
	})
	return mem, nil
}

// Forget removes the memory with the given ID. It returns ErrMemoryNotFound
// when no memory has the given ID.
func (e *Engine) Forget(ctx context.Context, id string) error {
	mem, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if mem == nil {
		return models.ErrMemoryNotFound
	}

	e.locks.Lock(mem.UserID)
	defer e.locks.Unlock(mem.UserID)

	if err := e.store.Delete(ctx, id); err != nil {
		return err
	}

	e.applier.record(ctx, &history.Entry{
		MemoryID:   mem.ID,
		UserID:     mem.UserID,
		Event:      models.ActionDelete,
		OldContent: mem.Content,
		CreatedAt:  time.Now(),
	})
	return nil
}

// ListByTimeRange returns up to limit memories of the user created within
// [start, end].
func (e *Engine) ListByTimeRange(ctx context.Context, userID string, start, end time.Time, limit int) ([]*models.Memory, error) {
	return e.store.ListByTimeRange(ctx, userID, start, end, limit)
}

// PurgeUser removes every memory owned by the given user.
func (e *Engine) PurgeUser(ctx context.Context, userID string) error {
	e.locks.Lock(userID)
	defer e.locks.Unlock(userID)
	return e.store.DeleteByUser(ctx, userID)
}

// HistoryByMemory returns the change log of one memory, oldest first.
func (e *Engine) HistoryByMemory(ctx context.Context, memoryID string) ([]*history.Entry, error) {
	return e.history.ListByMemory(ctx, memoryID)
}

// HistoryByUser returns up to limit most recent change-log entries for one
// user.
func (e *Engine) HistoryByUser(ctx context.Context, userID string, limit int) ([]*history.Entry, error) {
	return e.history.ListByUser(ctx, userID, limit)
}
