package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"memoria/internal/embedding"
	"memoria/internal/memory/store"
	"memoria/internal/models"
)

// retriever gathers the existing memories relevant to a batch of facts. It
// embeds every distinct fact, runs one vector search per fact, and unions
// the hits by memory ID so each candidate appears once no matter how many
// facts it matched.
type retriever struct {
	embedder      embedding.Embedding
	store         store.Store
	topK          int
	minScore      float32
	maxConcurrent int
}

// retrieve returns the deduplicated candidate set for the given facts plus
// the embedding of each distinct fact text, keyed by text. The vectors are
// handed to the applier later so ADD actions whose text equals a fact do not
// pay for a second embedding call.
func (r *retriever) retrieve(ctx context.Context, userID string, facts []models.Fact) ([]*models.Memory, map[string][]float32, error) {
	texts := distinctTexts(facts)
	if len(texts) == 0 {
		return nil, nil, nil
	}

	perFact := make([][]*models.Memory, len(texts))
	vectors := make(map[string][]float32, len(texts))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrent)
	for i, text := range texts {
		g.Go(func() error {
			vector, err := r.embedder.Embed(gctx, text)
			if err != nil {
				return err
			}
			hits, err := r.store.Search(gctx, userID, vector, r.topK, r.minScore)
			if err != nil {
				return err
			}
			mu.Lock()
			perFact[i] = hits
			vectors[text] = vector
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, &models.RetrievalError{Err: err}
	}

	// Union in fact order so the candidate list is deterministic for a
	// given set of search results.
	seen := make(map[string]bool)
	var candidates []*models.Memory
	for _, hits := range perFact {
		for _, hit := range hits {
			if seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true
			candidates = append(candidates, hit)
		}
	}
	return candidates, vectors, nil
}

// distinctTexts returns the unique fact texts in first-seen order.
func distinctTexts(facts []models.Fact) []string {
	seen := make(map[string]bool, len(facts))
	texts := make([]string, 0, len(facts))
	for _, fact := range facts {
		text := string(fact)
		if seen[text] {
			continue
		}
		seen[text] = true
		texts = append(texts, text)
	}
	return texts
}
