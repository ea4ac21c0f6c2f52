package embedding

import (
	"context"
	"time"

	"memoria/pkg/ratelimiter"
)

// RateLimitedModel wraps an Embedding with a rate limiter so the per-fact
// retrieval fan-out cannot exceed the embedding provider's request budget.
// A call that is not immediately allowed waits, honoring ctx cancellation.
type RateLimitedModel struct {
	inner   Embedding
	limiter ratelimiter.RateLimiter
}

// NewRateLimitedModel creates a rate-limiting decorator around inner.
func NewRateLimitedModel(inner Embedding, limiter ratelimiter.RateLimiter) *RateLimitedModel {
	return &RateLimitedModel{inner: inner, limiter: limiter}
}

func (m *RateLimitedModel) wait(ctx context.Context) error {
	for !m.limiter.Allow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

// Embed acquires one rate-limit token before delegating.
func (m *RateLimitedModel) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.inner.Embed(ctx, text)
}

// EmbedBatch acquires one rate-limit token per text before delegating.
func (m *RateLimitedModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for range texts {
		if err := m.wait(ctx); err != nil {
			return nil, err
		}
	}
	return m.inner.EmbedBatch(ctx, texts)
}
