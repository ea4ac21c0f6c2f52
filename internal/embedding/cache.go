package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CachedModel wraps an Embedding with a Redis read-through cache.
// Embeddings are deterministic for a given text and model version, so a hit
// is always valid while the namespace (provider + model name) is unchanged.
// Cache errors are treated as misses: the inner model remains the source of
// truth and a degraded Redis never fails an Embed call.
type CachedModel struct {
	inner     Embedding
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
}

// NewCachedModel creates a caching decorator around inner. namespace should
// identify the provider and model so that switching models never serves
// vectors of the wrong dimensionality. ttl of zero stores entries without
// expiry.
func NewCachedModel(inner Embedding, rdb *redis.Client, namespace string, ttl time.Duration) *CachedModel {
	return &CachedModel{inner: inner, rdb: rdb, namespace: namespace, ttl: ttl}
}

func (m *CachedModel) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s", m.namespace, hex.EncodeToString(sum[:]))
}

// Embed returns the cached vector for text, falling back to the inner model
// on a miss and storing the result.
func (m *CachedModel) Embed(ctx context.Context, text string) ([]float32, error) {
	key := m.key(text)

	raw, err := m.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var vector []float32
		if jsonErr := json.Unmarshal(raw, &vector); jsonErr == nil && len(vector) > 0 {
			return vector, nil
		}
		// Corrupt entry; drop it and re-embed.
		m.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	vector, err := m.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(vector); err == nil {
		m.rdb.Set(ctx, key, raw, m.ttl)
	}
	return vector, nil
}

// EmbedBatch resolves each text through the cache, embedding only the
// misses with a single inner batch call.
func (m *CachedModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missed []string
	var missedIdx []int

	for i, text := range texts {
		raw, err := m.rdb.Get(ctx, m.key(text)).Bytes()
		if err == nil {
			var vector []float32
			if jsonErr := json.Unmarshal(raw, &vector); jsonErr == nil && len(vector) > 0 {
				vectors[i] = vector
				continue
			}
		}
		missed = append(missed, text)
		missedIdx = append(missedIdx, i)
	}

	if len(missed) > 0 {
		fresh, err := m.inner.EmbedBatch(ctx, missed)
		if err != nil {
			return nil, err
		}
		if len(fresh) != len(missed) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(missed), len(fresh))
		}
		for j, vector := range fresh {
			vectors[missedIdx[j]] = vector
			if raw, err := json.Marshal(vector); err == nil {
				m.rdb.Set(ctx, m.key(missed[j]), raw, m.ttl)
			}
		}
	}

	return vectors, nil
}
