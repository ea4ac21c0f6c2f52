package embedding

import "context"

// Embedding is the interface implemented by all embedding model clients.
// Vectors are fixed-dimensional and deterministic for a given text and
// model version; a failed call returns an error, never a partial vector.
type Embedding interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
