// Package embeddings defines the narrow interface to the external embedding
// collaborator. The store treats embedding as synchronous and requires a
// fixed dimensionality for the lifetime of one backing file.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
