package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/retrieval"
)

// HashingEmbedder is a deterministic test embedder. It hashes each token of
// the input into a fixed number of buckets and L2-normalizes the result, so
// texts sharing words get similar vectors without any model dependency.
type HashingEmbedder struct {
	Dimensions int
}

// NewHashingEmbedder creates a hashing embedder with the given
// dimensionality. Zero defaults to 64.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims == 0 {
		dims = 64
	}
	return &HashingEmbedder{Dimensions: dims}
}

func (h *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.Dimensions)
	for _, token := range retrieval.Tokenize(text) {
		f := fnv.New32a()
		f.Write([]byte(token))
		vec[int(f.Sum32())%h.Dimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (h *HashingEmbedder) Close() error {
	return nil
}

// FailingEmbedder always returns an error. Used to exercise degraded recall
// and write-path rollback behavior.
type FailingEmbedder struct{}

func (f *FailingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("%w: embedder unavailable", memory.ErrEmbedding)
}

func (f *FailingEmbedder) Close() error {
	return nil
}
