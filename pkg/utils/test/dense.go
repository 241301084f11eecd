package testutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/muninn/pkg/retrieval"
)

// FakeDenseSearcher returns canned nearest-neighbour hits.
type FakeDenseSearcher struct {
	Hits []retrieval.DenseHit

	// Fail causes DenseSearch to return an error.
	Fail bool

	// Calls counts DenseSearch invocations.
	Calls int
}

func (f *FakeDenseSearcher) DenseSearch(_ context.Context, _ []float32, k int) ([]retrieval.DenseHit, error) {
	f.Calls++
	if f.Fail {
		return nil, fmt.Errorf("dense index unavailable")
	}
	if len(f.Hits) > k {
		return f.Hits[:k], nil
	}
	return f.Hits, nil
}
