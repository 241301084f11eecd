package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed input, such as an unknown
	// memory type or empty content.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound is returned when an operation references an unknown id.
	ErrNotFound = errors.New("memory not found")

	// ErrStorage is returned when the backing file cannot be read or
	// written, or when a write path cannot safely proceed (for example
	// the embedder is unreachable during remember).
	ErrStorage = errors.New("storage failed")

	// ErrEmbedding is returned when embedding generation fails. It wraps
	// ErrStorage: an unreachable embedder makes the write path unsafe, so
	// callers matching on ErrStorage catch it too.
	ErrEmbedding = fmt.Errorf("%w: embedding failed", ErrStorage)
)
