package testutils

import (
	"time"

	"github.com/papercomputeco/muninn/pkg/memory"
)

// NewTestMemory creates a memory with sensible defaults for tests.
func NewTestMemory(id string, typ memory.Type, content string) memory.Memory {
	now := time.Now().UTC()
	return memory.Memory{
		ID:        id,
		Type:      typ,
		Content:   content,
		Salience:  memory.DefaultSalience,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
