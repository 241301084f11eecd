// Package memory defines the core data model for the muninn memory store.
//
// A Memory is the atomic unit: a piece of classified text with an embedding,
// extracted entities, topic tags, and a salience weight. Memories are
// write-once for id, type, content, and embedding; only salience, the
// entity/topic sets (additive), and updated_at may change after creation.
package memory

import "time"

// Type classifies a memory.
type Type string

const (
	// Episodic memories record specific events or conversation turns,
	// anchored to a point in time.
	Episodic Type = "episodic"

	// Semantic memories hold general facts and preferences.
	Semantic Type = "semantic"

	// Procedural memories capture ordered workflows.
	Procedural Type = "procedural"
)

// Types lists all valid memory types.
var Types = []Type{Episodic, Semantic, Procedural}

// Valid reports whether t is a known memory type.
func (t Type) Valid() bool {
	switch t {
	case Episodic, Semantic, Procedural:
		return true
	}
	return false
}

// Memory is the atomic stored unit.
type Memory struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Content   string    `json:"content"`
	Entities  []string  `json:"entities,omitempty"`
	Topics    []string  `json:"topics,omitempty"`
	Embedding []float32 `json:"-"`
	Salience  float64   `json:"salience"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entity is a named thing discovered across memories, keyed by normalized
// text. Entities are derived as a side effect of storing or consolidating
// memories, never authored directly.
type Entity struct {
	Name        string    `json:"name"`
	Type        string    `json:"type,omitempty"`
	MemoryCount int       `json:"memory_count"`
	LastSeen    time.Time `json:"last_seen"`
}

// Edge is a directed, typed relation between two memories. Edges are
// additive; duplicate (from, to, relation) triples collapse to one.
type Edge struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Relation  string    `json:"relation"`
	CreatedAt time.Time `json:"created_at"`
}

// Relation labels used by the store and the consolidation engine.
const (
	RelationRelated     = "related_to"
	RelationSupersedes  = "supersedes"
	RelationContradicts = "contradicts"
)

// ProcedureStep is one ordered step of a procedure.
type ProcedureStep struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
}

// EvolutionEvent records one version change of a procedure.
type EvolutionEvent struct {
	Version   int       `json:"version"`
	Trigger   string    `json:"trigger"`
	Change    string    `json:"change"`
	Timestamp time.Time `json:"timestamp"`
}

// Procedure is an ordered workflow extracted from procedural content,
// owned one-to-one by the memory it was extracted from.
type Procedure struct {
	ID           string           `json:"id"`
	MemoryID     string           `json:"memory_id"`
	Title        string           `json:"title"`
	Steps        []ProcedureStep  `json:"steps"`
	Version      int              `json:"version"`
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
	Reliable     bool             `json:"reliable"`
	EvolutionLog []EvolutionEvent `json:"evolution_log,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Stats is a read-only aggregate over the store.
type Stats struct {
	Total      int          `json:"total"`
	ByType     map[Type]int `json:"by_type"`
	Entities   int          `json:"entities"`
	Edges      int          `json:"edges"`
	Procedures int          `json:"procedures"`
}

// Claim is an ephemeral projection of a semantic memory used during truth
// resolution. Claims are derived at resolution time and are not persisted.
type Claim struct {
	Predicate    string    `json:"predicate"`
	Object       string    `json:"object"`
	Source       string    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
	SupersededBy string    `json:"superseded_by,omitempty"`
	Supersedes   []string  `json:"supersedes,omitempty"`
}

// ClampSalience restricts a salience value to [0, 1].
func ClampSalience(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// DefaultSalience is assigned when the caller does not provide one.
const DefaultSalience = 0.5
