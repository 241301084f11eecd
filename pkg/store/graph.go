package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/retrieval"
)

// Connect records a directed, typed edge between two memories. Connecting
// the same triple twice is a no-op; both endpoints must exist.
func (s *Store) Connect(ctx context.Context, fromID, toID, relation string) error {
	if relation == "" {
		return fmt.Errorf("%w: relation is required", memory.ErrValidation)
	}

	for _, id := range []string{fromID, toID} {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM memories WHERE id = ? AND deleted_at IS NULL`, id,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: memory %s", memory.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("%w: resolving memory %s: %v", memory.ErrStorage, id, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO edges (from_id, to_id, relation, created_at)
		VALUES (?, ?, ?, ?)`,
		fromID, toID, relation, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("%w: inserting edge: %v", memory.ErrStorage, err)
	}

	s.logger.Debug("edge recorded",
		zap.String("from", fromID),
		zap.String("to", toID),
		zap.String("relation", relation),
	)
	return nil
}

// Edges returns all edges touching the given memory, outgoing and incoming.
func (s *Store) Edges(ctx context.Context, id string) ([]memory.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_id, to_id, relation, created_at FROM edges
		WHERE from_id = ? OR to_id = ?
		ORDER BY created_at`, id, id)
	if err != nil {
		return nil, fmt.Errorf("%w: listing edges: %v", memory.ErrStorage, err)
	}
	defer rows.Close()

	var out []memory.Edge
	for rows.Next() {
		var e memory.Edge
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Relation, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning edge: %v", memory.ErrStorage, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating edges: %v", memory.ErrStorage, err)
	}
	return out, nil
}

// Neighbors walks outgoing edges up to depth hops and returns the reached
// memories, excluding the start.
func (s *Store) Neighbors(ctx context.Context, id string, depth int) ([]memory.Memory, error) {
	if depth <= 0 {
		depth = 1
	}

	visited := map[string]struct{}{id: {}}
	frontier := []string{id}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, from := range frontier {
			rows, err := s.db.QueryContext(ctx,
				`SELECT to_id FROM edges WHERE from_id = ?`, from)
			if err != nil {
				return nil, fmt.Errorf("%w: walking edges: %v", memory.ErrStorage, err)
			}
			for rows.Next() {
				var to string
				if err := rows.Scan(&to); err != nil {
					rows.Close()
					return nil, fmt.Errorf("%w: scanning edge: %v", memory.ErrStorage, err)
				}
				if _, ok := visited[to]; !ok {
					visited[to] = struct{}{}
					next = append(next, to)
				}
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, fmt.Errorf("%w: iterating edges: %v", memory.ErrStorage, err)
			}
			rows.Close()
		}
		frontier = next
	}

	var out []memory.Memory
	for reached := range visited {
		if reached == id {
			continue
		}
		m, err := s.Get(ctx, reached)
		if err != nil {
			// Soft-deleted neighbors drop out of the walk.
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

// GetEntities returns known entities ordered by how many memories mention
// them.
func (s *Store) GetEntities(ctx context.Context) ([]memory.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, memory_count, last_seen FROM entities
		ORDER BY memory_count DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing entities: %v", memory.ErrStorage, err)
	}
	defer rows.Close()

	var out []memory.Entity
	for rows.Next() {
		var e memory.Entity
		if err := rows.Scan(&e.Name, &e.Type, &e.MemoryCount, &e.LastSeen); err != nil {
			return nil, fmt.Errorf("%w: scanning entity: %v", memory.ErrStorage, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating entities: %v", memory.ErrStorage, err)
	}
	return out, nil
}

// DenseSearch finds the k nearest stored memories to the query embedding
// via the vec0 index. An empty store (no embedded memory yet) returns no
// hits.
func (s *Store) DenseSearch(ctx context.Context, embedding []float32, k int) ([]retrieval.DenseHit, error) {
	dims, err := s.dimensions()
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		return nil, nil
	}
	if len(embedding) != dims {
		return nil, fmt.Errorf("%w: query embedding has %d dimensions, store is pinned to %d",
			memory.ErrValidation, len(embedding), dims)
	}
	if k <= 0 {
		k = retrieval.DefaultCandidates
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, v.distance
		FROM vec_memories v
		INNER JOIN memories m ON m.rowid = v.rowid
		WHERE v.embedding MATCH ?
			AND v.k = ?
			AND m.deleted_at IS NULL
		ORDER BY v.distance`,
		serializeFloat32(embedding), k,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vector index: %v", memory.ErrStorage, err)
	}
	defer rows.Close()

	var hits []retrieval.DenseHit
	for rows.Next() {
		var id string
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, fmt.Errorf("%w: scanning vector hit: %v", memory.ErrStorage, err)
		}
		hits = append(hits, retrieval.DenseHit{
			ID:         id,
			Similarity: 1.0 / (1.0 + distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating vector hits: %v", memory.ErrStorage, err)
	}
	return hits, nil
}

// Ensure the store satisfies the engine's dense interface.
var _ retrieval.DenseSearcher = (*Store)(nil)
