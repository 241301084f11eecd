package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/muninn/pkg/extract"
	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/procedures"
	"github.com/papercomputeco/muninn/pkg/retrieval"
)

// newMemoryID returns an id like m_3f2a9c1d.
func newMemoryID() string {
	return "m_" + uuid.NewString()[:8]
}

// RememberInput describes one memory to store. Type and Entities are
// optional; the router and extractor fill them in when absent.
type RememberInput struct {
	Content  string
	Type     memory.Type
	Entities []string
	Topics   []string
	Salience *float64
}

// RememberResult reports what was stored: the memory itself, the routing
// decision when the type was inferred, and the procedure extracted from
// procedural content.
type RememberResult struct {
	Memory    memory.Memory
	Routing   *extract.RoutingResult
	Procedure *memory.Procedure
}

// Remember classifies, embeds, and stores one memory. The memory row, its
// vector index entry, entity counts, and any extracted procedure commit in
// one transaction; an embedding failure leaves no partial record.
func (s *Store) Remember(ctx context.Context, in RememberInput) (*RememberResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", memory.ErrValidation)
	}

	result := &RememberResult{}

	typ := in.Type
	if typ == "" {
		routing := extract.Route(content)
		typ = routing.Type()
		result.Routing = &routing
	} else if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown memory type %q", memory.ErrValidation, in.Type)
	}

	entityNames := in.Entities
	if len(entityNames) == 0 {
		for _, e := range extract.Extract(content) {
			entityNames = append(entityNames, extract.Normalize(e.Text))
		}
		entityNames = dedupe(entityNames)
	}

	salience := memory.DefaultSalience
	if in.Salience != nil {
		salience = memory.ClampSalience(*in.Salience)
	}

	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", memory.ErrEmbedding)
	}
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embedding memory content: %w", err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", memory.ErrEmbedding)
	}

	now := time.Now().UTC()
	m := memory.Memory{
		ID:        newMemoryID(),
		Type:      typ,
		Content:   content,
		Entities:  entityNames,
		Topics:    in.Topics,
		Embedding: embedding,
		Salience:  salience,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", memory.ErrStorage, err)
	}
	defer tx.Rollback()

	if err := s.ensureDimensions(ctx, tx, len(embedding)); err != nil {
		return nil, err
	}

	entitiesJSON, _ := json.Marshal(emptyIfNil(m.Entities))
	topicsJSON, _ := json.Marshal(emptyIfNil(m.Topics))
	res, err := tx.ExecContext(ctx, `
		INSERT INTO memories (id, type, content, entities, topics, embedding, salience, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, string(m.Type), m.Content, string(entitiesJSON), string(topicsJSON),
		serializeFloat32(embedding), m.Salience, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: inserting memory: %v", memory.ErrStorage, err)
	}

	rowID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: resolving rowid: %v", memory.ErrStorage, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_memories (rowid, embedding) VALUES (?, ?)`,
		rowID, serializeFloat32(embedding),
	); err != nil {
		return nil, fmt.Errorf("%w: indexing embedding: %v", memory.ErrStorage, err)
	}

	if err := upsertEntities(ctx, tx, entityNames, now); err != nil {
		return nil, err
	}

	if typ == memory.Procedural {
		proc, err := insertProcedure(ctx, tx, m, now)
		if err != nil {
			return nil, err
		}
		result.Procedure = proc
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing memory: %v", memory.ErrStorage, err)
	}

	s.logger.Debug("memory stored",
		zap.String("id", m.ID),
		zap.String("type", string(m.Type)),
		zap.Int("entities", len(entityNames)),
	)

	result.Memory = m
	return result, nil
}

// Get returns one memory by id. Soft-deleted memories are not found.
func (s *Store) Get(ctx context.Context, id string) (*memory.Memory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, content, entities, topics, embedding, salience, created_at, updated_at
		FROM memories WHERE id = ? AND deleted_at IS NULL`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: memory %s", memory.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecallOptions narrows a recall query.
type RecallOptions struct {
	Types []memory.Type
	Limit int
}

// RecallResult is a ranked recall response. Degraded reports that dense
// retrieval was unavailable and ranking fell back to lexical matching.
type RecallResult struct {
	Memories []memory.Memory
	Degraded bool
}

// Recall ranks stored memories against the query using hybrid retrieval.
// An empty query returns the most salient recent memories.
func (s *Store) Recall(ctx context.Context, query string, opts RecallOptions) (*RecallResult, error) {
	working, err := s.ListMemories(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Recall(ctx, query, working, retrieval.Options{
		Types: opts.Types,
		Limit: opts.Limit,
	})
	if err != nil {
		return nil, err
	}
	if result.Degraded {
		s.logger.Warn("recall degraded to lexical ranking", zap.String("query", query))
	}
	return &RecallResult{Memories: result.Memories, Degraded: result.Degraded}, nil
}

// SetSalience updates a memory's salience, clamped to [0, 1].
func (s *Store) SetSalience(ctx context.Context, id string, salience float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET salience = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		memory.ClampSalience(salience), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("%w: updating salience: %v", memory.ErrStorage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: updating salience: %v", memory.ErrStorage, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: memory %s", memory.ErrNotFound, id)
	}
	return nil
}

// AddTopics merges new topic tags into a memory, preserving existing ones.
func (s *Store) AddTopics(ctx context.Context, id string, topics ...string) error {
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	merged := dedupe(append(m.Topics, topics...))
	topicsJSON, _ := json.Marshal(merged)
	if _, err := s.db.ExecContext(ctx, `
		UPDATE memories SET topics = ?, updated_at = ? WHERE id = ?`,
		string(topicsJSON), time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("%w: updating topics: %v", memory.ErrStorage, err)
	}
	return nil
}

// RecordEntities merges newly discovered entity names into a memory and
// bumps their counts in the entity table.
func (s *Store) RecordEntities(ctx context.Context, id string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	merged := dedupe(append(m.Entities, names...))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", memory.ErrStorage, err)
	}
	defer tx.Rollback()

	entitiesJSON, _ := json.Marshal(merged)
	if _, err := tx.ExecContext(ctx, `
		UPDATE memories SET entities = ?, updated_at = ? WHERE id = ?`,
		string(entitiesJSON), now, id,
	); err != nil {
		return fmt.Errorf("%w: updating entities: %v", memory.ErrStorage, err)
	}
	if err := upsertEntities(ctx, tx, names, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing entities: %v", memory.ErrStorage, err)
	}
	return nil
}

// Forget removes a memory. A soft forget tombstones the row so recall and
// stats skip it; a hard forget deletes the row, its vector index entry, and
// cascades to edges and procedures.
func (s *Store) Forget(ctx context.Context, id string, hard bool) error {
	if !hard {
		res, err := s.db.ExecContext(ctx,
			`UPDATE memories SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
			time.Now().UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("%w: forgetting memory: %v", memory.ErrStorage, err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("%w: memory %s", memory.ErrNotFound, id)
		}
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", memory.ErrStorage, err)
	}
	defer tx.Rollback()

	var rowID int64
	err = tx.QueryRowContext(ctx, `SELECT rowid FROM memories WHERE id = ?`, id).Scan(&rowID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: memory %s", memory.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: resolving memory: %v", memory.ErrStorage, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_memories WHERE rowid = ?`, rowID); err != nil {
		// The vector index may predate this row (embedder was down).
		s.logger.Debug("no vector index entry to delete", zap.String("id", id), zap.Error(err))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("%w: deleting memory: %v", memory.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing delete: %v", memory.ErrStorage, err)
	}
	return nil
}

// ListOptions filters ListMemories.
type ListOptions struct {
	// Type restricts to one memory type when non-empty.
	Type memory.Type

	// OlderThan restricts to memories created before the given time.
	OlderThan time.Time
}

// ListMemories returns all non-deleted memories, newest first.
func (s *Store) ListMemories(ctx context.Context, opts ListOptions) ([]memory.Memory, error) {
	query := `
		SELECT id, type, content, entities, topics, embedding, salience, created_at, updated_at
		FROM memories WHERE deleted_at IS NULL`
	args := []any{}
	if opts.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(opts.Type))
	}
	if !opts.OlderThan.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, opts.OlderThan.UTC())
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing memories: %v", memory.ErrStorage, err)
	}
	defer rows.Close()

	var out []memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating memories: %v", memory.ErrStorage, err)
	}
	return out, nil
}

// GetStats returns aggregate counts over the store.
func (s *Store) GetStats(ctx context.Context) (*memory.Stats, error) {
	stats := &memory.Stats{ByType: make(map[memory.Type]int)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM memories WHERE deleted_at IS NULL GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("%w: counting memories: %v", memory.ErrStorage, err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("%w: scanning counts: %v", memory.ErrStorage, err)
		}
		stats.ByType[memory.Type(typ)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating counts: %v", memory.ErrStorage, err)
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM entities`, &stats.Entities},
		{`SELECT COUNT(*) FROM edges`, &stats.Edges},
		{`SELECT COUNT(*) FROM procedures`, &stats.Procedures},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("%w: counting: %v", memory.ErrStorage, err)
		}
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*memory.Memory, error) {
	var m memory.Memory
	var typ, entitiesJSON, topicsJSON string
	var embedding []byte
	if err := row.Scan(&m.ID, &typ, &m.Content, &entitiesJSON, &topicsJSON,
		&embedding, &m.Salience, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scanning memory: %v", memory.ErrStorage, err)
	}
	m.Type = memory.Type(typ)
	if err := json.Unmarshal([]byte(entitiesJSON), &m.Entities); err != nil {
		return nil, fmt.Errorf("%w: corrupt entities for %s: %v", memory.ErrStorage, m.ID, err)
	}
	if err := json.Unmarshal([]byte(topicsJSON), &m.Topics); err != nil {
		return nil, fmt.Errorf("%w: corrupt topics for %s: %v", memory.ErrStorage, m.ID, err)
	}
	if len(embedding) > 0 {
		vec, err := deserializeFloat32(embedding)
		if err != nil {
			return nil, err
		}
		m.Embedding = vec
	}
	return &m, nil
}

func insertProcedure(ctx context.Context, tx *sql.Tx, m memory.Memory, now time.Time) (*memory.Procedure, error) {
	steps := procedures.ExtractSteps(m.Content)
	proc := &memory.Procedure{
		ID:        "proc_" + uuid.NewString()[:8],
		MemoryID:  m.ID,
		Title:     procedures.Title(m.Content, steps),
		Steps:     steps,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stepsJSON, _ := json.Marshal(proc.Steps)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO procedures (id, memory_id, title, steps, version, evolution_log, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, '[]', ?, ?)`,
		proc.ID, proc.MemoryID, proc.Title, string(stepsJSON), now, now,
	); err != nil {
		return nil, fmt.Errorf("%w: inserting procedure: %v", memory.ErrStorage, err)
	}
	return proc, nil
}

func upsertEntities(ctx context.Context, tx *sql.Tx, names []string, now time.Time) error {
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entities (name, memory_count, last_seen)
			VALUES (?, 1, ?)
			ON CONFLICT(name) DO UPDATE SET
				memory_count = memory_count + 1,
				last_seen = excluded.last_seen`,
			name, now,
		); err != nil {
			return fmt.Errorf("%w: upserting entity %s: %v", memory.ErrStorage, name, err)
		}
	}
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
