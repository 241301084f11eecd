// Package store implements the SQLite-backed memory store. One store owns
// one database file; all writes go through a single connection, matching
// the local-first single-writer model.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papercomputeco/muninn/pkg/embeddings"
	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/retrieval"
)

const metaDimensionsKey = "embedding_dimensions"

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database path. Use ":memory:" for tests.
	Path string

	// Retrieval tunes the hybrid recall engine.
	Retrieval retrieval.EngineConfig
}

// Store is the SQLite-backed memory store.
type Store struct {
	db       *sql.DB
	embedder embeddings.Embedder
	engine   *retrieval.Engine
	logger   *zap.Logger
}

// NewStore opens (creating if needed) the database at cfg.Path and runs
// migrations. The embedder may be nil; the store then rejects writes that
// need an embedding and recalls in degraded lexical-only mode.
func NewStore(cfg Config, embedder embeddings.Embedder, logger *zap.Logger) (*Store, error) {
	sqlite_vec.Auto()

	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: database path is required", memory.ErrValidation)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", memory.ErrStorage, err)
	}

	// One connection: SQLite is a single-writer store, and pooling would
	// split an in-memory database into disjoint copies.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %v", memory.ErrStorage, err)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", memory.ErrStorage, err)
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}
	s.engine = retrieval.NewEngine(embedder, s, cfg.Retrieval, logger)

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("memory store opened",
		zap.String("path", cfg.Path),
		zap.String("vec_version", vecVersion),
	)
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL CHECK(type IN ('episodic', 'semantic', 'procedural')),
		content TEXT NOT NULL,
		entities TEXT NOT NULL DEFAULT '[]',
		topics TEXT NOT NULL DEFAULT '[]',
		embedding BLOB,
		salience REAL NOT NULL DEFAULT 0.5,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS entities (
		name TEXT PRIMARY KEY,
		type TEXT NOT NULL DEFAULT '',
		memory_count INTEGER NOT NULL DEFAULT 0,
		last_seen TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS edges (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		relation TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (from_id, to_id, relation),
		FOREIGN KEY (from_id) REFERENCES memories(id) ON DELETE CASCADE,
		FOREIGN KEY (to_id) REFERENCES memories(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS procedures (
		id TEXT PRIMARY KEY,
		memory_id TEXT NOT NULL,
		title TEXT NOT NULL,
		steps TEXT NOT NULL DEFAULT '[]',
		version INTEGER NOT NULL DEFAULT 1,
		success_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		is_reliable INTEGER NOT NULL DEFAULT 0,
		evolution_log TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at);
	CREATE INDEX IF NOT EXISTS idx_memories_deleted ON memories(deleted_at);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
	CREATE INDEX IF NOT EXISTS idx_procedures_memory ON procedures(memory_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: migrating schema: %v", memory.ErrStorage, err)
	}

	// Recreate the vec0 index if the store already has a dimensionality.
	dims, err := s.dimensions()
	if err != nil {
		return err
	}
	if dims > 0 {
		if err := s.createVecTable(dims); err != nil {
			return err
		}
	}
	return nil
}

// dimensions returns the recorded embedding dimensionality, or zero when no
// embedded memory has been stored yet.
func (s *Store) dimensions() (int, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM store_meta WHERE key = ?`, metaDimensionsKey).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: reading store meta: %v", memory.ErrStorage, err)
	}
	dims, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt dimensions meta %q", memory.ErrStorage, value)
	}
	return dims, nil
}

func (s *Store) createVecTable(dims int) error {
	stmt := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_memories USING vec0(embedding float[%d])`,
		dims,
	)
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("%w: creating vector index: %v", memory.ErrStorage, err)
	}
	return nil
}

// ensureDimensions pins the store's embedding dimensionality on first use
// and rejects embeddings that disagree with it afterwards. All statements
// run on tx, which holds the pool's only connection.
func (s *Store) ensureDimensions(ctx context.Context, tx *sql.Tx, dims int) error {
	var recorded int
	var value string
	err := tx.QueryRowContext(ctx,
		`SELECT value FROM store_meta WHERE key = ?`, metaDimensionsKey,
	).Scan(&value)
	switch err {
	case sql.ErrNoRows:
		recorded = 0
	case nil:
		recorded, err = strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: corrupt dimensions meta %q", memory.ErrStorage, value)
		}
	default:
		return fmt.Errorf("%w: reading store meta: %v", memory.ErrStorage, err)
	}
	if recorded == 0 {
		// DDL must run on the transaction: the pool has a single
		// connection and it is held by tx.
		stmt := fmt.Sprintf(
			`CREATE VIRTUAL TABLE IF NOT EXISTS vec_memories USING vec0(embedding float[%d])`,
			dims,
		)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: creating vector index: %v", memory.ErrStorage, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO store_meta (key, value) VALUES (?, ?)`,
			metaDimensionsKey, strconv.Itoa(dims),
		); err != nil {
			return fmt.Errorf("%w: recording dimensions: %v", memory.ErrStorage, err)
		}
		return nil
	}
	if recorded != dims {
		return fmt.Errorf("%w: embedding has %d dimensions, store is pinned to %d",
			memory.ErrValidation, dims, recorded)
	}
	return nil
}

// serializeFloat32 packs a vector into the little-endian blob format shared
// by the memories table and the vec0 index.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: invalid embedding blob length %d", memory.ErrStorage, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
