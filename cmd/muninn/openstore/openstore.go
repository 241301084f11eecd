// Package openstore resolves configuration and opens the memory store for
// CLI commands.
package openstore

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/muninn/pkg/config"
	"github.com/papercomputeco/muninn/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/muninn/pkg/embeddings/utils"
	"github.com/papercomputeco/muninn/pkg/logger"
	"github.com/papercomputeco/muninn/pkg/retrieval"
	"github.com/papercomputeco/muninn/pkg/store"
)

// Session bundles everything an open command needs.
type Session struct {
	Store  *store.Store
	Config *config.Config
	Logger *zap.Logger

	// Dir is the resolved .muninn/ directory the session is anchored to.
	Dir string
}

// Close releases the store.
func (s *Session) Close() error {
	return s.Store.Close()
}

// FromCommand loads config (respecting --config-dir, --db, and --debug
// persistent flags), builds the embedder, and opens the store.
func FromCommand(cmd *cobra.Command) (*Session, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving muninn directory: %w", err)
	}

	v, err := config.InitViper(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Storage.Path = db
	}
	// A relative database path lives inside the muninn directory.
	if cfg.Storage.Path != ":memory:" && !filepath.IsAbs(cfg.Storage.Path) {
		cfg.Storage.Path = filepath.Join(dir, cfg.Storage.Path)
	}

	log := logger.NewLogger(debug)

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Timeout:      cfg.Embedding.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	s, err := store.NewStore(store.Config{
		Path: cfg.Storage.Path,
		Retrieval: retrieval.EngineConfig{
			DenseWeight:   cfg.Retrieval.DenseWeight,
			SparseWeight:  cfg.Retrieval.SparseWeight,
			Candidates:    cfg.Retrieval.Candidates,
			SalienceFloor: cfg.Retrieval.SalienceFloor,
		},
	}, embedder, log)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return &Session{Store: s, Config: cfg, Logger: log, Dir: dir}, nil
}
