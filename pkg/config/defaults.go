package config

import "time"

const (
	defaultStoragePath = "muninn.db"

	defaultEmbeddingProvider = "ollama"
	defaultEmbeddingTarget   = "http://localhost:11434"
	defaultEmbeddingModel    = "nomic-embed-text"
	defaultEmbeddingTimeout  = 30 * time.Second

	defaultDenseWeight   = 0.6
	defaultSparseWeight  = 0.4
	defaultCandidates    = 50
	defaultLimit         = 10
	defaultSalienceFloor = 0.0

	defaultBatchSize       = 10
	defaultInterval        = time.Hour
	defaultMinDistillAge   = 24 * time.Hour
	defaultEdgeProbability = 0.3
)

// NewDefaultConfig returns a Config with defaults for all fields. This is
// the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: defaultStoragePath,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultEmbeddingProvider,
			Target:   defaultEmbeddingTarget,
			Model:    defaultEmbeddingModel,
			Timeout:  defaultEmbeddingTimeout,
		},
		Retrieval: RetrievalConfig{
			DenseWeight:   defaultDenseWeight,
			SparseWeight:  defaultSparseWeight,
			Candidates:    defaultCandidates,
			Limit:         defaultLimit,
			SalienceFloor: defaultSalienceFloor,
		},
		Consolidation: ConsolidationConfig{
			BatchSize:       defaultBatchSize,
			Interval:        defaultInterval,
			MinDistillAge:   defaultMinDistillAge,
			EdgeProbability: defaultEdgeProbability,
		},
	}
}
