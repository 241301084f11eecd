package config

import "time"

// Config is the persistent muninn configuration stored as config.toml in
// the data directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Storage       StorageConfig       `toml:"storage" mapstructure:"storage"`
	Embedding     EmbeddingConfig     `toml:"embedding" mapstructure:"embedding"`
	Retrieval     RetrievalConfig     `toml:"retrieval" mapstructure:"retrieval"`
	Consolidation ConsolidationConfig `toml:"consolidation" mapstructure:"consolidation"`
}

// StorageConfig holds the SQLite database location.
type StorageConfig struct {
	Path string `toml:"path,omitempty" mapstructure:"path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider string        `toml:"provider,omitempty" mapstructure:"provider"`
	Target   string        `toml:"target,omitempty" mapstructure:"target"`
	Model    string        `toml:"model,omitempty" mapstructure:"model"`
	Timeout  time.Duration `toml:"timeout,omitempty" mapstructure:"timeout"`
}

// RetrievalConfig tunes hybrid recall.
type RetrievalConfig struct {
	DenseWeight   float64 `toml:"dense_weight,omitempty" mapstructure:"dense_weight"`
	SparseWeight  float64 `toml:"sparse_weight,omitempty" mapstructure:"sparse_weight"`
	Candidates    int     `toml:"candidates,omitempty" mapstructure:"candidates"`
	Limit         int     `toml:"limit,omitempty" mapstructure:"limit"`
	SalienceFloor float64 `toml:"salience_floor,omitempty" mapstructure:"salience_floor"`
}

// ConsolidationConfig tunes the background consolidation engine.
type ConsolidationConfig struct {
	BatchSize       int           `toml:"batch_size,omitempty" mapstructure:"batch_size"`
	Interval        time.Duration `toml:"interval,omitempty" mapstructure:"interval"`
	MinDistillAge   time.Duration `toml:"min_distill_age,omitempty" mapstructure:"min_distill_age"`
	EdgeProbability float64       `toml:"edge_probability,omitempty" mapstructure:"edge_probability"`
}
