package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
//
// Config precedence (highest to lowest):
//  1. Environment variables (MUNINN_STORAGE_PATH, MUNINN_EMBEDDING_MODEL, ...)
//  2. config.toml values from configDir
//  3. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("MUNINN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load resolves the effective configuration from viper.
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// setViperDefaults registers defaults using dotted-key notation, keeping
// defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)

	v.SetDefault("retrieval.dense_weight", d.Retrieval.DenseWeight)
	v.SetDefault("retrieval.sparse_weight", d.Retrieval.SparseWeight)
	v.SetDefault("retrieval.candidates", d.Retrieval.Candidates)
	v.SetDefault("retrieval.limit", d.Retrieval.Limit)
	v.SetDefault("retrieval.salience_floor", d.Retrieval.SalienceFloor)

	v.SetDefault("consolidation.batch_size", d.Consolidation.BatchSize)
	v.SetDefault("consolidation.interval", d.Consolidation.Interval)
	v.SetDefault("consolidation.min_distill_age", d.Consolidation.MinDistillAge)
	v.SetDefault("consolidation.edge_probability", d.Consolidation.EdgeProbability)
}
