package retrieval

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/papercomputeco/muninn/pkg/embeddings"
	"github.com/papercomputeco/muninn/pkg/memory"
)

// Defaults for the hybrid engine.
const (
	DefaultDenseWeight  = 0.6
	DefaultSparseWeight = 0.4
	DefaultCandidates   = 50
	DefaultLimit        = 10
)

// DenseHit is one nearest-neighbour result from the dense index.
type DenseHit struct {
	ID         string
	Similarity float64
}

// DenseSearcher performs approximate nearest-neighbour search over stored
// embeddings. The store backs this with its vector index; tests substitute
// fakes.
type DenseSearcher interface {
	DenseSearch(ctx context.Context, embedding []float32, k int) ([]DenseHit, error)
}

// EngineConfig tunes the hybrid ranker. Zero values fall back to defaults.
type EngineConfig struct {
	// DenseWeight and SparseWeight blend the normalized dense and sparse
	// scores. They need not sum to one but the defaults do.
	DenseWeight  float64
	SparseWeight float64

	// Candidates is the k requested from the dense index before merging.
	Candidates int

	// SalienceFloor excludes memories whose salience has decayed below it.
	// Zero means no exclusion.
	SalienceFloor float64
}

// Engine ranks a working set of memories against a query by blending dense
// similarity, BM25, and salience. A failing embedder or dense index degrades
// the engine to lexical-only ranking rather than failing the call.
type Engine struct {
	embedder embeddings.Embedder
	dense    DenseSearcher
	sparse   *BM25
	cfg      EngineConfig
	logger   *zap.Logger
}

// Options narrows a recall call.
type Options struct {
	// Types restricts results to the given memory types. Empty means all.
	Types []memory.Type

	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int
}

// Result is a ranked recall outcome. Degraded is set when dense retrieval
// was unavailable and only lexical ranking was applied.
type Result struct {
	Memories []memory.Memory
	Degraded bool
}

// NewEngine creates a hybrid engine. The embedder and dense searcher may be
// nil, in which case every query runs in degraded lexical-only mode.
func NewEngine(embedder embeddings.Embedder, dense DenseSearcher, cfg EngineConfig, logger *zap.Logger) *Engine {
	if cfg.DenseWeight == 0 {
		cfg.DenseWeight = DefaultDenseWeight
	}
	if cfg.SparseWeight == 0 {
		cfg.SparseWeight = DefaultSparseWeight
	}
	if cfg.Candidates == 0 {
		cfg.Candidates = DefaultCandidates
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		embedder: embedder,
		dense:    dense,
		sparse:   NewBM25(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Recall ranks the working set against the query. An empty query returns
// memories ordered by salience then recency.
func (e *Engine) Recall(ctx context.Context, query string, corpus []memory.Memory, opts Options) (*Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	working := e.filter(corpus, opts.Types)

	if query == "" {
		return &Result{Memories: bySalienceRecency(working, limit)}, nil
	}

	denseScores, degraded := e.denseScores(ctx, query)
	sparseScores := e.sparse.Score(query, working)

	normDense := minMaxNormalize(denseScores)
	normSparse := minMaxNormalize(sparseScores)

	type scored struct {
		mem   memory.Memory
		score float64
	}
	candidates := make([]scored, 0, len(working))
	for _, m := range working {
		base := e.cfg.DenseWeight*normDense[m.ID] + e.cfg.SparseWeight*normSparse[m.ID]
		if base == 0 {
			continue
		}
		// Salience scales rather than gates: a low-salience memory can
		// still win on a strong match.
		final := base * (0.5 + 0.5*m.Salience)
		candidates = append(candidates, scored{mem: m, score: final})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].mem.CreatedAt.After(candidates[j].mem.CreatedAt)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]memory.Memory, len(candidates))
	for i, c := range candidates {
		out[i] = c.mem
	}
	return &Result{Memories: out, Degraded: degraded}, nil
}

// denseScores embeds the query and runs nearest-neighbour search. Any
// failure flips the engine into degraded mode for this call.
func (e *Engine) denseScores(ctx context.Context, query string) (map[string]float64, bool) {
	if e.embedder == nil || e.dense == nil {
		return nil, true
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, falling back to lexical ranking", zap.Error(err))
		return nil, true
	}

	hits, err := e.dense.DenseSearch(ctx, embedding, e.cfg.Candidates)
	if err != nil {
		e.logger.Warn("dense search failed, falling back to lexical ranking", zap.Error(err))
		return nil, true
	}

	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		scores[h.ID] = h.Similarity
	}
	return scores, false
}

func (e *Engine) filter(corpus []memory.Memory, types []memory.Type) []memory.Memory {
	out := make([]memory.Memory, 0, len(corpus))
	for _, m := range corpus {
		if m.Salience < e.cfg.SalienceFloor {
			continue
		}
		if len(types) > 0 && !containsType(types, m.Type) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func containsType(types []memory.Type, t memory.Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func bySalienceRecency(memories []memory.Memory, limit int) []memory.Memory {
	out := make([]memory.Memory, len(memories))
	copy(out, memories)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Salience != out[j].Salience {
			return out[i].Salience > out[j].Salience
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// minMaxNormalize rescales scores into [0, 1]. Corpus members absent from
// the map scored zero, so the distribution minimum is pinned at zero rather
// than at the lowest surviving candidate.
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	var max float64
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return out
	}
	for id, s := range scores {
		out[id] = s / max
	}
	return out
}
