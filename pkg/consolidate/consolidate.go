// Package consolidate implements the background consolidation engine: it
// discovers entities in recent episodes, marks aged episodes for
// distillation, flags contradictory facts, and probabilistically links
// memories that share entities. Runs are idempotent; re-running over the
// same data converges because edges are additive and topic tags merge.
package consolidate

import (
	"context"
	"math/rand"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/muninn/pkg/extract"
	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/store"
)

// Defaults for a consolidation run.
const (
	DefaultBatchSize       = 10
	DefaultMinDistillAge   = 24 * time.Hour
	DefaultEdgeProbability = 0.3
)

// TopicDistillationCandidate tags episodic memories old enough to be
// distilled into semantic facts by a later pass.
const TopicDistillationCandidate = "distillation-candidate"

// Config tunes the consolidation engine. Zero values fall back to defaults.
type Config struct {
	// BatchSize bounds how many memories each phase examines.
	BatchSize int

	// MinDistillAge is how old an episode must be before it becomes a
	// distillation candidate.
	MinDistillAge time.Duration

	// EdgeProbability is the chance a shared-entity pair is linked in one
	// run. Sampling keeps the graph sparse; repeated runs fill it in.
	EdgeProbability float64
}

// Result summarizes one consolidation run. Errors counts items that failed
// and were skipped; a run only aborts on a failure to read the store.
type Result struct {
	RunID                  string `json:"run_id"`
	Consolidated           int    `json:"consolidated"`
	EntitiesDiscovered     int    `json:"entities_discovered"`
	DistillationCandidates int    `json:"distillation_candidates"`
	Contradictions         int    `json:"contradictions"`
	ConnectionsFormed      int    `json:"connections_formed"`
	Errors                 int    `json:"errors"`
}

// Engine runs consolidation passes over a store.
type Engine struct {
	store  *store.Store
	cfg    Config
	rng    *rand.Rand
	logger *zap.Logger
}

// New creates a consolidation engine. The rng drives edge sampling; pass a
// seeded source for deterministic runs, or nil for a time-seeded one.
func New(s *store.Store, cfg Config, rng *rand.Rand, logger *zap.Logger) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MinDistillAge <= 0 {
		cfg.MinDistillAge = DefaultMinDistillAge
	}
	if cfg.EdgeProbability <= 0 {
		cfg.EdgeProbability = DefaultEdgeProbability
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: s, cfg: cfg, rng: rng, logger: logger}
}

// Run executes one consolidation pass.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: ulid.Make().String()}
	start := time.Now()

	episodic, err := e.store.ListMemories(ctx, store.ListOptions{Type: memory.Episodic})
	if err != nil {
		return nil, err
	}
	episodic = capBatch(episodic, e.cfg.BatchSize)
	result.Consolidated = len(episodic)

	e.discoverEntities(ctx, episodic, result)
	e.markDistillationCandidates(ctx, episodic, result)

	semantic, err := e.store.ListMemories(ctx, store.ListOptions{Type: memory.Semantic})
	if err != nil {
		return nil, err
	}
	e.detectContradictions(ctx, capBatch(semantic, e.cfg.BatchSize), result)

	all, err := e.store.ListMemories(ctx, store.ListOptions{})
	if err != nil {
		return nil, err
	}
	e.buildGraph(ctx, capBatch(all, e.cfg.BatchSize*2), result)

	e.logger.Info("consolidation run finished",
		zap.String("run_id", result.RunID),
		zap.Int("consolidated", result.Consolidated),
		zap.Int("entities_discovered", result.EntitiesDiscovered),
		zap.Int("contradictions", result.Contradictions),
		zap.Int("connections_formed", result.ConnectionsFormed),
		zap.Int("errors", result.Errors),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// discoverEntities re-extracts entities from episodes and records any the
// write path missed.
func (e *Engine) discoverEntities(ctx context.Context, episodic []memory.Memory, result *Result) {
	for _, m := range episodic {
		known := make(map[string]struct{}, len(m.Entities))
		for _, name := range m.Entities {
			known[name] = struct{}{}
		}

		var discovered []string
		for _, entity := range extract.Extract(m.Content) {
			name := extract.Normalize(entity.Text)
			if _, ok := known[name]; !ok {
				known[name] = struct{}{}
				discovered = append(discovered, name)
			}
		}
		if len(discovered) == 0 {
			continue
		}

		if err := e.store.RecordEntities(ctx, m.ID, discovered); err != nil {
			e.logger.Warn("entity discovery failed for memory",
				zap.String("id", m.ID), zap.Error(err))
			result.Errors++
			continue
		}
		result.EntitiesDiscovered += len(discovered)
	}
}

// markDistillationCandidates tags episodes old enough to distill.
func (e *Engine) markDistillationCandidates(ctx context.Context, episodic []memory.Memory, result *Result) {
	cutoff := time.Now().Add(-e.cfg.MinDistillAge)
	for _, m := range episodic {
		if !m.CreatedAt.Before(cutoff) {
			continue
		}
		if hasTopic(m, TopicDistillationCandidate) {
			continue
		}
		if err := e.store.AddTopics(ctx, m.ID, TopicDistillationCandidate); err != nil {
			e.logger.Warn("distillation marking failed for memory",
				zap.String("id", m.ID), zap.Error(err))
			result.Errors++
			continue
		}
		result.DistillationCandidates++
	}
}

// oppositePairs are predicate words whose co-occurrence across two facts
// suggests a contradiction. Detection only flags; resolution is left to
// truth resolution or the user.
var oppositePairs = [][2]*regexp.Regexp{
	{wordPattern("prefers?"), wordPattern("dislikes?")},
	{wordPattern("likes?"), wordPattern("hates?")},
	{wordPattern("always"), wordPattern("never")},
	{wordPattern(`uses?`), regexp.MustCompile(`(?i)\bnever\s+uses?\b`)},
}

func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + word + `\b`)
}

func (e *Engine) detectContradictions(ctx context.Context, semantic []memory.Memory, result *Result) {
	for i := 0; i < len(semantic); i++ {
		for j := i + 1; j < len(semantic); j++ {
			if !contradicts(semantic[i].Content, semantic[j].Content) {
				continue
			}
			if err := e.store.Connect(ctx, semantic[i].ID, semantic[j].ID, memory.RelationContradicts); err != nil {
				e.logger.Warn("recording contradiction failed",
					zap.String("from", semantic[i].ID),
					zap.String("to", semantic[j].ID),
					zap.Error(err))
				result.Errors++
				continue
			}
			result.Contradictions++
		}
	}
}

func contradicts(a, b string) bool {
	for _, pair := range oppositePairs {
		pos, neg := pair[0], pair[1]
		if (pos.MatchString(a) && neg.MatchString(b)) ||
			(neg.MatchString(a) && pos.MatchString(b)) {
			return true
		}
	}
	return false
}

// buildGraph links memories that share entities. Each candidate pair is
// sampled so one run does not densify the whole graph at once.
func (e *Engine) buildGraph(ctx context.Context, all []memory.Memory, result *Result) {
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if !sharesEntity(all[i], all[j]) {
				continue
			}
			if e.rng.Float64() >= e.cfg.EdgeProbability {
				continue
			}
			if err := e.store.Connect(ctx, all[i].ID, all[j].ID, memory.RelationRelated); err != nil {
				e.logger.Warn("linking related memories failed",
					zap.String("from", all[i].ID),
					zap.String("to", all[j].ID),
					zap.Error(err))
				result.Errors++
				continue
			}
			result.ConnectionsFormed++
		}
	}
}

func sharesEntity(a, b memory.Memory) bool {
	if len(a.Entities) == 0 || len(b.Entities) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a.Entities))
	for _, e := range a.Entities {
		set[e] = struct{}{}
	}
	for _, e := range b.Entities {
		if _, ok := set[e]; ok {
			return true
		}
	}
	return false
}

func hasTopic(m memory.Memory, topic string) bool {
	for _, t := range m.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

func capBatch(memories []memory.Memory, n int) []memory.Memory {
	if len(memories) > n {
		return memories[:n]
	}
	return memories
}
