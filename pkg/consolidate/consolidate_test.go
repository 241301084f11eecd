package consolidate_test

import (
	"context"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/muninn/pkg/consolidate"
	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/store"
	testutils "github.com/papercomputeco/muninn/pkg/utils/test"
)

var _ = Describe("Engine", func() {
	var (
		ctx context.Context
		s   *store.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		s, err = store.NewStore(store.Config{Path: ":memory:"}, testutils.NewHashingEmbedder(64), nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	remember := func(in store.RememberInput) string {
		result, err := s.Remember(ctx, in)
		Expect(err).NotTo(HaveOccurred())
		return result.Memory.ID
	}

	// EdgeProbability 1 makes graph sampling deterministic: every
	// shared-entity pair links.
	newEngine := func(cfg consolidate.Config) *consolidate.Engine {
		return consolidate.New(s, cfg, rand.New(rand.NewSource(1)), nil)
	}

	It("assigns every run a distinct id", func() {
		engine := newEngine(consolidate.Config{})
		first, err := engine.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		second, err := engine.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.RunID).NotTo(BeEmpty())
		Expect(first.RunID).NotTo(Equal(second.RunID))
	})

	Describe("entity discovery", func() {
		It("records entities the write path missed", func() {
			id := remember(store.RememberInput{
				Content:  "We met Sarah at the Brisbane office yesterday",
				Type:     memory.Episodic,
				Entities: []string{"office visit"},
			})

			result, err := newEngine(consolidate.Config{}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.EntitiesDiscovered).To(BeNumerically(">", 0))
			Expect(result.Errors).To(BeZero())

			m, err := s.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Entities).To(ContainElement("brisbane"))
			Expect(m.Entities).To(ContainElement("office visit"), "existing entities survive")
		})
	})

	Describe("distillation candidates", func() {
		It("tags episodes older than the minimum age", func() {
			id := remember(store.RememberInput{
				Content: "We shipped the beta to the pilot customers",
				Type:    memory.Episodic,
			})

			result, err := newEngine(consolidate.Config{MinDistillAge: time.Nanosecond}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.DistillationCandidates).To(Equal(1))

			m, err := s.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Topics).To(ContainElement(consolidate.TopicDistillationCandidate))
		})

		It("leaves fresh episodes untagged", func() {
			remember(store.RememberInput{
				Content: "We shipped the beta to the pilot customers",
				Type:    memory.Episodic,
			})

			result, err := newEngine(consolidate.Config{MinDistillAge: 24 * time.Hour}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.DistillationCandidates).To(BeZero())
		})

		It("does not re-tag on a second run", func() {
			remember(store.RememberInput{
				Content: "We shipped the beta to the pilot customers",
				Type:    memory.Episodic,
			})

			engine := newEngine(consolidate.Config{MinDistillAge: time.Nanosecond})
			_, err := engine.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			second, err := engine.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.DistillationCandidates).To(BeZero())
		})
	})

	Describe("contradiction detection", func() {
		It("links opposing facts with a contradicts edge", func() {
			a := remember(store.RememberInput{Content: "Phillip prefers tabs for indentation", Type: memory.Semantic})
			remember(store.RememberInput{Content: "Phillip dislikes tabs in any codebase", Type: memory.Semantic})

			result, err := newEngine(consolidate.Config{}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Contradictions).To(BeNumerically(">=", 1))

			edges, err := s.Edges(ctx, a)
			Expect(err).NotTo(HaveOccurred())
			var relations []string
			for _, e := range edges {
				relations = append(relations, e.Relation)
			}
			Expect(relations).To(ContainElement(memory.RelationContradicts))
		})

		It("never resolves a contradiction on its own", func() {
			remember(store.RememberInput{Content: "Phillip always reviews PRs before merging", Type: memory.Semantic})
			remember(store.RememberInput{Content: "Phillip never reviews trivial PRs", Type: memory.Semantic})

			_, err := newEngine(consolidate.Config{}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			stats, err := s.GetStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(2), "both facts remain")
		})
	})

	Describe("graph building", func() {
		It("links memories sharing an entity", func() {
			a := remember(store.RememberInput{Content: "first note", Type: memory.Semantic, Entities: []string{"phillip"}})
			b := remember(store.RememberInput{Content: "second note", Type: memory.Semantic, Entities: []string{"phillip"}})

			result, err := newEngine(consolidate.Config{EdgeProbability: 1}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ConnectionsFormed).To(Equal(1))

			edges, err := s.Edges(ctx, a)
			Expect(err).NotTo(HaveOccurred())
			Expect(edges).To(HaveLen(1))
			Expect([]string{edges[0].FromID, edges[0].ToID}).To(ConsistOf(a, b))
			Expect(edges[0].Relation).To(Equal(memory.RelationRelated))
		})

		It("skips pairs without shared entities", func() {
			remember(store.RememberInput{Content: "first note", Type: memory.Semantic, Entities: []string{"alpha"}})
			remember(store.RememberInput{Content: "second note", Type: memory.Semantic, Entities: []string{"beta"}})

			result, err := newEngine(consolidate.Config{EdgeProbability: 1}).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ConnectionsFormed).To(BeZero())
		})

		It("keeps the edge count stable across repeated runs", func() {
			remember(store.RememberInput{Content: "first note", Type: memory.Semantic, Entities: []string{"phillip"}})
			remember(store.RememberInput{Content: "second note", Type: memory.Semantic, Entities: []string{"phillip"}})

			engine := newEngine(consolidate.Config{EdgeProbability: 1})
			_, err := engine.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			stats, err := s.GetStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Edges).To(Equal(1))
		})
	})
})
