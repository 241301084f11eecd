package store_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/store"
	testutils "github.com/papercomputeco/muninn/pkg/utils/test"
)

var _ = Describe("Store", func() {
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

	remember := func(in store.RememberInput) *store.RememberResult {
		result, err := s.Remember(ctx, in)
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	Describe("Remember", func() {
		It("stores a memory with an id, embedding, and default salience", func() {
			result := remember(store.RememberInput{
				Content: "Phillip prefers TypeScript strict mode",
				Type:    memory.Semantic,
			})

			Expect(result.Memory.ID).To(HavePrefix("m_"))
			Expect(result.Memory.Salience).To(Equal(0.5))
			Expect(result.Memory.Embedding).NotTo(BeEmpty())

			got, err := s.Get(ctx, result.Memory.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Content).To(Equal("Phillip prefers TypeScript strict mode"))
			Expect(got.Type).To(Equal(memory.Semantic))
			Expect(got.Embedding).To(Equal(result.Memory.Embedding))
		})

		It("routes untyped content and reports the decision", func() {
			result := remember(store.RememberInput{
				Content: "Yesterday we met with the design team and discussed the launch",
			})

			Expect(result.Memory.Type).To(Equal(memory.Episodic))
			Expect(result.Routing).NotTo(BeNil())
			Expect(result.Routing.Reasoning).NotTo(BeEmpty())
		})

		It("extracts and normalizes entities when none are given", func() {
			result := remember(store.RememberInput{
				Content: "Phillip is migrating the API to PostgreSQL",
				Type:    memory.Semantic,
			})

			Expect(result.Memory.Entities).To(ContainElement("phillip"))
			Expect(result.Memory.Entities).To(ContainElement("postgresql"))

			entities, err := s.GetEntities(ctx)
			Expect(err).NotTo(HaveOccurred())
			names := make([]string, len(entities))
			for i, e := range entities {
				names[i] = e.Name
			}
			Expect(names).To(ContainElement("phillip"))
		})

		It("increments entity counts across memories", func() {
			remember(store.RememberInput{Content: "Phillip likes coffee", Type: memory.Semantic})
			remember(store.RememberInput{Content: "Phillip dislikes meetings", Type: memory.Semantic})

			entities, err := s.GetEntities(ctx)
			Expect(err).NotTo(HaveOccurred())
			for _, e := range entities {
				if e.Name == "phillip" {
					Expect(e.MemoryCount).To(Equal(2))
					return
				}
			}
			Fail("entity phillip not found")
		})

		It("extracts a procedure from procedural content", func() {
			result := remember(store.RememberInput{
				Content: "Deploy protocol:\n1. Run the tests\n2. Build the image\n3. Push to the registry",
				Type:    memory.Procedural,
			})

			Expect(result.Procedure).NotTo(BeNil())
			Expect(result.Procedure.ID).To(HavePrefix("proc_"))
			Expect(result.Procedure.Steps).To(HaveLen(3))
			Expect(result.Procedure.Version).To(Equal(1))

			got, err := s.GetProcedure(ctx, result.Procedure.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.MemoryID).To(Equal(result.Memory.ID))
		})

		It("rejects empty content", func() {
			_, err := s.Remember(ctx, store.RememberInput{Content: "   "})
			Expect(errors.Is(err, memory.ErrValidation)).To(BeTrue())
		})

		It("rejects unknown types", func() {
			_, err := s.Remember(ctx, store.RememberInput{Content: "x y z", Type: "emotional"})
			Expect(errors.Is(err, memory.ErrValidation)).To(BeTrue())
		})

		It("clamps salience into range", func() {
			over := 1.7
			result := remember(store.RememberInput{
				Content:  "salience gets clamped",
				Type:     memory.Semantic,
				Salience: &over,
			})
			Expect(result.Memory.Salience).To(Equal(1.0))
		})

		It("leaves no partial record when the embedder fails", func() {
			failing, err := store.NewStore(store.Config{Path: ":memory:"}, &testutils.FailingEmbedder{}, nil)
			Expect(err).NotTo(HaveOccurred())
			defer failing.Close()

			_, err = failing.Remember(ctx, store.RememberInput{Content: "never stored", Type: memory.Semantic})
			Expect(errors.Is(err, memory.ErrEmbedding)).To(BeTrue())

			stats, err := failing.GetStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(BeZero())
			Expect(stats.Entities).To(BeZero())
		})
	})

	Describe("Recall", func() {
		BeforeEach(func() {
			remember(store.RememberInput{Content: "Phillip prefers TypeScript strict mode for all projects", Type: memory.Semantic})
			remember(store.RememberInput{Content: "Yesterday we met with the infra team about the outage", Type: memory.Episodic})
			remember(store.RememberInput{Content: "Weekly grocery list includes oat milk", Type: memory.Semantic})
		})

		It("ranks the matching memory first", func() {
			result, err := s.Recall(ctx, "what does Phillip prefer for TypeScript", store.RecallOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Degraded).To(BeFalse())
			Expect(result.Memories).NotTo(BeEmpty())
			Expect(result.Memories[0].Content).To(ContainSubstring("TypeScript strict mode"))
		})

		It("filters by type", func() {
			result, err := s.Recall(ctx, "team", store.RecallOptions{Types: []memory.Type{memory.Episodic}})
			Expect(err).NotTo(HaveOccurred())
			for _, m := range result.Memories {
				Expect(m.Type).To(Equal(memory.Episodic))
			}
		})

		It("returns salient recent memories for an empty query", func() {
			result, err := s.Recall(ctx, "", store.RecallOptions{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Memories).To(HaveLen(2))
		})

		It("omits soft-deleted memories", func() {
			victim := remember(store.RememberInput{Content: "Phillip's forgotten TypeScript opinion", Type: memory.Semantic})
			Expect(s.Forget(ctx, victim.Memory.ID, false)).To(Succeed())

			result, err := s.Recall(ctx, "Phillip TypeScript", store.RecallOptions{})
			Expect(err).NotTo(HaveOccurred())
			for _, m := range result.Memories {
				Expect(m.ID).NotTo(Equal(victim.Memory.ID))
			}
		})
	})

	Describe("Connect", func() {
		var a, b string

		BeforeEach(func() {
			a = remember(store.RememberInput{Content: "memory alpha content", Type: memory.Semantic}).Memory.ID
			b = remember(store.RememberInput{Content: "memory beta content", Type: memory.Semantic}).Memory.ID
		})

		It("records an edge between memories", func() {
			Expect(s.Connect(ctx, a, b, memory.RelationRelated)).To(Succeed())

			edges, err := s.Edges(ctx, a)
			Expect(err).NotTo(HaveOccurred())
			Expect(edges).To(HaveLen(1))
			Expect(edges[0].ToID).To(Equal(b))
		})

		It("is idempotent for duplicate triples", func() {
			Expect(s.Connect(ctx, a, b, memory.RelationRelated)).To(Succeed())
			Expect(s.Connect(ctx, a, b, memory.RelationRelated)).To(Succeed())

			stats, err := s.GetStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Edges).To(Equal(1))
		})

		It("allows distinct relations between the same pair", func() {
			Expect(s.Connect(ctx, a, b, memory.RelationRelated)).To(Succeed())
			Expect(s.Connect(ctx, a, b, memory.RelationContradicts)).To(Succeed())

			edges, err := s.Edges(ctx, a)
			Expect(err).NotTo(HaveOccurred())
			Expect(edges).To(HaveLen(2))
		})

		It("rejects missing endpoints", func() {
			err := s.Connect(ctx, a, "m_missing", memory.RelationRelated)
			Expect(errors.Is(err, memory.ErrNotFound)).To(BeTrue())
		})

		It("walks neighbors across hops", func() {
			c := remember(store.RememberInput{Content: "memory gamma content", Type: memory.Semantic}).Memory.ID
			Expect(s.Connect(ctx, a, b, memory.RelationRelated)).To(Succeed())
			Expect(s.Connect(ctx, b, c, memory.RelationRelated)).To(Succeed())

			oneHop, err := s.Neighbors(ctx, a, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(oneHop).To(HaveLen(1))

			twoHop, err := s.Neighbors(ctx, a, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(twoHop).To(HaveLen(2))
		})
	})

	Describe("SetSalience", func() {
		It("updates and clamps salience", func() {
			id := remember(store.RememberInput{Content: "salience target", Type: memory.Semantic}).Memory.ID

			Expect(s.SetSalience(ctx, id, -0.4)).To(Succeed())
			got, err := s.Get(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Salience).To(BeZero())
		})

		It("returns not found for unknown ids", func() {
			err := s.SetSalience(ctx, "m_missing", 0.5)
			Expect(errors.Is(err, memory.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Forget", func() {
		It("soft deletes by default", func() {
			id := remember(store.RememberInput{Content: "to be tombstoned", Type: memory.Semantic}).Memory.ID
			Expect(s.Forget(ctx, id, false)).To(Succeed())

			_, err := s.Get(ctx, id)
			Expect(errors.Is(err, memory.ErrNotFound)).To(BeTrue())

			stats, err := s.GetStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(BeZero())
		})

		It("hard deletes the row and its edges", func() {
			a := remember(store.RememberInput{Content: "doomed memory", Type: memory.Semantic}).Memory.ID
			b := remember(store.RememberInput{Content: "surviving memory", Type: memory.Semantic}).Memory.ID
			Expect(s.Connect(ctx, a, b, memory.RelationRelated)).To(Succeed())

			Expect(s.Forget(ctx, a, true)).To(Succeed())

			stats, err := s.GetStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(1))
			Expect(stats.Edges).To(BeZero())
		})
	})

	Describe("GetStats", func() {
		It("counts memories by type", func() {
			remember(store.RememberInput{Content: "fact one here", Type: memory.Semantic})
			remember(store.RememberInput{Content: "fact two here", Type: memory.Semantic})
			remember(store.RememberInput{Content: "we met yesterday about the launch", Type: memory.Episodic})

			stats, err := s.GetStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(3))
			Expect(stats.ByType[memory.Semantic]).To(Equal(2))
			Expect(stats.ByType[memory.Episodic]).To(Equal(1))
		})
	})

	Describe("ProcedureFeedback", func() {
		var procID string

		BeforeEach(func() {
			result := remember(store.RememberInput{
				Content: "Release steps:\n1. Tag the commit\n2. Build artifacts\n3. Publish release notes",
				Type:    memory.Procedural,
			})
			procID = result.Procedure.ID
		})

		It("promotes a procedure to reliable after three successes", func() {
			for i := 0; i < 3; i++ {
				_, err := s.ProcedureFeedback(ctx, procID, true, 0, "")
				Expect(err).NotTo(HaveOccurred())
			}

			proc, err := s.GetProcedure(ctx, procID)
			Expect(err).NotTo(HaveOccurred())
			Expect(proc.Reliable).To(BeTrue())
			Expect(proc.SuccessCount).To(Equal(3))
			Expect(proc.Version).To(Equal(1))
		})

		It("creates a new version on failure", func() {
			proc, err := s.ProcedureFeedback(ctx, procID, false, 2, "artifact build timed out")
			Expect(err).NotTo(HaveOccurred())
			Expect(proc.Version).To(Equal(2))
			Expect(proc.Steps[1].Description).To(ContainSubstring("[RETRY"))
			Expect(proc.EvolutionLog).To(HaveLen(1))
		})

		It("returns not found for unknown procedures", func() {
			_, err := s.ProcedureFeedback(ctx, "proc_missing", true, 0, "")
			Expect(errors.Is(err, memory.ErrNotFound)).To(BeTrue())
		})
	})
})
