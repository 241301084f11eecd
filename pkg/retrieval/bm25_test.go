package retrieval_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/muninn/pkg/memory"
	"github.com/papercomputeco/muninn/pkg/retrieval"
	testutils "github.com/papercomputeco/muninn/pkg/utils/test"
)

var _ = Describe("Tokenize", func() {
	It("lowercases and splits on non-word characters", func() {
		Expect(retrieval.Tokenize("Phillip prefers dark-mode UIs!")).To(
			Equal([]string{"phillip", "prefers", "dark", "mode", "uis"}))
	})

	It("drops single-character tokens", func() {
		Expect(retrieval.Tokenize("a b cd e fg")).To(Equal([]string{"cd", "fg"}))
	})

	It("returns nothing for punctuation-only input", func() {
		Expect(retrieval.Tokenize("... !!! ---")).To(BeEmpty())
	})
})

var _ = Describe("BM25", func() {
	var scorer *retrieval.BM25

	BeforeEach(func() {
		scorer = retrieval.NewBM25()
	})

	corpus := func(contents ...string) []memory.Memory {
		memories := make([]memory.Memory, len(contents))
		for i, c := range contents {
			memories[i] = testutils.NewTestMemory(
				"m_"+string(rune('a'+i)), memory.Semantic, c)
		}
		return memories
	}

	It("scores documents containing query terms above absent ones", func() {
		docs := corpus(
			"the database migration failed on staging",
			"lunch options near the office",
		)
		scores := scorer.Score("database migration", docs)
		Expect(scores).To(HaveKey("m_a"))
		Expect(scores).NotTo(HaveKey("m_b"))
	})

	It("rewards rare terms over common ones", func() {
		docs := corpus(
			"deploy deploy deploy service",
			"deploy the kubernetes service",
			"deploy a service to production",
		)
		scores := scorer.Score("kubernetes", docs)
		Expect(scores["m_b"]).To(BeNumerically(">", scores["m_a"]))
		Expect(scores["m_b"]).To(BeNumerically(">", scores["m_c"]))
	})

	It("penalizes long documents via length normalization", func() {
		short := "redis cache"
		long := "redis cache " +
			"with many additional words padding out the document so the " +
			"term frequency is diluted relative to the shorter entry"
		docs := corpus(short, long)
		scores := scorer.Score("redis", docs)
		Expect(scores["m_a"]).To(BeNumerically(">", scores["m_b"]))
	})

	It("returns no scores for an empty corpus", func() {
		Expect(scorer.Score("anything", nil)).To(BeEmpty())
	})

	It("returns no scores when the query has no usable tokens", func() {
		docs := corpus("some content here")
		Expect(scorer.Score("?!", docs)).To(BeEmpty())
	})
})
