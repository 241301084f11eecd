package extract_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/muninn/pkg/extract"
)

var _ = Describe("Extract", func() {
	It("finds known technologies with high confidence", func() {
		entities := extract.Extract("We use PostgreSQL and Redis for the cache layer")

		Expect(entities).To(HaveLen(2))
		Expect(entities[0].Text).To(Equal("PostgreSQL"))
		Expect(entities[0].Type).To(Equal(extract.EntityTechnology))
		Expect(entities[0].Confidence).To(Equal(0.95))
		Expect(entities[1].Text).To(Equal("Redis"))
	})

	It("returns entities in order of first occurrence", func() {
		entities := extract.Extract("Redis caches what PostgreSQL stores")

		Expect(entities).To(HaveLen(2))
		Expect(entities[0].Text).To(Equal("Redis"))
		Expect(entities[1].Text).To(Equal("PostgreSQL"))
	})

	It("types an unknown name from surrounding context", func() {
		entities := extract.Extract("I met Sarah in Brisbane yesterday")

		Expect(entities).To(HaveLen(2))
		Expect(entities[0].Text).To(Equal("Sarah"))
		Expect(entities[0].Type).To(Equal(extract.EntityPerson))
		Expect(entities[1].Text).To(Equal("Brisbane"))
		Expect(entities[1].Type).To(Equal(extract.EntityLocation))
		Expect(entities[1].Confidence).To(BeNumerically(">", entities[0].Confidence))
	})

	It("lets a longer span claim its parts", func() {
		entities := extract.Extract("I spoke with Sammy Clemens about the rollout")

		Expect(entities).To(HaveLen(1))
		Expect(entities[0].Text).To(Equal("Sammy Clemens"))
		Expect(entities[0].Type).To(Equal(extract.EntityPerson))
	})

	It("recognizes camelCase identifiers as technologies", func() {
		entities := extract.Extract("We shipped PaperCompute this morning")

		Expect(entities).To(HaveLen(1))
		Expect(entities[0].Text).To(Equal("PaperCompute"))
		Expect(entities[0].Type).To(Equal(extract.EntityTechnology))
	})

	It("matches dotted framework names", func() {
		entities := extract.Extract("The frontend is built with Next.js")

		texts := make([]string, 0, len(entities))
		for _, e := range entities {
			texts = append(texts, e.Text)
		}
		Expect(texts).To(ContainElement("Next.js"))
	})

	It("skips capitalized stopwords", func() {
		Expect(extract.Extract("Yesterday I went home")).To(BeEmpty())
	})

	It("returns nothing for blank input", func() {
		Expect(extract.Extract("")).To(BeEmpty())
		Expect(extract.Extract("   \n\t")).To(BeEmpty())
	})

	It("is deterministic for identical input", func() {
		text := "Sarah and Phillip discussed the memory system in Brisbane using TypeScript"

		first := extract.Extract(text)
		second := extract.Extract(text)

		Expect(second).To(Equal(first))
		Expect(first).NotTo(BeEmpty())
	})
})

var _ = Describe("Normalize", func() {
	It("lowercases and collapses whitespace", func() {
		Expect(extract.Normalize("  Sammy   Clemens ")).To(Equal("sammy clemens"))
		Expect(extract.Normalize("PostgreSQL")).To(Equal("postgresql"))
	})
})
