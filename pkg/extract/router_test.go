package extract_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/muninn/pkg/extract"
	"github.com/papercomputeco/muninn/pkg/memory"
)

var _ = Describe("Route", func() {
	It("routes dated events to episodic", func() {
		result := extract.Route("Yesterday I met with Sarah to discuss the launch")

		Expect(result.Type()).To(Equal(memory.Episodic))
		Expect(result.Episodic).To(BeNumerically(">", result.Semantic))
		Expect(result.Episodic).To(BeNumerically(">", result.Procedural))
		Expect(result.Confidence).To(Equal(0.9))
		Expect(result.Reasoning).To(ContainSubstring("episodic"))
	})

	It("routes preferences to semantic", func() {
		result := extract.Route("Phillip prefers TypeScript strict mode")

		Expect(result.Type()).To(Equal(memory.Semantic))
		Expect(result.Semantic).To(BeNumerically(">", result.Episodic))
	})

	It("routes step sequences to procedural", func() {
		result := extract.Route("First, install the dependencies. Then, run the tests. Finally, commit.")

		Expect(result.Type()).To(Equal(memory.Procedural))
		Expect(result.Procedural).To(BeNumerically(">=", 0.9))
		Expect(result.Patterns).To(ContainElement("sequencing-chain"))
	})

	It("treats suggestions as opinions rather than procedures", func() {
		result := extract.Route("I think we should automate the deploy process")

		Expect(result.Patterns).To(ContainElement("suggestion-penalty"))
		Expect(result.Type()).To(Equal(memory.Semantic))
		Expect(result.Procedural).To(BeNumerically("<", 0.2))
	})

	It("dampens fact signals when the event reading dominates", func() {
		result := extract.Route("We met this morning and the migration was completed")

		Expect(result.Patterns).To(ContainElement("episodic-dominant"))
		Expect(result.Type()).To(Equal(memory.Episodic))
	})

	It("defaults to semantic when nothing fires", func() {
		result := extract.Route("blue cheese omelette")

		Expect(result.Type()).To(Equal(memory.Semantic))
		Expect(result.Semantic).To(Equal(0.5))
		Expect(result.Patterns).To(ContainElement("default-semantic"))
	})

	It("resolves a near-tie to semantic", func() {
		// "met" scores 0.3 episodic, "5 minutes" scores 0.25 semantic;
		// the 0.05 gap falls inside the tie band.
		result := extract.Route("Met the 5 minutes response target")

		Expect(result.Episodic).To(BeNumerically(">", result.Semantic))
		Expect(result.Type()).To(Equal(memory.Semantic))
		Expect(result.Confidence).To(Equal(0.6))
	})

	It("keeps scores within the unit interval", func() {
		result := extract.Route(
			"Yesterday we met and discussed the outage that happened last week, " +
				"which caused the crash we saw this morning during the standup meeting",
		)

		Expect(result.Episodic).To(BeNumerically("<=", 1.0))
		Expect(result.Episodic).To(Equal(1.0))
	})

	It("is deterministic for identical input", func() {
		text := "First, check the logs. Then, restart the worker."

		Expect(extract.Route(text)).To(Equal(extract.Route(text)))
	})
})
