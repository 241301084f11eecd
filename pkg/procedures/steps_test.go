package procedures_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/muninn/pkg/procedures"
)

var _ = Describe("ExtractSteps", func() {
	descriptions := func(content string) []string {
		steps := procedures.ExtractSteps(content)
		out := make([]string, len(steps))
		for i, s := range steps {
			out[i] = s.Description
		}
		return out
	}

	It("parses numbered lines", func() {
		content := "Deploy protocol:\n1. Run the test suite\n2. Build the image\n3) Push to the registry"
		Expect(descriptions(content)).To(Equal([]string{
			"Run the test suite",
			"Build the image",
			"Push to the registry",
		}))
	})

	It("parses bulleted lines", func() {
		content := "- check disk space\n- rotate the logs"
		Expect(descriptions(content)).To(Equal([]string{
			"check disk space",
			"rotate the logs",
		}))
	})

	It("splits sequenced sentences", func() {
		content := "First, check the logs. Then restart the service. Finally verify health."
		Expect(descriptions(content)).To(Equal([]string{
			"check the logs",
			"restart the service",
			"verify health",
		}))
	})

	It("splits comma-joined sequences", func() {
		content := "First run the migration, then restart the workers"
		Expect(descriptions(content)).To(Equal([]string{
			"run the migration",
			"restart the workers",
		}))
	})

	It("falls back to a single step for unstructured content", func() {
		steps := procedures.ExtractSteps("restart nginx when config changes")
		Expect(steps).To(HaveLen(1))
		Expect(steps[0].Order).To(Equal(1))
		Expect(steps[0].Description).To(Equal("restart nginx when config changes"))
	})

	It("numbers steps from one", func() {
		steps := procedures.ExtractSteps("1. alpha\n2. beta")
		Expect(steps[0].Order).To(Equal(1))
		Expect(steps[1].Order).To(Equal(2))
	})

	It("returns nothing for empty content", func() {
		Expect(procedures.ExtractSteps("   ")).To(BeEmpty())
	})
})

var _ = Describe("Title", func() {
	It("uses the leading sentence", func() {
		title := procedures.Title("Deploy protocol: first build, then push.", nil)
		Expect(title).To(Equal("Deploy protocol: first build, then push"))
	})

	It("truncates long titles to eight words", func() {
		title := procedures.Title("one two three four five six seven eight nine ten", nil)
		Expect(title).To(Equal("one two three four five six seven eight"))
	})

	It("skips bare list numbers", func() {
		steps := procedures.ExtractSteps("1. build the image\n2. push it")
		title := procedures.Title("1. build the image\n2. push it", steps)
		Expect(title).To(Equal("build the image"))
	})
})
