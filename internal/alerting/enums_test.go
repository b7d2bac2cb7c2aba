package alerting_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"citywatch.dev/sentinel/internal/alerting"
)

var _ = Describe("Normalization", func() {
	Describe("NormalizeCategories", func() {
		Context("with a types array", func() {
			It("should map each element through the category table", func() {
				out := alerting.NormalizeCategories([]string{"intrusion", "fire"}, "")
				Expect(out).To(Equal([]alerting.Category{
					alerting.CategoryIntrusion,
					alerting.CategoryFire,
				}))
			})

			It("should map unknown elements to OTHER", func() {
				out := alerting.NormalizeCategories([]string{"meteor strike"}, "")
				Expect(out).To(Equal([]alerting.Category{alerting.CategoryOther}))
			})

			It("should ignore the legacy type when the array is present", func() {
				out := alerting.NormalizeCategories([]string{"flood"}, "intrusion")
				Expect(out).To(Equal([]alerting.Category{alerting.CategoryFlood}))
			})
		})

		Context("with only the legacy single type", func() {
			It("should wrap it as a single-element list", func() {
				out := alerting.NormalizeCategories(nil, "anomaly")
				Expect(out).To(Equal([]alerting.Category{alerting.CategoryAnomaly}))
			})
		})

		Context("with neither types nor legacy type", func() {
			It("should default to [OTHER]", func() {
				Expect(alerting.NormalizeCategories(nil, "")).
					To(Equal([]alerting.Category{alerting.CategoryOther}))
				Expect(alerting.NormalizeCategories([]string{}, "  ")).
					To(Equal([]alerting.Category{alerting.CategoryOther}))
			})
		})
	})

	Describe("NormalizeSeverity", func() {
		DescribeTable("should map severity strings",
			func(input string, expected alerting.Severity) {
				Expect(alerting.NormalizeSeverity(input)).To(Equal(expected))
			},
			Entry("critical", "critical", alerting.SeverityCritical),
			Entry("high", "high", alerting.SeverityHigh),
			Entry("medium", "medium", alerting.SeverityMedium),
			Entry("low", "low", alerting.SeverityLow),
			Entry("mixed case", "CrItIcAl", alerting.SeverityCritical),
			Entry("surrounding whitespace", " high ", alerting.SeverityHigh),
			Entry("unknown falls back to low", "catastrophic", alerting.SeverityLow),
			Entry("empty falls back to low", "", alerting.SeverityLow),
		)
	})

	Describe("NormalizeStatus", func() {
		DescribeTable("should map status strings",
			func(input string, expected alerting.Status) {
				Expect(alerting.NormalizeStatus(input)).To(Equal(expected))
			},
			Entry("unresolved", "unresolved", alerting.StatusUnresolved),
			Entry("investigating", "investigating", alerting.StatusInvestigating),
			Entry("resolved", "resolved", alerting.StatusResolved),
			Entry("upper case", "RESOLVED", alerting.StatusResolved),
			Entry("unknown falls back to unresolved", "closed", alerting.StatusUnresolved),
			Entry("empty falls back to unresolved", "", alerting.StatusUnresolved),
		)
	})

	Describe("ParseStatus", func() {
		It("should accept the three enumerated values", func() {
			for _, raw := range []string{"UNRESOLVED", "INVESTIGATING", "RESOLVED"} {
				status, ok := alerting.ParseStatus(raw)
				Expect(ok).To(BeTrue())
				Expect(string(status)).To(Equal(raw))
			}
		})

		It("should reject anything else without coercing", func() {
			for _, raw := range []string{"CLOSED", "resolved", "", "Investigating"} {
				_, ok := alerting.ParseStatus(raw)
				Expect(ok).To(BeFalse(), "expected %q to be rejected", raw)
			}
		})
	})
})
