package mrz

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExpandYear", func() {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	It("treats years above the current two-digit year as 1900s", func() {
		Expect(ExpandYear(90, now)).To(Equal(1990))
		Expect(ExpandYear(25, now)).To(Equal(1925))
	})

	It("treats years at or below the current two-digit year as 2000s", func() {
		Expect(ExpandYear(10, now)).To(Equal(2010))
		Expect(ExpandYear(24, now)).To(Equal(2024))
		Expect(ExpandYear(0, now)).To(Equal(2000))
	})
})

var _ = Describe("Age", func() {
	var (
		birth Date
		now   time.Time
	)

	BeforeEach(func() {
		birth = Date{Year: 90, Month: 5, Day: 10}
	})

	When("the birthday has already occurred this year", func() {
		BeforeEach(func() {
			now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		})

		It("counts the full year difference", func() {
			Expect(Age(birth, now)).To(Equal(34))
		})
	})

	When("the birthday falls on today", func() {
		BeforeEach(func() {
			now = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
		})

		It("counts the full year difference", func() {
			Expect(Age(birth, now)).To(Equal(34))
		})
	})

	When("the birthday has not yet occurred this year", func() {
		BeforeEach(func() {
			now = time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
		})

		It("counts one year less", func() {
			Expect(Age(birth, now)).To(Equal(33))
		})
	})
})

var _ = Describe("FormatDate", func() {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	It("renders an expanded ISO date", func() {
		Expect(FormatDate(Date{Year: 74, Month: 8, Day: 12}, now)).To(Equal("1974-08-12"))
	})

	It("renders nothing for a zero date", func() {
		Expect(FormatDate(Date{}, now)).To(Equal(""))
	})
})
