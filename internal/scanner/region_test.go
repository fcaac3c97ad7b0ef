package scanner

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/mrz"
)

var _ = Describe("ComputeGuide", func() {
	allTypes := []mrz.DocumentType{mrz.TD1, mrz.TD2, mrz.Passport}

	It("stays within the viewport for all document types and sizes", func() {
		for _, docType := range allTypes {
			for width := 100; width <= 4000; width += 325 {
				for height := 100; height <= 4000; height += 325 {
					rect := ComputeGuide(engine.Viewport{Width: width, Height: height}, docType)

					Expect(rect.Left).To(BeNumerically(">=", 0), "left for %s %dx%d", docType, width, height)
					Expect(rect.Right).To(BeNumerically("<=", 100), "right for %s %dx%d", docType, width, height)
					Expect(rect.Top).To(BeNumerically(">=", 0), "top for %s %dx%d", docType, width, height)
					Expect(rect.Bottom).To(BeNumerically("<=", 100), "bottom for %s %dx%d", docType, width, height)
					Expect(rect.Left).To(BeNumerically("<=", rect.Right))
					Expect(rect.Top).To(BeNumerically("<=", rect.Bottom))
				}
			}
		}
	})

	It("centers the guide horizontally", func() {
		rect := ComputeGuide(engine.Viewport{Width: 1280, Height: 720}, mrz.Passport)
		Expect(rect.Left + rect.Right).To(BeNumerically("~", 100, 1))
	})

	It("marks the guide visible for a usable viewport", func() {
		rect := ComputeGuide(engine.Viewport{Width: 1280, Height: 720}, mrz.TD1)
		Expect(rect.Visible).To(BeTrue())
	})

	It("fills more width in portrait orientation", func() {
		portrait := ComputeGuide(engine.Viewport{Width: 720, Height: 1280}, mrz.TD1)
		Expect(portrait.Right - portrait.Left).To(BeNumerically("~", 90, 1))
	})

	It("returns a hidden zero rectangle for a degenerate viewport", func() {
		Expect(ComputeGuide(engine.Viewport{}, mrz.TD1).Visible).To(BeFalse())
	})

	It("sizes the guide by the document aspect ratio", func() {
		vp := engine.Viewport{Width: 2000, Height: 1000}
		card := ComputeGuide(vp, mrz.TD1)
		passport := ComputeGuide(vp, mrz.Passport)
		// With the same landscape height cap, the wider card ratio
		// spans more columns.
		Expect(card.Right - card.Left).To(BeNumerically(">", passport.Right-passport.Left))
	})
})
