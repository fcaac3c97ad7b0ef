package scanner

import (
	"math"

	"github.com/zombor/mrz-scanner/internal/engine"
	"github.com/zombor/mrz-scanner/internal/mrz"
)

// GuideRect is the on-screen guide rectangle, expressed as integer
// percentages of the visible viewport.
type GuideRect struct {
	Left    int
	Top     int
	Right   int
	Bottom  int
	Visible bool
}

// Region converts the guide into the engine's scan-region form.
func (g GuideRect) Region() engine.Region {
	return engine.Region{Left: g.Left, Top: g.Top, Right: g.Right, Bottom: g.Bottom}
}

// guideBottomMargin reserves room below the guide for UI chrome, sized as
// five text-line heights.
const guideBottomMargin = 5 * 20

// docRatio is the physical aspect ratio of a document format class.
type docRatio struct {
	w float64
	h float64
}

var docRatios = map[mrz.DocumentType]docRatio{
	mrz.TD1:      {85.6, 54},
	mrz.TD2:      {105, 74},
	mrz.Passport: {125, 88},
}

// ComputeGuide fits the guide rectangle for a document type into the visible
// viewport. The sizing tries one axis first and clamps on the other, so the
// guide never exceeds 90% of the width or 75% of the margin-adjusted height
// while staying as large as possible.
func ComputeGuide(vp engine.Viewport, docType mrz.DocumentType) GuideRect {
	r, ok := docRatios[docType]
	if !ok || vp.Width <= 0 || vp.Height <= 0 {
		return GuideRect{}
	}

	w := float64(vp.Width)
	h := float64(vp.Height)
	usable := h - guideBottomMargin
	if usable < 0 {
		usable = 0
	}

	var unit float64
	if w > h {
		unit = 0.75 * usable / r.h
		if unit*r.w > 0.9*w {
			unit = 0.9 * w / r.w
		}
	} else {
		unit = 0.9 * w / r.w
		if unit*r.h > 0.75*usable {
			unit = 0.75 * usable / r.h
		}
	}

	guideW := unit * r.w
	guideH := unit * r.h
	left := (w - guideW) / 2
	top := (usable - guideH) / 2

	pct := func(v, total float64) int {
		return int(math.Round(100 * v / total))
	}
	return GuideRect{
		Left:    pct(left, w),
		Top:     pct(top, h),
		Right:   pct(left+guideW, w),
		Bottom:  pct(top+guideH, h),
		Visible: true,
	}
}
