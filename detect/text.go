package detect

import (
	"slices"

	"github.com/hazyhaar/bidicheck/classify"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/walker"
)

// UndeclaredText reports opposite-direction runs inside sealed chunks: LTR
// runs in RTL chunks and RTL runs (plus fake-RTL runs from revision 2) in
// LTR chunks.
type UndeclaredText struct {
	base
	revision Revision
}

// NewUndeclaredText returns an undeclared text detector.
func NewUndeclaredText(o Options) *UndeclaredText {
	return &UndeclaredText{base: newBase(o), revision: o.Revision}
}

func (d *UndeclaredText) Observe(walker.Event) bool { return true }

func (d *UndeclaredText) ObserveChunk(ev walker.ChunkEvent) bool {
	if ev.Kind != walker.ChunkComplete || ev.Chunk.Empty() {
		return true
	}
	c := ev.Chunk
	text := c.Text()

	var runs []classify.Match
	var runDir dom.Direction
	if c.Rtl() {
		runDir = dom.LTR
		for _, m := range d.cls.LTRRuns(text) {
			if !d.cls.OnlyLTRMarksAndNeutrals(m.Text) {
				runs = append(runs, m)
			}
		}
	} else {
		runDir = dom.RTL
		for _, m := range d.cls.RTLRuns(text) {
			if !d.cls.OnlyRTLMarksAndNeutrals(m.Text) {
				runs = append(runs, m)
			}
		}
		if d.revision >= Revision2 {
			runs = append(runs, d.cls.FakeRTLRuns(text)...)
			slices.SortStableFunc(runs, func(a, b classify.Match) int { return a.Index - b.Index })
		}
	}

	for _, m := range runs {
		pre, hasPre := d.cls.NeutralsBefore(text, m.Index)
		post, hasPost := d.cls.NeutralsAfter(text, m.End())

		sev := report.SeverityMedium
		switch {
		case c.Declared():
			sev = report.SeverityLow
		case hasPre && d.cls.HasVisibleNeutral(pre.Text),
			hasPost && d.cls.HasVisibleNeutral(post.Text):
			sev = report.SeverityHigh
		}

		var area dom.Area
		if r := c.Range(m.Index, len(m.Text)); r != nil {
			area = r
		}
		ok := d.report(report.UndeclaredTextType(runDir), sev, area, func(e *report.Error) {
			e.AtText = m.Text
			if hasPre {
				e.SetPrecededByText(pre.Text)
			}
			if hasPost {
				e.SetFollowedByText(post.Text)
			}
		})
		if !ok {
			return false
		}
	}
	return true
}
