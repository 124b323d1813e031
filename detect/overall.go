package detect

import (
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/walker"
)

// Overall compares the root element's direction with the expected one on
// the first start event of the pass.
type Overall struct {
	base
	expected dom.Direction
	seen     bool
}

// NewOverall returns an overall directionality detector.
func NewOverall(o Options) *Overall {
	return &Overall{base: newBase(o), expected: o.Expected}
}

func (d *Overall) Observe(ev walker.Event) bool {
	if ev.Kind != walker.StartElement || d.seen {
		return true
	}
	d.seen = true
	if d.expected == dom.Unknown || direction(ev.State.Rtl) == d.expected {
		return true
	}
	return d.report(report.OverallType(d.expected), report.SeverityCritical, dom.NewElementArea(ev.Node), nil)
}

func (d *Overall) ObserveChunk(walker.ChunkEvent) bool { return true }
