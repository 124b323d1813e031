package detect

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/walker"
)

// Spillover reports a number that directly follows the end of an inline
// element whose declared direction differs from its surroundings, with only
// neutral text in between. Such a number renders reordered.
//
// The detector holds at most one candidate: the last direction-changing
// element that closed, plus the text nodes seen since.
type Spillover struct {
	base
	cand    *html.Node
	candRtl bool
	nodes   []*html.Node
	pending strings.Builder
}

// NewSpillover returns a spillover detector.
func NewSpillover(o Options) *Spillover {
	return &Spillover{base: newBase(o)}
}

func (d *Spillover) reset() {
	d.cand = nil
	d.nodes = d.nodes[:0]
	d.pending.Reset()
}

func (d *Spillover) Observe(ev walker.Event) bool {
	switch ev.Kind {
	case walker.StartElement:
		if ev.Node == ev.State.Block || d.doc.HasExplicitDirection(ev.Node) {
			d.reset()
		}
	case walker.EndElement:
		switch {
		case ev.Node == ev.State.Block:
			d.reset()
		case d.doc.HasExplicitDirection(ev.Node):
			if ev.State.Rtl == ev.State.ParentRtl {
				d.reset()
				return true
			}
			d.reset()
			d.cand = ev.Node
			d.candRtl = ev.State.Rtl
		}
	case walker.Text:
		if d.cand == nil {
			return true
		}
		return d.text(ev)
	case walker.Done:
		d.reset()
	}
	return true
}

func (d *Spillover) text(ev walker.Event) bool {
	d.nodes = append(d.nodes, ev.Node)
	m, ok := d.cls.NumericPrefix(ev.Text)
	if !ok {
		if d.cls.HasStrong(ev.Text) {
			d.reset()
		} else {
			d.pending.WriteString(ev.Text)
		}
		return true
	}

	area := &dom.TextRange{
		Start:       d.nodes[0],
		StartOffset: 0,
		End:         ev.Node,
		EndOffset:   m.Index + 1,
	}
	atText := d.pending.String() + ev.Text[:m.Index]
	preceded := dom.TextContent(d.cand)
	sev := report.SeverityHigh
	if ev.State.Declared {
		sev = report.SeverityLow
	}
	typ := report.SpilloverType(direction(d.candRtl))
	d.reset()

	return d.report(typ, sev, area, func(e *report.Error) {
		e.AtText = atText
		e.SetPrecededByText(preceded)
		e.SetFollowedByText(m.Text)
	})
}

func (d *Spillover) ObserveChunk(walker.ChunkEvent) bool { return true }
