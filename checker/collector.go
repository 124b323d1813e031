package checker

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/filter"
	"github.com/hazyhaar/bidicheck/report"
)

// Collector receives detector output. It applies the filters, fills in the
// location description and registers accepted errors in the session.
type Collector struct {
	session     *report.Session
	filters     []filter.Filter
	stopOnFirst bool

	frames []*html.Node // outermost first
	errs   []*report.Error
}

// NewCollector returns a collector bound to session.
func NewCollector(session *report.Session, filters []filter.Filter, stopOnFirst bool) *Collector {
	return &Collector{session: session, filters: filters, stopOnFirst: stopOnFirst}
}

// PushFrame enters the document displayed by frame.
func (c *Collector) PushFrame(frame *html.Node) { c.frames = append(c.frames, frame) }

// PopFrame leaves the innermost frame.
func (c *Collector) PopFrame() {
	if len(c.frames) > 0 {
		c.frames = c.frames[:len(c.frames)-1]
	}
}

// FrameDepth returns the number of frames entered.
func (c *Collector) FrameDepth() int { return len(c.frames) }

// chain returns the elements a location filter looks at: the anchor and its
// ancestors, then each enclosing frame element and its ancestors, inner to
// outer.
func (c *Collector) chain(anchor *html.Node) []*html.Node {
	var out []*html.Node
	if anchor != nil {
		out = dom.Ancestors(anchor)
	}
	for i := len(c.frames) - 1; i >= 0; i-- {
		out = append(out, dom.Ancestors(c.frames[i])...)
	}
	return out
}

func (c *Collector) describe(anchor *html.Node) string {
	var parts []string
	if anchor != nil {
		parts = append(parts, dom.Describe(anchor))
	}
	for i := len(c.frames) - 1; i >= 0; i-- {
		parts = append(parts, dom.Describe(c.frames[i]))
	}
	return strings.Join(parts, " in ")
}

// Add files e unless a filter suppresses it. It returns false once an
// error has been accepted with stop-on-first set.
func (c *Collector) Add(e *report.Error) bool {
	var anchor *html.Node
	if a := e.Area(); a != nil {
		anchor = a.Anchor()
	}
	if filter.Any(c.filters, e, c.chain(anchor)) {
		return true
	}
	e.SetLocationDescription(c.describe(anchor))
	c.errs = append(c.errs, e)
	c.session.Register(e)
	return !c.stopOnFirst
}

// Errors returns the accepted errors in insertion order.
func (c *Collector) Errors() []*report.Error { return c.errs }
