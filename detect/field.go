package detect

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/walker"
)

// Field names used in error types.
const (
	FieldTitle   = "title"
	FieldValue   = "value"
	FieldAltText = "alt text"
)

// textInputTypes show their value as text.
var textInputTypes = map[string]bool{
	"":       true,
	"text":   true,
	"search": true,
	"url":    true,
	"tel":    true,
	"email":  true,
	"submit": true,
	"reset":  true,
	"button": true,
}

// UndeclaredField checks attribute text (title, input values, alt text,
// textarea content) against the element's own direction.
type UndeclaredField struct {
	base
}

// NewUndeclaredField returns an attribute text detector.
func NewUndeclaredField(o Options) *UndeclaredField {
	return &UndeclaredField{base: newBase(o)}
}

func (d *UndeclaredField) ObserveChunk(walker.ChunkEvent) bool { return true }

func (d *UndeclaredField) Observe(ev walker.Event) bool {
	if ev.Kind != walker.StartElement {
		return true
	}
	n := ev.Node
	rtl := ev.State.Rtl

	if n.DataAtom == atom.Input && strings.EqualFold(dom.Attr(n, "type"), "file") && rtl {
		if !d.report(report.TypeFileInputNotLTR, report.SeverityHigh, dom.NewElementArea(n), nil) {
			return false
		}
	}

	if v, ok := dom.LookupAttr(n, "title"); ok {
		if !d.check(n, rtl, FieldTitle, v, false) {
			return false
		}
	}

	switch n.DataAtom {
	case atom.Input:
		typ := strings.ToLower(strings.TrimSpace(dom.Attr(n, "type")))
		switch {
		case textInputTypes[typ]:
			if v, ok := dom.LookupAttr(n, "value"); ok {
				return d.check(n, rtl, FieldValue, v, true)
			}
		case typ == "image":
			if v, ok := dom.LookupAttr(n, "alt"); ok {
				return d.check(n, rtl, FieldAltText, v, false)
			}
		}
	case atom.Img:
		if v, ok := dom.LookupAttr(n, "alt"); ok {
			return d.check(n, rtl, FieldAltText, v, false)
		}
	case atom.Textarea:
		return d.check(n, rtl, FieldValue, dom.TextContent(n), true)
	}
	return true
}

// check reports v when it holds strong text of only the direction opposite
// to the element's.
func (d *UndeclaredField) check(n *html.Node, rtl bool, field, v string, userValue bool) bool {
	hasL, hasR := d.cls.HasLTR(v), d.cls.HasRTL(v)
	var textDir dom.Direction
	switch {
	case rtl && hasL && !hasR:
		textDir = dom.LTR
	case !rtl && hasR && !hasL:
		textDir = dom.RTL
	default:
		return true
	}

	sev := report.SeverityMedium
	switch {
	case userValue:
		sev = report.SeverityCritical
	case d.explicitMismatch(n, direction(rtl)):
		sev = report.SeverityLow
	case d.edgeVisibleNeutrals(v):
		sev = report.SeverityHigh
	}
	return d.report(report.UndeclaredFieldType(textDir, field), sev, dom.NewElementArea(n), func(e *report.Error) {
		e.AtText = v
	})
}

// explicitMismatch reports whether n or its parent declares a direction
// other than n's computed one.
func (d *UndeclaredField) explicitMismatch(n *html.Node, computed dom.Direction) bool {
	for _, x := range []*html.Node{n, dom.ParentElement(n)} {
		if dir, ok := d.doc.ExplicitDirection(x); ok && dir != computed {
			return true
		}
	}
	return false
}

func (d *UndeclaredField) edgeVisibleNeutrals(v string) bool {
	if _, ok := d.cls.LeadingVisibleNeutrals(v); ok {
		return true
	}
	_, ok := d.cls.TrailingVisibleNeutrals(v)
	return ok
}
