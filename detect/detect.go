// CLAUDE:SUMMARY Bidi detectors (overall direction, undeclared text, spillover, undeclared field) fed by walker and chunk events.
// Package detect holds the detectors. Each detector serves exactly one scan
// pass: it is fed walker events and chunk events by an explicit dispatch
// loop and posts what it finds to a Sink.
package detect

import (
	"fmt"

	"github.com/hazyhaar/bidicheck/classify"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/walker"
)

// Sink accepts detected errors. Add returns false to stop the scan.
type Sink interface {
	Add(e *report.Error) bool
}

// Detector consumes one pass's events. Both methods return false when the
// sink asked to stop.
type Detector interface {
	Observe(ev walker.Event) bool
	ObserveChunk(ev walker.ChunkEvent) bool
}

// Revision selects the detection rule set.
type Revision int

const (
	// Revision1 is the original rule set.
	Revision1 Revision = 1
	// Revision2 adds fake-RTL runs to undeclared text detection and the
	// attribute text detector.
	Revision2 Revision = 2
)

// Valid reports whether r is a known revision.
func (r Revision) Valid() bool { return r == Revision1 || r == Revision2 }

// ParseRevision accepts "1" and "2".
func ParseRevision(s string) (Revision, error) {
	switch s {
	case "1":
		return Revision1, nil
	case "2":
		return Revision2, nil
	}
	return 0, fmt.Errorf("detect: invalid revision %q", s)
}

// Options is what every detector of a pass shares.
type Options struct {
	Doc        *dom.Document
	Session    *report.Session
	Sink       Sink
	Classifier *classify.Classifier
	Revision   Revision
	// Expected is the page direction to check; Unknown disables the
	// overall directionality detector.
	Expected dom.Direction
}

type base struct {
	doc     *dom.Document
	session *report.Session
	sink    Sink
	cls     *classify.Classifier
}

func newBase(o Options) base {
	cls := o.Classifier
	if cls == nil {
		cls = classify.Default()
	}
	return base{doc: o.Doc, session: o.Session, sink: o.Sink, cls: cls}
}

func (b base) report(typ string, sev report.Severity, area dom.Area, fill func(*report.Error)) bool {
	e := b.session.NewError(typ, sev, area)
	if fill != nil {
		fill(e)
	}
	return b.sink.Add(e)
}

// Build returns fresh detectors for one pass.
func Build(o Options) []Detector {
	var ds []Detector
	if o.Expected != dom.Unknown {
		ds = append(ds, NewOverall(o))
	}
	ds = append(ds, NewUndeclaredText(o), NewSpillover(o))
	if o.Revision >= Revision2 {
		ds = append(ds, NewUndeclaredField(o))
	}
	return ds
}

func direction(rtl bool) dom.Direction {
	if rtl {
		return dom.RTL
	}
	return dom.LTR
}
