// CLAUDE:SUMMARY Collector, per-document Scanner and the Check entry point tying walker, detectors, filters and session together.
// Package checker runs the detectors over a document and its frames and
// collects the errors that survive the filters.
package checker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/bidicheck/classify"
	"github.com/hazyhaar/bidicheck/detect"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/filter"
)

// Revision selects the detection rule set. It has no usable zero value.
type Revision = detect.Revision

const (
	Revision1 = detect.Revision1
	Revision2 = detect.Revision2
)

// ErrRevisionRequired is returned when Options.Revision is not set to a
// known revision.
var ErrRevisionRequired = errors.New("checker: revision required")

// Options configures one Check call.
type Options struct {
	// Expected is the page direction; Unknown skips the overall check.
	Expected    dom.Direction
	Filters     []filter.Filter
	Revision    Revision
	StopOnFirst bool
	// Table overrides the character table; the zero Table means the
	// document's classifier. An override is installed on the document
	// too, so dir="auto" resolves with the same table as detection.
	Table  classify.Table
	Logger *slog.Logger
}

func (o *Options) validate() error {
	if !o.Revision.Valid() {
		if o.Revision == 0 {
			return ErrRevisionRequired
		}
		return fmt.Errorf("%w: got %d", ErrRevisionRequired, o.Revision)
	}
	return nil
}

func (o *Options) classifier(doc *dom.Document) (*classify.Classifier, error) {
	if o.Table == (classify.Table{}) {
		return doc.Classifier(), nil
	}
	c, err := classify.New(o.Table)
	if err != nil {
		return nil, fmt.Errorf("checker: table: %w", err)
	}
	return c, nil
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
