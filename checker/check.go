package checker

import (
	"context"
	"errors"

	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
)

// Result is the outcome of one Check.
type Result struct {
	Errors []*report.Error
	// Session holds the highlightable areas of Errors by id.
	Session *report.Session
	// Stopped is set when stop-on-first ended the scan early.
	Stopped bool
	// Doc is the checked document.
	Doc *dom.Document
}

// Records returns the serializable form of r.Errors.
func (r *Result) Records() []report.Record { return report.Records(r.Errors) }

// Check scans doc and its frames with a fresh session.
func Check(ctx context.Context, doc *dom.Document, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cls, err := opts.classifier(doc)
	if err != nil {
		return nil, err
	}
	doc.SetClassifier(cls)
	logger := opts.logger()

	session := report.NewSession()
	collector := NewCollector(session, opts.Filters, opts.StopOnFirst)
	scanner := NewScanner(session, collector, cls, opts.Revision, opts.Expected, logger)

	res := &Result{Session: session, Doc: doc}
	err = scanner.Scan(ctx, doc)
	var stop *StopError
	switch {
	case errors.As(err, &stop):
		res.Stopped = true
	case err != nil:
		return nil, err
	}
	res.Errors = collector.Errors()

	logger.Debug("checker: scan done",
		"url", doc.URL,
		"errors", len(res.Errors),
		"stopped", res.Stopped,
		"revision", int(opts.Revision))
	return res, nil
}
