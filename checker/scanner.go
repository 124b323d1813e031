package checker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/bidicheck/classify"
	"github.com/hazyhaar/bidicheck/detect"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/walker"
)

// StopError is returned by Scan when the collector asked to stop. Err is
// the error that triggered the stop.
type StopError struct {
	Err *report.Error
}

func (e *StopError) Error() string {
	if e.Err == nil {
		return "checker: stopped"
	}
	return fmt.Sprintf("checker: stopped on error %d: %s", e.Err.ID, e.Err.Type)
}

// Scanner runs one pass per document and recurses into frames.
type Scanner struct {
	session   *report.Session
	collector *Collector
	cls       *classify.Classifier
	revision  Revision
	expected  dom.Direction
	logger    *slog.Logger
}

// NewScanner returns a scanner feeding collector.
func NewScanner(session *report.Session, collector *Collector, cls *classify.Classifier, revision Revision, expected dom.Direction, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		session:   session,
		collector: collector,
		cls:       cls,
		revision:  revision,
		expected:  expected,
		logger:    logger,
	}
}

// Scan checks doc, then each of its frames depth first.
func (s *Scanner) Scan(ctx context.Context, doc *dom.Document) error {
	w := walker.New(doc, nil)
	if err := s.pass(ctx, doc, w); err != nil {
		return err
	}

	for _, frame := range w.Frames() {
		sub, err := doc.Frame(frame)
		if err != nil {
			s.logger.Debug("checker: frame skipped",
				"frame", dom.DescribeElement(frame),
				"depth", s.collector.FrameDepth(),
				"error", err)
			continue
		}
		s.collector.PushFrame(frame)
		err = s.Scan(ctx, sub)
		s.collector.PopFrame()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) pass(ctx context.Context, doc *dom.Document, w *walker.Walker) error {
	ds := detect.Build(detect.Options{
		Doc:        doc,
		Session:    s.session,
		Sink:       s.collector,
		Classifier: s.cls,
		Revision:   s.revision,
		Expected:   s.expected,
	})
	agg := walker.NewAggregator()

	for ev := range w.Events() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("checker: scan: %w", err)
		}
		for _, d := range ds {
			if !d.Observe(ev) {
				return s.stop()
			}
		}
		for _, cev := range agg.Feed(ev) {
			for _, d := range ds {
				if !d.ObserveChunk(cev) {
					return s.stop()
				}
			}
		}
	}
	return nil
}

func (s *Scanner) stop() error {
	errs := s.collector.Errors()
	var first *report.Error
	if len(errs) > 0 {
		first = errs[0]
	}
	return &StopError{Err: first}
}
