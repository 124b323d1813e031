// Package sink delivers finished scans to output backends.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/bidicheck/report"
)

// Scan is one finished scan as delivered to sinks.
type Scan struct {
	ID        string          `json:"id,omitempty"`
	Source    string          `json:"source"`
	Expected  string          `json:"expected,omitempty"`
	Revision  int             `json:"revision"`
	Stopped   bool            `json:"stopped,omitempty"`
	Errors    []report.Record `json:"errors"`
	ScannedAt time.Time       `json:"scannedAt"`
}

// Sink is the output interface. Implementations deliver scans to stdout,
// a webhook or an in-process callback.
type Sink interface {
	Send(ctx context.Context, scan *Scan) error
	Close() error
}

// Open builds a sink by kind: "stdout" or "webhook" (target is the URL).
func Open(kind, target string, logger *slog.Logger) (Sink, error) {
	switch kind {
	case "stdout", "":
		return NewStdout(nil), nil
	case "webhook":
		if target == "" {
			return nil, fmt.Errorf("sink: webhook: url required")
		}
		return NewWebhook(target, WithWebhookLogger(logger)), nil
	}
	return nil, fmt.Errorf("sink: unknown kind %q", kind)
}
