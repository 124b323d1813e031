package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/bidicheck/dom"
)

// Mode selects how URLs are acquired.
type Mode string

const (
	// ModeStatic fetches over HTTP only.
	ModeStatic Mode = "static"
	// ModeLive renders every URL in Chrome.
	ModeLive Mode = "live"
	// ModeAuto fetches over HTTP and falls back to Chrome when the body is
	// not sufficient on its own.
	ModeAuto Mode = "auto"
)

// ParseMode accepts static, live and auto; empty means static.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeStatic, nil
	case ModeStatic, ModeLive, ModeAuto:
		return m, nil
	}
	return "", fmt.Errorf("capture: unknown mode %q", s)
}

// Loader resolves a source string (a URL or a file path) to a document.
type Loader struct {
	mode    Mode
	fetcher *Fetcher
	browser *Browser
	logger  *slog.Logger
}

// NewLoader returns a Loader. browser may be nil, in which case live and
// auto modes behave as static.
func NewLoader(mode Mode, fetcher *Fetcher, browser *Browser, logger *slog.Logger) *Loader {
	if fetcher == nil {
		fetcher = NewFetcher(WithLogger(logger))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{mode: mode, fetcher: fetcher, browser: browser, logger: logger}
}

// IsURL reports whether source names an http(s) page.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load acquires source.
func (l *Loader) Load(ctx context.Context, source string) (*dom.Document, error) {
	if !IsURL(source) {
		return File(strings.TrimPrefix(source, "file://"))
	}

	if l.browser != nil && l.mode == ModeLive {
		return l.browser.Capture(ctx, source)
	}

	page, err := l.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	if l.browser != nil && l.mode == ModeAuto && !page.Sufficient {
		l.logger.Info("capture: escalating to browser", "url", source, "size", len(page.HTML))
		return l.browser.Capture(ctx, source)
	}
	return l.fetcher.parse(ctx, page.HTML, page.URL, 0)
}
