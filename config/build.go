package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hazyhaar/bidicheck/capture"
	"github.com/hazyhaar/bidicheck/checker"
	"github.com/hazyhaar/bidicheck/classify"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/filter"
	"github.com/hazyhaar/bidicheck/sink"
)

// CheckOptions turns the check section into checker options, loading the
// filters file when one is set.
func (c *Config) CheckOptions(logger *slog.Logger) (checker.Options, error) {
	expected, err := dom.ParseDirection(c.Check.Dir)
	if err != nil {
		return checker.Options{}, fmt.Errorf("config: check.dir: %w", err)
	}
	rev := checker.Revision(c.Check.Revision)
	if !rev.Valid() {
		return checker.Options{}, fmt.Errorf("config: check.revision %d: %w", c.Check.Revision, checker.ErrRevisionRequired)
	}
	table, ok := classify.TableByVersion(c.Check.Table)
	if !ok {
		return checker.Options{}, fmt.Errorf("config: unknown check.table %q", c.Check.Table)
	}

	opts := checker.Options{
		Expected:    expected,
		Revision:    rev,
		StopOnFirst: c.Check.StopOnFirst,
		Table:       table,
		Logger:      logger,
	}
	if c.Check.FiltersFile != "" {
		filters, err := filter.LoadFile(c.Check.FiltersFile)
		if err != nil {
			return checker.Options{}, err
		}
		opts.Filters = filters
	}
	return opts, nil
}

// Loader builds the page loader for the configured capture mode. The
// returned Browser is nil in static mode; callers close it when set.
func (c *Config) Loader(logger *slog.Logger) (*capture.Loader, *capture.Browser, error) {
	mode, err := capture.ParseMode(c.Browser.Mode)
	if err != nil {
		return nil, nil, fmt.Errorf("config: browser.mode: %w", err)
	}

	fopts := []capture.FetchOption{
		capture.WithClient(&http.Client{Timeout: c.Fetch.Timeout}),
		capture.WithRetry(c.Fetch.Attempts, c.Fetch.Delay),
		capture.WithLogger(logger),
	}
	if c.Fetch.UserAgent != "" {
		fopts = append(fopts, capture.WithUserAgent(c.Fetch.UserAgent))
	}
	fetcher := capture.NewFetcher(fopts...)

	var browser *capture.Browser
	if mode != capture.ModeStatic {
		browser = capture.NewBrowser(capture.BrowserConfig{
			RemoteURL:        c.Browser.Remote,
			Bin:              c.Browser.Bin,
			Stealth:          c.Browser.Stealth,
			ResourceBlocking: c.Browser.ResourceBlocking,
			NavTimeout:       c.Browser.Timeout,
			RecycleInterval:  c.Browser.RecycleInterval,
			Logger:           logger,
		})
	}
	return capture.NewLoader(mode, fetcher, browser, logger), browser, nil
}

// BuildSinks opens every configured sink.
func (c *Config) BuildSinks(logger *slog.Logger) ([]sink.Sink, error) {
	sinks := make([]sink.Sink, 0, len(c.Sinks))
	for i, sc := range c.Sinks {
		s, err := sink.Open(sc.Type, sc.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("config: sinks[%d]: %w", i, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	hopts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Log.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	}
	return nil, fmt.Errorf("config: unknown log.format %q", c.Log.Format)
}
