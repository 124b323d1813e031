package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/bidicheck/capture"
	"github.com/hazyhaar/bidicheck/checker"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/render"
	"github.com/hazyhaar/bidicheck/sink"
	"github.com/hazyhaar/bidicheck/store"
)

var scanFlags struct {
	dir         string
	revision    int
	table       string
	filters     string
	format      string
	mode        string
	live        bool
	stopOnFirst bool
	save        bool
	output      string
}

var scanCmd = &cobra.Command{
	Use:   "scan <file|url>...",
	Short: "Check pages for bidirectional text defects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyScanFlags(cmd)
		format, err := render.ParseFormat(scanFlags.format)
		if err != nil {
			return err
		}

		sc, err := newScanner()
		if err != nil {
			return err
		}
		defer sc.Close()

		out := io.Writer(os.Stdout)
		if scanFlags.output != "" {
			f, err := os.Create(scanFlags.output)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			defer f.Close()
			out = f
			color.NoColor = true
		}

		total := 0
		for _, src := range args {
			n, err := sc.run(cmd.Context(), src, format, out)
			if err != nil {
				return err
			}
			total += n
		}
		if total > 0 {
			return errDefects
		}
		return nil
	},
}

func init() {
	f := scanCmd.Flags()
	f.StringVar(&scanFlags.dir, "dir", "", "expected page direction: rtl, ltr or unknown")
	f.IntVar(&scanFlags.revision, "revision", 2, "detection rule set: 1 or 2")
	f.StringVar(&scanFlags.table, "table", "v2", "character table version: v1 or v2")
	f.StringVar(&scanFlags.filters, "filters", "", "filter definitions file (JSON or YAML)")
	f.StringVarP(&scanFlags.format, "format", "f", "text", "output format: text, json, html or markdown")
	f.StringVar(&scanFlags.mode, "mode", "static", "page acquisition for URLs: static, live or auto")
	f.BoolVar(&scanFlags.live, "live", false, "render URLs in Chrome (same as --mode live)")
	f.BoolVar(&scanFlags.stopOnFirst, "stop-on-first", false, "stop at the first reported defect")
	f.BoolVar(&scanFlags.save, "save", false, "record the scan in the history database")
	f.StringVarP(&scanFlags.output, "output", "o", "", "write the report to a file instead of stdout")
}

// applyScanFlags lets explicitly set flags override the config file.
func applyScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("dir") {
		cfg.Check.Dir = scanFlags.dir
	}
	if f.Changed("revision") {
		cfg.Check.Revision = scanFlags.revision
	}
	if f.Changed("table") {
		cfg.Check.Table = scanFlags.table
	}
	if f.Changed("filters") {
		cfg.Check.FiltersFile = scanFlags.filters
	}
	if f.Changed("stop-on-first") {
		cfg.Check.StopOnFirst = scanFlags.stopOnFirst
	}
	if f.Changed("mode") {
		cfg.Browser.Mode = scanFlags.mode
	}
	if scanFlags.live {
		cfg.Browser.Mode = string(capture.ModeLive)
	}
	if scanFlags.save {
		cfg.Store.Save = true
	}
}

// scanner holds what one CLI invocation shares across sources.
type scanner struct {
	opts    checker.Options
	loader  *capture.Loader
	browser *capture.Browser
	store   *store.Store
	router  *sink.Router
}

func newScanner() (*scanner, error) {
	opts, err := cfg.CheckOptions(logger)
	if err != nil {
		return nil, err
	}
	loader, browser, err := cfg.Loader(logger)
	if err != nil {
		return nil, err
	}
	sc := &scanner{opts: opts, loader: loader, browser: browser}

	if cfg.Store.Save {
		if sc.store, err = openStore(); err != nil {
			sc.Close()
			return nil, err
		}
	}
	if sc.router, err = deliveryRouter(sc.store); err != nil {
		sc.Close()
		return nil, err
	}
	return sc, nil
}

// run checks src, writes the report and delivers the scan. It returns the
// number of defects found.
func (sc *scanner) run(ctx context.Context, src string, format render.Format, out io.Writer) (int, error) {
	doc, err := sc.loader.Load(ctx, src)
	if err != nil {
		return 0, err
	}
	res, err := checker.Check(ctx, doc, sc.opts)
	if err != nil {
		return 0, err
	}
	if err := render.Write(out, format, render.FromResult(src, sc.opts.Expected, res)); err != nil {
		return 0, fmt.Errorf("scan: render: %w", err)
	}

	if sc.router.Len() > 0 {
		scan := newScan(src, sc.opts, res)
		if err := sc.router.Send(ctx, scan); err != nil {
			logger.Warn("bidicheck: delivery failed", "source", src, "error", err)
		} else if scan.ID != "" {
			logger.Info("bidicheck: scan saved", "id", scan.ID, "source", src)
		}
	}
	return len(res.Errors), nil
}

func (sc *scanner) Close() error {
	// The router owns the store once built.
	if sc.router != nil {
		sc.router.Close()
	} else if sc.store != nil {
		sc.store.Close()
	}
	if sc.browser != nil {
		return sc.browser.Close()
	}
	return nil
}

func newScan(src string, opts checker.Options, res *checker.Result) *sink.Scan {
	scan := &sink.Scan{
		Source:    src,
		Revision:  int(opts.Revision),
		Stopped:   res.Stopped,
		Errors:    res.Records(),
		ScannedAt: time.Now().UTC(),
	}
	if opts.Expected != dom.Unknown {
		scan.Expected = opts.Expected.String()
	}
	return scan
}
