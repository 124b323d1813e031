package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/bidicheck/capture"
	"github.com/hazyhaar/bidicheck/render"
	"github.com/hazyhaar/bidicheck/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>...",
	Short: "Re-check local files every time they are saved",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, a := range args {
			if capture.IsURL(a) {
				return fmt.Errorf("watch: %s: only local files can be watched", a)
			}
		}
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

		w, err := watch.New(args, watch.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer w.Close()

		ctx := cmd.Context()
		for _, a := range args {
			if _, err := sc.run(ctx, a, format, os.Stdout); err != nil {
				logger.Warn("bidicheck: scan failed", "path", a, "error", err)
			}
		}
		return w.Run(ctx, func(ctx context.Context, path string) error {
			_, err := sc.run(ctx, path, format, os.Stdout)
			return err
		})
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&scanFlags.dir, "dir", "", "expected page direction: rtl, ltr or unknown")
	f.IntVar(&scanFlags.revision, "revision", 2, "detection rule set: 1 or 2")
	f.StringVar(&scanFlags.table, "table", "v2", "character table version: v1 or v2")
	f.StringVar(&scanFlags.filters, "filters", "", "filter definitions file (JSON or YAML)")
	f.StringVarP(&scanFlags.format, "format", "f", "text", "output format: text, json, html or markdown")
	f.BoolVar(&scanFlags.save, "save", false, "record every scan in the history database")
}
