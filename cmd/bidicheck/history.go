package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/render"
)

var historyFlags struct {
	limit  int
	id     string
	source string
	stats  bool
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved scans, or show one with --id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		ctx := cmd.Context()

		if historyFlags.stats {
			counts, err := st.TypeCounts(ctx, historyFlags.id)
			if err != nil {
				return err
			}
			types := make([]string, 0, len(counts))
			for t := range counts {
				types = append(types, t)
			}
			sort.Strings(types)
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, t := range types {
				fmt.Fprintf(tw, "%d\t%s\n", counts[t], t)
			}
			return tw.Flush()
		}

		if historyFlags.id != "" {
			d, err := st.Get(ctx, historyFlags.id)
			if err != nil {
				return err
			}
			format, err := render.ParseFormat(historyFlags.format)
			if err != nil {
				return err
			}
			expected, _ := dom.ParseDirection(d.Expected)
			r := &render.Report{Source: d.Source, Expected: expected, Stopped: d.Stopped}
			for _, rec := range d.Errors {
				r.Errors = append(r.Errors, rec.Error())
			}
			return render.Write(os.Stdout, format, r)
		}

		scans, err := st.List(ctx, historyFlags.source, historyFlags.limit)
		if err != nil {
			return err
		}
		if historyFlags.format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(scans)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSCANNED\tERRORS\tSOURCE")
		for _, s := range scans {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.ScannedAt.Local().Format("2006-01-02 15:04"), s.Count, s.Source)
		}
		return tw.Flush()
	},
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyFlags.limit, "limit", 20, "maximum scans listed")
	f.StringVar(&historyFlags.id, "id", "", "show one scan with its findings")
	f.StringVar(&historyFlags.source, "source", "", "only scans of this URL or path")
	f.BoolVar(&historyFlags.stats, "stats", false, "count findings per type (all scans, or --id)")
	f.StringVarP(&historyFlags.format, "format", "f", "text", "output format: text or json; with --id also html or markdown")
}

