package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hazyhaar/bidicheck/classify"
	"github.com/hazyhaar/bidicheck/report"
)

var severityColors = map[report.Severity]*color.Color{
	report.SeverityCritical: color.New(color.FgRed, color.Bold),
	report.SeverityHigh:     color.New(color.FgRed),
	report.SeverityMedium:   color.New(color.FgYellow),
	report.SeverityLow:      color.New(color.FgCyan),
}

var (
	dim   = color.New(color.Faint)
	green = color.New(color.FgGreen)
)

// Text writes one block per error, colored by severity when the writer is
// a terminal (fatih/color decides).
func Text(w io.Writer, r *Report) error {
	esc := classify.Default().Escape
	var b strings.Builder

	if r.Source != "" {
		fmt.Fprintf(&b, "%s\n", dim.Sprint(r.Source))
	}
	for _, e := range r.Errors {
		label := fmt.Sprintf("[%s]", strings.ToUpper(e.Severity.String()))
		if c, ok := severityColors[e.Severity]; ok {
			label = c.Sprint(label)
		}
		fmt.Fprintf(&b, "%s #%d %s", label, e.ID, e.Type)
		if e.AtText != "" {
			fmt.Fprintf(&b, " %q", esc(e.AtText))
		}
		b.WriteByte('\n')
		if e.PrecededByText != "" || e.FollowedByText != "" {
			fmt.Fprintf(&b, "    preceded by %q, followed by %q\n", esc(e.PrecededByText), esc(e.FollowedByText))
		}
		if e.LocationDescription != "" {
			fmt.Fprintf(&b, "    %s %s\n", dim.Sprint("at"), e.LocationDescription)
		}
	}
	if len(r.Errors) == 0 {
		b.WriteString(green.Sprint(r.Summary()))
	} else {
		b.WriteString(r.Summary())
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}
