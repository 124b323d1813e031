// Package render writes check results as terminal text, JSON lines, an
// annotated HTML report or Markdown.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/hazyhaar/bidicheck/checker"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts text, json, html, markdown (or md); empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	case FormatText, FormatJSON, FormatHTML, FormatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("render: unknown format %q", s)
}

// Report is what gets rendered.
type Report struct {
	Source   string
	Expected dom.Direction
	Errors   []*report.Error
	Stopped  bool

	// Doc and Session let the HTML report embed the annotated page.
	Doc     *dom.Document
	Session *report.Session
}

// FromResult builds a Report from a check result.
func FromResult(source string, expected dom.Direction, res *checker.Result) *Report {
	return &Report{
		Source:   source,
		Expected: expected,
		Errors:   res.Errors,
		Stopped:  res.Stopped,
		Doc:      res.Doc,
		Session:  res.Session,
	}
}

// Counts returns the number of errors per severity, index 1..4.
func (r *Report) Counts() [5]int {
	var c [5]int
	for _, e := range r.Errors {
		if e.Severity.Valid() {
			c[e.Severity]++
		}
	}
	return c
}

// Summary renders "N errors (1 critical, 2 high)".
func (r *Report) Summary() string {
	n := len(r.Errors)
	if n == 0 {
		return "no errors"
	}
	counts := r.Counts()
	var parts []string
	for s := report.SeverityCritical; s <= report.SeverityLow; s++ {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	noun := "errors"
	if n == 1 {
		noun = "error"
	}
	sum := fmt.Sprintf("%d %s (%s)", n, noun, strings.Join(parts, ", "))
	if r.Stopped {
		sum += ", stopped on first"
	}
	return sum
}

// Write renders r to w in format f.
func Write(w io.Writer, f Format, r *Report) error {
	switch f {
	case FormatText, "":
		return Text(w, r)
	case FormatJSON:
		return JSONLines(w, r)
	case FormatHTML:
		return HTML(w, r)
	case FormatMarkdown:
		return Markdown(w, r)
	}
	return fmt.Errorf("render: unknown format %q", f)
}
