package render

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/bidicheck/checker"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
)

func init() { color.NoColor = true }

const page = `<html dir="rtl"><head><title>t</title></head><body><p id="x">שלום (hello) שלום<script>alert(1)</script></p></body></html>`

func checked(t *testing.T, src string) *Report {
	t.Helper()
	doc := dom.MustParse(src)
	res, err := checker.Check(context.Background(), doc, checker.Options{Revision: checker.Revision2})
	require.NoError(t, err)
	return FromResult("test.html", dom.Unknown, res)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":         FormatText,
		"TEXT":     FormatText,
		"json":     FormatJSON,
		"html":     FormatHTML,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	s := report.NewSession()
	r := &Report{Errors: []*report.Error{
		s.NewError(report.TypeUndeclaredLTR, report.SeverityHigh, nil),
		s.NewError(report.TypeUndeclaredLTR, report.SeverityHigh, nil),
		s.NewError(report.TypeOverallNotRTL, report.SeverityCritical, nil),
	}}
	assert.Equal(t, "3 errors (1 critical, 2 high)", r.Summary())

	r.Errors = r.Errors[:1]
	r.Stopped = true
	assert.Equal(t, "1 error (1 high), stopped on first", r.Summary())

	assert.Equal(t, "no errors", (&Report{}).Summary())
}

func TestText(t *testing.T) {
	r := checked(t, page)
	require.NotEmpty(t, r.Errors)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, r))
	out := buf.String()
	assert.Contains(t, out, "test.html\n")
	assert.Contains(t, out, `[HIGH] #1 Undeclared LTR text "hello"`)
	assert.Contains(t, out, `preceded by " (", followed by ") "`)
	assert.Contains(t, out, "at <p id='x'>")
	assert.True(t, strings.HasSuffix(out, r.Summary()+"\n"))
}

func TestText_NoErrors(t *testing.T) {
	r := checked(t, `<p>hello</p>`)
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, r))
	assert.Equal(t, "test.html\nno errors\n", buf.String())
}

func TestJSONLines(t *testing.T) {
	r := checked(t, page)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, r))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(r.Errors))

	var rec report.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, 1, rec.ID)
	assert.Equal(t, report.TypeUndeclaredLTR, rec.Type)
}

func TestHTML_AnnotatesAndRestores(t *testing.T) {
	r := checked(t, page)
	before, err := r.Doc.Render()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatHTML, r))
	out := buf.String()

	assert.Contains(t, out, "<title>bidicheck: test.html</title>")
	assert.Contains(t, out, `class="sev-high"`)
	assert.Contains(t, out, `<section class="page" dir="rtl">`)
	assert.Contains(t, out, `class="bidicheck-highlight"`)
	assert.Contains(t, out, `data-bidicheck-errors="1"`)
	assert.NotContains(t, out, "alert(1)")

	after, err := r.Doc.Render()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestHTML_WithoutDocument(t *testing.T) {
	r := checked(t, page)
	r.Doc = nil

	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, r))
	assert.NotContains(t, buf.String(), "Annotated page")
}

func TestMarkdown(t *testing.T) {
	r := checked(t, page)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, r))
	out := buf.String()
	assert.Contains(t, out, "# bidicheck: test.html")
	assert.Regexp(t, `\|\s*high\s*\|`, out)
	assert.Contains(t, out, "Undeclared LTR text")
	assert.NotContains(t, out, "<table>")
}
