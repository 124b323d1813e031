package render

import (
	"bytes"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/classify"
	"github.com/hazyhaar/bidicheck/dom"
)

// pagePolicy sanitizes the checked page before it is embedded in a report.
// Direction markup and the highlight class survive; scripts, handlers and
// checker annotations do not.
var pagePolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", dom.AttrErrors).Globally()
	p.AllowStyles("direction", "unicode-bidi", "display", "visibility").Globally()
	return p
}()

// errorView is the template-friendly projection of a report.Error.
type errorView struct {
	ID       int
	Severity string
	Type     string
	AtText   string
	Preceded string
	Followed string
	Location string
}

type reportView struct {
	Source   string
	Expected string
	Summary  string
	Errors   []errorView
	Dir      string
	Page     template.HTML
}

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en"><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>bidicheck: {{.Source}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:1000px;margin:2rem auto;padding:0 1rem;color:#222;background:#fafafa}
h1{font-size:1.4rem;border-bottom:2px solid #e0e0e0;padding-bottom:.5rem}
table{border-collapse:collapse;width:100%;background:#fff}
th,td{border:1px solid #e0e0e0;padding:.3rem .5rem;text-align:start;vertical-align:top}
.sev-critical{color:#b00020;font-weight:bold}.sev-high{color:#b00020}.sev-medium{color:#a66b00}.sev-low{color:#00708a}
.page{background:#fff;border:1px solid #e0e0e0;border-radius:6px;padding:1rem;margin-top:1.5rem}
.bidicheck-highlight{background:#ffe08a;outline:1px solid #d9a400}
[data-bidicheck-errors]{outline:2px dashed #b00020}
</style></head><body>
{{template "summary" .}}
{{- if .Page}}
<h2>Annotated page</h2>
<section class="page" dir="{{.Dir}}">{{.Page}}</section>
{{- end}}
</body></html>
{{define "summary"}}<h1>bidicheck: {{.Source}}</h1>
<p>{{.Summary}}{{if .Expected}}. Expected direction: {{.Expected}}{{end}}</p>
{{- if .Errors}}
<table>
<thead><tr><th>#</th><th>Severity</th><th>Type</th><th>Text</th><th>Preceded by</th><th>Followed by</th><th>Location</th></tr></thead>
<tbody>
{{- range .Errors}}
<tr><td>{{.ID}}</td><td class="sev-{{.Severity}}">{{.Severity}}</td><td>{{.Type}}</td><td>{{.AtText}}</td><td>{{.Preceded}}</td><td>{{.Followed}}</td><td>{{.Location}}</td></tr>
{{- end}}
</tbody>
</table>
{{- end}}
{{end}}`))

func newReportView(r *Report) reportView {
	esc := classify.Default().Escape
	v := reportView{Source: r.Source, Summary: r.Summary()}
	if r.Expected != dom.Unknown {
		v.Expected = r.Expected.Upper()
	}
	for _, e := range r.Errors {
		v.Errors = append(v.Errors, errorView{
			ID:       e.ID,
			Severity: e.Severity.String(),
			Type:     e.Type,
			AtText:   esc(e.AtText),
			Preceded: esc(e.PrecededByText),
			Followed: esc(e.FollowedByText),
			Location: e.LocationDescription,
		})
	}
	return v
}

// HTML writes a standalone report. When the report carries the document
// and its session, the page body is embedded with every error highlighted;
// the document is restored afterwards.
func HTML(w io.Writer, r *Report) error {
	v := newReportView(r)
	if r.Doc != nil && r.Session != nil {
		page, dir, err := annotatedPage(r)
		if err != nil {
			return err
		}
		v.Page = template.HTML(page)
		v.Dir = dir
	}
	return reportTmpl.Execute(w, v)
}

func annotatedPage(r *Report) (page, dir string, err error) {
	undo := r.Session.HighlightAll()
	defer undo()

	ids := make(map[*html.Node][]string)
	for _, e := range r.Errors {
		if a := e.Area(); a != nil {
			if n := a.Anchor(); n != nil {
				ids[n] = append(ids[n], strconv.Itoa(e.ID))
			}
		}
	}
	for n, list := range ids {
		dom.SetAttr(n, dom.AttrErrors, strings.Join(list, " "))
	}
	defer func() {
		for n := range ids {
			dom.RemoveAttr(n, dom.AttrErrors)
		}
	}()

	root := r.Doc.Body()
	if root == nil {
		root = r.Doc.DocumentElement()
	}
	if root == nil {
		return "", "", nil
	}
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", "", err
		}
	}
	return pagePolicy.Sanitize(buf.String()), r.Doc.Direction(root).String(), nil
}
