package checker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/classify"
	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/filter"
	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/sink"
)

func check(t *testing.T, doc *dom.Document, opts Options) *Result {
	t.Helper()
	if opts.Revision == 0 {
		opts.Revision = Revision2
	}
	res, err := Check(context.Background(), doc, opts)
	require.NoError(t, err)
	return res
}

func TestCheck_RevisionRequired(t *testing.T) {
	doc := dom.MustParse(`<p>x</p>`)

	_, err := Check(context.Background(), doc, Options{})
	assert.ErrorIs(t, err, ErrRevisionRequired)

	_, err = Check(context.Background(), doc, Options{Revision: 7})
	assert.ErrorIs(t, err, ErrRevisionRequired)
}

func TestCheck_OverallNotRTL(t *testing.T) {
	doc := dom.MustParse(`<html><body><p>hello</p></body></html>`)
	res := check(t, doc, Options{Expected: dom.RTL})

	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, report.TypeOverallNotRTL, e.Type)
	assert.Equal(t, report.SeverityCritical, e.Severity)
	assert.Equal(t, "<html>", e.LocationDescription)

	a, ok := res.Session.Area(e.ID)
	require.True(t, ok)
	assert.Same(t, doc.DocumentElement(), a.Anchor())
}

func TestCheck_LocationDescription(t *testing.T) {
	doc := dom.MustParse(`<html dir="rtl"><body><div id="main"><p class="note">Hello עולם</p></div></body></html>`)
	res := check(t, doc, Options{})

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "<p class='note'> in <div id='main'>", res.Errors[0].LocationDescription)
}

func TestCheck_FiltersUseAncestorChain(t *testing.T) {
	src := `<html dir="rtl"><body>
		<div class="ads"><p>Hello עולם</p></div>
		<p id="kept">World עולם</p>
	</body></html>`

	res := check(t, dom.MustParse(src), Options{Filters: []filter.Filter{filter.LocationClass("ads")}})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "World", res.Errors[0].AtText)
	assert.Equal(t, 1, res.Session.Len(), "suppressed errors are not registered")
}

func TestCheck_SeverityFilter(t *testing.T) {
	src := `<html dir="rtl"><body><p>עברית (Hello) עברית Bye עברית</p></body></html>`

	res := check(t, dom.MustParse(src), Options{})
	require.Len(t, res.Errors, 2)

	res = check(t, dom.MustParse(src), Options{Filters: []filter.Filter{filter.SeverityFrom(report.SeverityMedium)}})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Hello", res.Errors[0].AtText)
	assert.Equal(t, report.SeverityHigh, res.Errors[0].Severity)
}

func TestCheck_StopOnFirst(t *testing.T) {
	src := `<html dir="rtl"><body><p>עברית one עברית</p><p>עברית two עברית</p></body></html>`

	res := check(t, dom.MustParse(src), Options{StopOnFirst: true})
	assert.True(t, res.Stopped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "one", res.Errors[0].AtText)

	res = check(t, dom.MustParse(src), Options{})
	assert.False(t, res.Stopped)
	assert.Len(t, res.Errors, 2)
}

func TestScanner_ReturnsStopError(t *testing.T) {
	doc := dom.MustParse(`<html dir="rtl"><body><p>עברית one two עברית</p></body></html>`)
	session := report.NewSession()
	col := NewCollector(session, nil, true)
	s := NewScanner(session, col, classify.Default(), Revision2, dom.Unknown, nil)

	err := s.Scan(context.Background(), doc)
	var stop *StopError
	require.ErrorAs(t, err, &stop)
	require.NotNil(t, stop.Err)
	assert.Equal(t, 1, stop.Err.ID)
}

func TestCheck_TableOverride(t *testing.T) {
	src := `<html dir="rtl"><body><p>שלום Hello 1 שלום</p></body></html>`

	res := check(t, dom.MustParse(src), Options{})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, report.SeverityHigh, res.Errors[0].Severity, "digits are visible in v2")

	res = check(t, dom.MustParse(src), Options{Table: classify.TableV1})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, report.SeverityMedium, res.Errors[0].Severity)
}

func TestCheck_TableOverrideResolvesAuto(t *testing.T) {
	zRTL := classify.Table{
		Version:        "z-rtl",
		LTR:            `a-y`,
		RTL:            `z`,
		Neutral:        `\x{0000}-\x{0040}`,
		VisibleNeutral: `!`,
	}
	doc := dom.MustParse(`<html><body><p id="p" dir="auto">zzz</p></body></html>`)

	res := check(t, doc, Options{Table: zRTL})
	assert.Empty(t, res.Errors, "dir=auto and detection agree on the table")
	assert.Equal(t, zRTL, doc.Classifier().Table())
}

func framedDoc(t *testing.T) (*dom.Document, *dom.Document) {
	t.Helper()
	inner := dom.MustParse(`<html dir="rtl"><body><p>Hello עולם</p></body></html>`)
	outer := dom.MustParse(
		`<html><body><div class="ads"><iframe id="f" src="inner.html"></iframe></div><iframe src="missing.html"></iframe></body></html>`,
		dom.WithFrameResolver(func(frame *html.Node) (*dom.Document, error) {
			if dom.Attr(frame, "src") == "inner.html" {
				return inner, nil
			}
			return nil, errors.New("not found")
		}))
	return outer, inner
}

func TestCheck_Frames(t *testing.T) {
	outer, _ := framedDoc(t)
	res := check(t, outer, Options{})

	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, "Hello", e.AtText)
	assert.Equal(t, "<p> in <body> in <iframe id='f' src='inner.html'>", e.LocationDescription)
}

func TestCheck_FrameFilterSeesOuterChain(t *testing.T) {
	outer, _ := framedDoc(t)
	res := check(t, outer, Options{Filters: []filter.Filter{filter.LocationClass("ads")}})
	assert.Empty(t, res.Errors)
}

func TestCheck_SrcdocFrame(t *testing.T) {
	doc := dom.MustParse(`<html><body><iframe srcdoc="<p dir=rtl>Hi שלום</p>"></iframe></body></html>`)
	res := check(t, doc, Options{})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Hi", res.Errors[0].AtText)
}

func TestCheck_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Check(ctx, dom.MustParse(`<p>x</p>`), Options{Revision: Revision1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollector_FrameStack(t *testing.T) {
	doc := dom.MustParse(`<body><iframe id="a"></iframe></body>`)
	frame := dom.FindAll(doc.Root, dom.IsFrame)[0]

	c := NewCollector(report.NewSession(), nil, false)
	c.PushFrame(frame)
	assert.Equal(t, 1, c.FrameDepth())
	c.PopFrame()
	c.PopFrame()
	assert.Equal(t, 0, c.FrameDepth())
}

func TestService_Do(t *testing.T) {
	svc := &Service{}
	filters, _ := json.Marshal([]map[string]any{{"opcode": "AT_TEXT", "atText": "Bye"}})

	resp, res, err := svc.Do(context.Background(), &Request{
		HTML:    `<html dir="rtl"><body><p>עברית Hello עברית Bye</p></body></html>`,
		Filters: filters,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Hello", resp.Errors[0].AtText)
	assert.Len(t, res.Errors, 1)

	_, _, err = svc.Do(context.Background(), &Request{})
	assert.Error(t, err)
	_, _, err = svc.Do(context.Background(), &Request{URL: "http://x"})
	assert.Error(t, err, "no loader")
	_, _, err = svc.Do(context.Background(), &Request{HTML: "<p>x</p>", Dir: "up"})
	assert.Error(t, err)
}

func TestService_Loader(t *testing.T) {
	var got string
	svc := &Service{Loader: func(_ context.Context, src string) (*dom.Document, error) {
		got = src
		return dom.ParseString(`<p>ok</p>`, dom.WithURL(src))
	}}
	resp, _, err := svc.Do(context.Background(), &Request{URL: "https://example.test/", Dir: "ltr"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/", got)
	assert.Equal(t, "https://example.test/", resp.URL)
	assert.Zero(t, resp.Count)
	assert.NotNil(t, resp.Errors)
}

func TestService_MCP(t *testing.T) {
	impl := &mcp.Implementation{Name: "bidicheck-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)
	(&Service{}).RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()
	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "bidicheck_scan",
		Arguments: map[string]any{
			"html": `<html><body><p>hello</p></body></html>`,
			"dir":  "rtl",
		},
	})
	require.NoError(t, err)
	require.NoError(t, result.GetError())
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, report.TypeOverallNotRTL, resp.Errors[0].Type)

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "bidicheck_scan",
		Arguments: map[string]any{"html": "<p>x</p>", "revision": 9},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestService_DeliversToSink(t *testing.T) {
	var got *sink.Scan
	svc := &Service{Sink: sink.NewCallback(func(_ context.Context, s *sink.Scan) error {
		s.ID = "scan-1"
		got = s
		return nil
	})}

	resp, _, err := svc.Do(context.Background(), &Request{HTML: `<html><body><p>hello</p></body></html>`, Dir: "rtl"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "scan-1", resp.ID)
	assert.Equal(t, "inline", got.Source)
	assert.Equal(t, "rtl", got.Expected)
	assert.Equal(t, 2, got.Revision)
	assert.Len(t, got.Errors, 1)
}

func TestService_SinkFailureIsNotFatal(t *testing.T) {
	svc := &Service{Sink: sink.NewCallback(func(context.Context, *sink.Scan) error {
		return errors.New("down")
	})}
	resp, _, err := svc.Do(context.Background(), &Request{HTML: `<p>x</p>`})
	require.NoError(t, err)
	assert.Empty(t, resp.ID)
}
