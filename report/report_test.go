package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/dom"
)

func TestSession_IDsAndAreas(t *testing.T) {
	d := dom.MustParse(`<body><p id="p">x</p></body>`)
	p := dom.FindAll(d.Root, func(n *html.Node) bool { return dom.Attr(n, "id") == "p" })[0]

	s := NewSession()
	e1 := s.NewError(TypeUndeclaredLTR, SeverityMedium, dom.NewElementArea(p))
	e2 := s.NewError(TypeUndeclaredRTL, SeverityLow, nil)
	assert.Equal(t, 1, e1.ID)
	assert.Equal(t, 2, e2.ID)

	s.Register(e1)
	s.Register(e2)
	assert.Equal(t, 1, s.Len())
	a, ok := s.Area(1)
	require.True(t, ok)
	assert.Same(t, p, a.Anchor())
	_, ok = s.Area(2)
	assert.False(t, ok)

	other := NewSession()
	assert.Equal(t, 1, other.NewError("x", SeverityLow, nil).ID, "sessions do not share ids")
}

func TestRecord_RoundTrip(t *testing.T) {
	s := NewSession()
	e := s.NewError(TypeSpilloverLTR, SeverityHigh, nil)
	e.AtText = " "
	e.SetPrecededByText("foo")
	e.SetFollowedByText("42")
	e.SetLocationDescription("<p> in <body>")

	data, err := MarshalRecords([]*Error{e})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"precededByText":"foo"`)
	assert.Contains(t, string(data), `"asString"`)

	recs, err := UnmarshalRecords(data)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	got := recs[0].Error()
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Type, got.Type)
	assert.Equal(t, e.Severity, got.Severity)
	assert.Equal(t, e.AtText, got.AtText)
	assert.Equal(t, e.PrecededByText, got.PrecededByText)
	assert.Equal(t, e.FollowedByText, got.FollowedByText)
	assert.Equal(t, e.LocationDescription, got.LocationDescription)
	assert.Equal(t, e.String(), recs[0].AsString)
	assert.Equal(t, e.String(), got.String())
}

func TestRecord_OmitsEmptyOptionals(t *testing.T) {
	e := NewSession().NewError(TypeOverallNotRTL, SeverityCritical, nil)
	data, err := json.Marshal(e)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.ElementsMatch(t, []string{"id", "type", "severity", "asString"}, keys(m))
}

func keys(m map[string]any) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestHydrate_RebindsAreaWithinSession(t *testing.T) {
	d := dom.MustParse(`<body><p>x</p></body>`)
	s := NewSession()
	e := s.NewError(TypeUndeclaredLTR, SeverityMedium, dom.NewElementArea(d.Body()))
	s.Register(e)
	rec := e.Record()

	h := s.Hydrate(rec)
	require.NotNil(t, h.Area())
	assert.Same(t, d.Body(), h.Area().Anchor())

	assert.Nil(t, NewSession().Hydrate(rec).Area(), "areas do not cross sessions")
}

func TestString(t *testing.T) {
	e := &Error{
		Type:                TypeUndeclaredRTL,
		Severity:            SeverityHigh,
		AtText:              "\u202Babc",
		FollowedByText:      ": ",
		LocationDescription: "<p> in <body>",
	}
	assert.Equal(t, `Undeclared RTL text (severity 2) at "\\u202Babc" followed by ": " in <p> in <body>`, e.String())
}

func TestTypes(t *testing.T) {
	assert.Equal(t, "Overall directionality not RTL", OverallType(dom.RTL))
	assert.Equal(t, "Overall directionality not LTR", OverallType(dom.LTR))
	assert.Equal(t, "Declared RTL spillover to number", SpilloverType(dom.RTL))
	assert.Equal(t, "Undeclared LTR text", UndeclaredTextType(dom.LTR))
	assert.Equal(t, "Undeclared RTL title", UndeclaredFieldType(dom.RTL, "title"))
	assert.Equal(t, "high", SeverityHigh.String())
	assert.False(t, Severity(5).Valid())
}

func TestHighlightAll(t *testing.T) {
	d := dom.MustParse(`<body><p>x</p></body>`)
	before, err := d.Render()
	require.NoError(t, err)

	s := NewSession()
	s.Register(s.NewError("a", SeverityLow, dom.NewElementArea(d.Body())))
	undo := s.HighlightAll()
	mid, err := d.Render()
	require.NoError(t, err)
	assert.Contains(t, mid, dom.HighlightClass)
	undo()
	after, err := d.Render()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
