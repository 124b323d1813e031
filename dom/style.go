package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Style holds the computed properties the checker reads.
type Style struct {
	Display    string
	Visibility string
	Direction  Direction
}

// skipped are elements whose content is never rendered as text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Template: true,
	atom.Title:    true,
}

var defaultDisplay = map[atom.Atom]string{
	atom.Html:       "block",
	atom.Body:       "block",
	atom.Address:    "block",
	atom.Article:    "block",
	atom.Aside:      "block",
	atom.Blockquote: "block",
	atom.Center:     "block",
	atom.Details:    "block",
	atom.Dialog:     "block",
	atom.Dd:         "block",
	atom.Dir:        "block",
	atom.Div:        "block",
	atom.Dl:         "block",
	atom.Dt:         "block",
	atom.Fieldset:   "block",
	atom.Figcaption: "block",
	atom.Figure:     "block",
	atom.Footer:     "block",
	atom.Form:       "block",
	atom.H1:         "block",
	atom.H2:         "block",
	atom.H3:         "block",
	atom.H4:         "block",
	atom.H5:         "block",
	atom.H6:         "block",
	atom.Header:     "block",
	atom.Hgroup:     "block",
	atom.Hr:         "block",
	atom.Legend:     "block",
	atom.Main:       "block",
	atom.Menu:       "block",
	atom.Nav:        "block",
	atom.Ol:         "block",
	atom.P:          "block",
	atom.Pre:        "block",
	atom.Section:    "block",
	atom.Summary:    "block",
	atom.Ul:         "block",
	atom.Frameset:   "block",
	atom.Optgroup:   "block",
	atom.Option:     "block",
	atom.Li:         "list-item",
	atom.Table:      "table",
	atom.Caption:    "table-caption",
	atom.Thead:      "table-header-group",
	atom.Tbody:      "table-row-group",
	atom.Tfoot:      "table-footer-group",
	atom.Tr:         "table-row",
	atom.Td:         "table-cell",
	atom.Th:         "table-cell",
	atom.Col:        "table-column",
	atom.Colgroup:   "table-column-group",
	atom.Button:     "inline-block",
	atom.Input:      "inline-block",
	atom.Select:     "inline-block",
	atom.Textarea:   "inline-block",
	atom.Meter:      "inline-block",
	atom.Progress:   "inline-block",
	atom.Iframe:     "inline",
	atom.Area:       "none",
	atom.Base:       "none",
	atom.Datalist:   "none",
	atom.Link:       "none",
	atom.Meta:       "none",
	atom.Param:      "none",
	atom.Rp:         "none",
}

func elementDefaultDisplay(n *html.Node) string {
	if d, ok := defaultDisplay[n.DataAtom]; ok {
		return d
	}
	if skipped[n.DataAtom] {
		return "none"
	}
	return "inline"
}

var initialStyle = Style{Display: "block", Visibility: "visible", Direction: LTR}

// Style returns the computed style of an element. Precedence, highest
// first: live-browser annotations, the inline style attribute, <style>
// rules, the dir attribute, inheritance (direction and visibility only).
func (d *Document) Style(n *html.Node) Style {
	if n == nil || n.Type != html.ElementNode {
		return initialStyle
	}
	if s, ok := d.styles[n]; ok {
		return s
	}
	parent := initialStyle
	if p := ParentElement(n); p != nil {
		parent = d.Style(p)
	}
	s := Style{
		Display:    elementDefaultDisplay(n),
		Visibility: parent.Visibility,
		Direction:  parent.Direction,
	}
	if dir, ok := d.attrDirection(n); ok {
		s.Direction = dir
	}
	if HasAttr(n, "hidden") {
		s.Display = "none"
	}
	s.apply(d.sheet.Declarations(n), parent)
	s.apply(parseDeclarations(Attr(n, "style")), parent)
	s.apply(map[string]string{
		"display":    Attr(n, AttrDisplay),
		"visibility": Attr(n, AttrVisibility),
		"direction":  Attr(n, AttrDir),
	}, parent)
	d.styles[n] = s
	return s
}

func (s *Style) apply(decls map[string]string, parent Style) {
	if v := decls["display"]; v != "" {
		s.Display = v
	}
	switch v := decls["visibility"]; v {
	case "visible", "hidden", "collapse":
		s.Visibility = v
	case "inherit":
		s.Visibility = parent.Visibility
	}
	switch decls["direction"] {
	case "ltr":
		s.Direction = LTR
	case "rtl":
		s.Direction = RTL
	case "inherit":
		s.Direction = parent.Direction
	}
}

// Direction returns the computed direction of n (or of its parent element
// when n is a text node).
func (d *Document) Direction(n *html.Node) Direction {
	return d.Style(ElementOf(n)).Direction
}

// IsRTL reports whether the computed direction of n is right-to-left.
func (d *Document) IsRTL(n *html.Node) bool { return d.Direction(n) == RTL }

// Hidden reports whether n and its subtree are not displayed: display:none,
// visibility hidden or collapse, the hidden attribute, or an element whose
// content is never rendered (script, style, noscript, head, template).
func (d *Document) Hidden(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if skipped[n.DataAtom] {
		return true
	}
	s := d.Style(n)
	return s.Display == "none" || s.Visibility == "hidden" || s.Visibility == "collapse"
}

// IsBlock reports whether n starts its own block formatting context for
// bidi purposes: any display other than inline, contents or none.
func (d *Document) IsBlock(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch d.Style(n).Display {
	case "inline", "contents", "none":
		return false
	}
	return true
}

// ExplicitDirection returns the direction n declares itself: a dir
// attribute (ltr, rtl, or auto resolved from content), an inline style
// direction, or a <bdi> element (auto).
func (d *Document) ExplicitDirection(n *html.Node) (Direction, bool) {
	if n == nil || n.Type != html.ElementNode {
		return Unknown, false
	}
	decl := parseDeclarations(Attr(n, "style"))
	switch decl["direction"] {
	case "ltr":
		return LTR, true
	case "rtl":
		return RTL, true
	}
	if dir, ok := d.attrDirection(n); ok {
		return dir, true
	}
	return Unknown, false
}

// HasExplicitDirection reports whether n declares a direction.
func (d *Document) HasExplicitDirection(n *html.Node) bool {
	_, ok := d.ExplicitDirection(n)
	return ok
}

func (d *Document) attrDirection(n *html.Node) (Direction, bool) {
	v, ok := LookupAttr(n, "dir")
	if !ok {
		if n.DataAtom == atom.Bdi {
			return d.autoDirection(n), true
		}
		return Unknown, false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ltr":
		return LTR, true
	case "rtl":
		return RTL, true
	case "auto":
		return d.autoDirection(n), true
	}
	return Unknown, false
}

// autoDirection resolves dir="auto" from the first strong character of the
// element's text, ignoring descendants that set their own dir, bdi
// elements and non-rendered content. Without a strong character the
// direction is LTR. For input and textarea the value is used.
func (d *Document) autoDirection(n *html.Node) Direction {
	var text string
	switch n.DataAtom {
	case atom.Input:
		text = Attr(n, "value")
	case atom.Textarea:
		text = TextContent(n)
	default:
		var b strings.Builder
		var walk func(*html.Node)
		walk = func(c *html.Node) {
			for ; c != nil; c = c.NextSibling {
				switch {
				case c.Type == html.TextNode:
					b.WriteString(c.Data)
				case c.Type != html.ElementNode:
				case skipped[c.DataAtom], c.DataAtom == atom.Bdi, HasAttr(c, "dir"):
				default:
					walk(c.FirstChild)
				}
			}
		}
		walk(n.FirstChild)
		text = b.String()
	}
	if rtl, ok := d.classifier.FirstStrong(text); ok && rtl {
		return RTL
	}
	return LTR
}
