package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Position locates a highlighted area in its document.
type Position struct {
	XPath  string `json:"xpath"`
	Offset int    `json:"offset,omitempty"`
}

func (p Position) String() string {
	if p.Offset > 0 {
		return fmt.Sprintf("%s@%d", p.XPath, p.Offset)
	}
	return p.XPath
}

// Area is a region of the page an error points at. Highlight is idempotent
// and Unhighlight restores the tree it changed.
type Area interface {
	Highlight() (Position, error)
	Unhighlight() error
	// Anchor is the element the area hangs off, used for location
	// descriptions and filter chains.
	Anchor() *html.Node
}

// ElementArea is a whole element.
type ElementArea struct {
	Node *html.Node
}

// NewElementArea returns an area covering e.
func NewElementArea(e *html.Node) *ElementArea { return &ElementArea{Node: e} }

// Highlight adds HighlightClass to the element.
func (a *ElementArea) Highlight() (Position, error) {
	if !IsElement(a.Node) {
		return Position{}, fmt.Errorf("dom: highlight: not an element")
	}
	if !HasClass(a.Node, HighlightClass) {
		SetAttr(a.Node, "class", strings.TrimSpace(Attr(a.Node, "class")+" "+HighlightClass))
		SetAttr(a.Node, AttrHighlight, "1")
	}
	return Position{XPath: XPath(a.Node)}, nil
}

// Unhighlight removes the class added by Highlight.
func (a *ElementArea) Unhighlight() error {
	if !IsElement(a.Node) || !HasAttr(a.Node, AttrHighlight) {
		return nil
	}
	var keep []string
	for _, c := range Classes(a.Node) {
		if c != HighlightClass {
			keep = append(keep, c)
		}
	}
	if len(keep) == 0 {
		RemoveAttr(a.Node, "class")
	} else {
		SetAttr(a.Node, "class", strings.Join(keep, " "))
	}
	RemoveAttr(a.Node, AttrHighlight)
	return nil
}

// Anchor returns the element itself.
func (a *ElementArea) Anchor() *html.Node { return a.Node }

// TextRange spans text from Start[StartOffset] up to End[EndOffset]
// (exclusive), both byte offsets into text node data. Start and End may be
// the same node.
//
// Highlighting splits the covered text nodes and wraps the covered parts in
// spans; only one overlapping range should be highlighted at a time.
type TextRange struct {
	Start       *html.Node
	StartOffset int
	End         *html.Node
	EndOffset   int

	pieces []textPiece
}

type textPiece struct {
	node  *html.Node
	data  string
	added []*html.Node
}

// Anchor returns the element holding the start of the range.
func (r *TextRange) Anchor() *html.Node { return ElementOf(r.Start) }

// Text returns the covered text.
func (r *TextRange) Text() string {
	if r.pieces != nil {
		var b strings.Builder
		for _, p := range r.pieces {
			b.WriteString(TextContent(p.added[0]))
		}
		return b.String()
	}
	var b strings.Builder
	for _, s := range r.segments() {
		b.WriteString(s.node.Data[s.from:s.to])
	}
	return b.String()
}

type segment struct {
	node     *html.Node
	from, to int
}

// segments lists the covered part of every text node from Start to End in
// document order.
func (r *TextRange) segments() []segment {
	var out []segment
	for n := r.Start; n != nil; n = nextInOrder(n) {
		if n.Type == html.TextNode {
			from, to := 0, len(n.Data)
			if n == r.Start {
				from = min(r.StartOffset, to)
			}
			if n == r.End {
				to = min(max(r.EndOffset, from), to)
			}
			if from < to {
				out = append(out, segment{n, from, to})
			}
		}
		if n == r.End {
			break
		}
	}
	return out
}

func nextInOrder(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

// Highlight wraps the covered text in highlight spans.
func (r *TextRange) Highlight() (Position, error) {
	if r.Start == nil || r.End == nil {
		return Position{}, fmt.Errorf("dom: highlight: empty range")
	}
	pos := Position{XPath: XPath(r.Start), Offset: r.StartOffset}
	if r.pieces != nil {
		return pos, nil
	}
	segs := r.segments()
	pieces := make([]textPiece, 0, len(segs))
	for _, s := range segs {
		if s.node.Parent == nil {
			continue
		}
		orig := s.node.Data
		span := &html.Node{
			Type:     html.ElementNode,
			Data:     "span",
			DataAtom: atom.Span,
			Attr: []html.Attribute{
				{Key: "class", Val: HighlightClass},
				{Key: AttrHighlight, Val: "1"},
			},
		}
		span.AppendChild(&html.Node{Type: html.TextNode, Data: orig[s.from:s.to]})
		s.node.Parent.InsertBefore(span, s.node.NextSibling)
		added := []*html.Node{span}
		if s.to < len(orig) {
			rest := &html.Node{Type: html.TextNode, Data: orig[s.to:]}
			s.node.Parent.InsertBefore(rest, span.NextSibling)
			added = append(added, rest)
		}
		s.node.Data = orig[:s.from]
		pieces = append(pieces, textPiece{node: s.node, data: orig, added: added})
	}
	r.pieces = pieces
	return pos, nil
}

// Unhighlight removes the spans and restores the original text nodes.
func (r *TextRange) Unhighlight() error {
	for i := len(r.pieces) - 1; i >= 0; i-- {
		p := r.pieces[i]
		for _, n := range p.added {
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
		}
		p.node.Data = p.data
	}
	r.pieces = nil
	return nil
}
