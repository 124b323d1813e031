package dom

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Describe returns a human-readable location for n: the element and its
// ancestors as <tag attr='val'> descriptors, innermost first, joined by
// " in ". The chain ends at the first element carrying an id, or at body.
func Describe(n *html.Node) string {
	var parts []string
	for e := ElementOf(n); e != nil; e = ParentElement(e) {
		parts = append(parts, DescribeElement(e))
		if HasAttr(e, "id") || e.DataAtom == atom.Body {
			break
		}
	}
	return strings.Join(parts, " in ")
}

// DescribeElement renders a single element as <tag a='1' b='2'>, attributes
// sorted by name. Checker-internal attributes and the highlight class are
// left out.
func DescribeElement(e *html.Node) string {
	type kv struct{ k, v string }
	var attrs []kv
	for _, a := range e.Attr {
		if strings.HasPrefix(a.Key, AnnotationPrefix) {
			continue
		}
		v := a.Val
		if a.Key == "class" {
			v = strings.Join(slices.DeleteFunc(Classes(e), func(c string) bool {
				return c == HighlightClass
			}), " ")
			if v == "" {
				continue
			}
		}
		attrs = append(attrs, kv{a.Key, v})
	}
	slices.SortStableFunc(attrs, func(a, b kv) int { return strings.Compare(a.k, b.k) })

	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(e.Data)
	for _, a := range attrs {
		b.WriteByte(' ')
		b.WriteString(a.k)
		b.WriteString("='")
		b.WriteString(a.v)
		b.WriteByte('\'')
	}
	b.WriteByte('>')
	return b.String()
}
