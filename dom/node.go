// CLAUDE:SUMMARY Attribute and tree helpers over golang.org/x/net/html nodes.
package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attributes written by live capture and by highlighting. They are never
// part of a location description.
const (
	AnnotationPrefix = "data-bidicheck-"
	AttrDir          = AnnotationPrefix + "dir"
	AttrDisplay      = AnnotationPrefix + "display"
	AttrVisibility   = AnnotationPrefix + "visibility"
	AttrFrame        = AnnotationPrefix + "frame"
	AttrHighlight    = AnnotationPrefix + "hl"
	AttrErrors       = AnnotationPrefix + "errors"

	// HighlightClass marks highlighted elements and wrapped text.
	HighlightClass = "bidicheck-highlight"
)

// Attr returns the value of an attribute on a node.
func Attr(n *html.Node, key string) string {
	v, _ := LookupAttr(n, key)
	return v
}

// LookupAttr returns the value of an attribute and whether it is present.
func LookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr checks if a node has a specific attribute.
func HasAttr(n *html.Node, key string) bool {
	_, ok := LookupAttr(n, key)
	return ok
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// HasClass reports whether n carries class c.
func HasClass(n *html.Node, c string) bool {
	for _, x := range Classes(n) {
		if x == c {
			return true
		}
	}
	return false
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool { return n != nil && n.Type == html.ElementNode }

// ParentElement returns the closest element ancestor of n, or nil.
func ParentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

// ElementOf returns n when it is an element, else its parent element.
func ElementOf(n *html.Node) *html.Node {
	if IsElement(n) {
		return n
	}
	return ParentElement(n)
}

// Ancestors returns n (when an element) and its element ancestors, innermost
// first.
func Ancestors(n *html.Node) []*html.Node {
	var out []*html.Node
	for e := ElementOf(n); e != nil; e = ParentElement(e) {
		out = append(out, e)
	}
	return out
}

// Contains reports whether d is n or a descendant of n.
func Contains(n, d *html.Node) bool {
	for ; d != nil; d = d.Parent {
		if d == n {
			return true
		}
	}
	return false
}

// TextContent concatenates the text of all descendant text nodes.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// FindFirst returns the first element in document order with the given atom.
func FindFirst(root *html.Node, a atom.Atom) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && root.DataAtom == a {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := FindFirst(c, a); n != nil {
			return n
		}
	}
	return nil
}

// FindAll returns all elements matching pred in document order.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// IsFrame reports whether n is a frame or iframe element.
func IsFrame(n *html.Node) bool {
	return IsElement(n) && (n.DataAtom == atom.Iframe || n.DataAtom == atom.Frame)
}
