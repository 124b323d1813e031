package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// XPath returns an absolute XPath for n. A sibling index is added only when
// the parent holds more than one child with the same name.
func XPath(n *html.Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	for ; n != nil; n = n.Parent {
		var name string
		switch n.Type {
		case html.DocumentNode:
			return "/" + strings.Join(reverse(parts), "/")
		case html.ElementNode:
			name = n.Data
		case html.TextNode:
			name = "text()"
		case html.CommentNode:
			name = "comment()"
		default:
			continue
		}
		if n.Parent == nil {
			parts = append(parts, name)
			continue
		}
		idx, total := 0, 0
		for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
			if sameStep(c, n) {
				total++
				if c == n {
					idx = total
				}
			}
		}
		if total > 1 {
			name = fmt.Sprintf("%s[%d]", name, idx)
		}
		parts = append(parts, name)
	}
	return "/" + strings.Join(reverse(parts), "/")
}

func sameStep(a, b *html.Node) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == html.ElementNode {
		return a.Data == b.Data
	}
	return true
}

func reverse(s []string) []string {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}
