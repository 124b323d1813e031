package dom

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Stylesheet holds the rules of a document's <style> elements that affect
// directionality or visibility. Only simple selectors are understood:
//   - tag: "div", "*"
//   - .class: ".rtl", "p.a.b"
//   - #id: "#main"
//   - [attr], [attr=val]: "[lang=he]", "span[dir]"
//   - combinations separated by space (descendant combinator); ">" is
//     treated as a descendant combinator
//
// Selectors with pseudo-classes or sibling combinators are ignored, as are
// at-rules.
type Stylesheet struct {
	rules []cssRule
}

type cssRule struct {
	sel   []simpleSelector // outermost first
	spec  int
	order int
	decls map[string]string
}

type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrKey string
	attrVal string
	hasVal  bool
}

var (
	cssComment   = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cssImportant = regexp.MustCompile(`(?i)\s*!\s*important\s*$`)
)

// styleProps are the properties the checker reads.
var styleProps = map[string]bool{
	"display":    true,
	"visibility": true,
	"direction":  true,
}

// ParseStylesheet parses CSS text.
func ParseStylesheet(css string) *Stylesheet {
	s := &Stylesheet{}
	s.add(css)
	return s
}

// collectStylesheet parses every <style> element under root, in document order.
func collectStylesheet(root *html.Node) *Stylesheet {
	s := &Stylesheet{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Style {
			s.add(TextContent(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return s
}

func (s *Stylesheet) add(css string) {
	css = cssComment.ReplaceAllString(css, "")
	for len(css) > 0 {
		open := strings.IndexByte(css, '{')
		if open < 0 {
			return
		}
		prelude := css[:open]
		// Statements such as @import end with ';' before the next block.
		if i := strings.LastIndexByte(prelude, ';'); i >= 0 {
			prelude = prelude[i+1:]
		}
		prelude = strings.TrimSpace(prelude)
		end := matchingBrace(css, open)
		if end < 0 {
			return
		}
		body := css[open+1 : end]
		css = css[end+1:]

		if strings.HasPrefix(prelude, "@") {
			continue
		}
		decls := parseDeclarations(body)
		for k := range decls {
			if !styleProps[k] {
				delete(decls, k)
			}
		}
		if len(decls) == 0 {
			continue
		}
		for _, part := range strings.Split(prelude, ",") {
			sel, ok := parseSelector(part)
			if !ok {
				continue
			}
			s.rules = append(s.rules, cssRule{
				sel:   sel,
				spec:  specificity(sel),
				order: len(s.rules),
				decls: decls,
			})
		}
	}
}

func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseDeclarations parses "prop: value; ..." into lower-cased properties
// and values. !important is dropped.
func parseDeclarations(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = cssImportant.ReplaceAllString(strings.TrimSpace(v), "")
		v = strings.ToLower(strings.TrimSpace(v))
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func parseSelector(sel string) ([]simpleSelector, bool) {
	sel = strings.ReplaceAll(sel, ">", " ")
	if strings.ContainsAny(sel, ":+~") {
		return nil, false
	}
	parts := strings.Fields(sel)
	if len(parts) == 0 {
		return nil, false
	}
	out := make([]simpleSelector, 0, len(parts))
	for _, p := range parts {
		out = append(out, parseSimpleSelector(p))
	}
	return out, true
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = strings.ToLower(attrPart[:eqIdx])
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
			s.hasVal = true
		} else {
			s.attrKey = strings.ToLower(attrPart)
		}
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		for _, c := range strings.Split(sel[idx+1:], ".") {
			if c != "" {
				s.classes = append(s.classes, c)
			}
		}
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if sel != "*" {
		s.tag = strings.ToLower(sel)
	}
	return s
}

func specificity(sel []simpleSelector) int {
	n := 0
	for _, s := range sel {
		if s.id != "" {
			n += 100
		}
		n += 10 * len(s.classes)
		if s.attrKey != "" {
			n += 10
		}
		if s.tag != "" {
			n++
		}
	}
	return n
}

// matchesSelector checks if a node matches a parsed simple selector.
func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && Attr(n, "id") != s.id {
		return false
	}
	for _, c := range s.classes {
		if !HasClass(n, c) {
			return false
		}
	}
	if s.attrKey != "" {
		val, ok := LookupAttr(n, s.attrKey)
		if !ok || (s.hasVal && val != s.attrVal) {
			return false
		}
	}
	return true
}

// matches checks the last compound against n, then the earlier ones against
// its ancestors, right to left.
func (r *cssRule) matches(n *html.Node) bool {
	last := len(r.sel) - 1
	if !matchesSelector(n, r.sel[last]) {
		return false
	}
	i := last - 1
	for p := ParentElement(n); p != nil && i >= 0; p = ParentElement(p) {
		if matchesSelector(p, r.sel[i]) {
			i--
		}
	}
	return i < 0
}

// Declarations returns the cascaded values of the checked properties for n.
func (s *Stylesheet) Declarations(n *html.Node) map[string]string {
	if s == nil || len(s.rules) == 0 {
		return nil
	}
	type winner struct{ spec, order int }
	var out map[string]string
	best := make(map[string]winner)
	for i := range s.rules {
		r := &s.rules[i]
		if !r.matches(n) {
			continue
		}
		for k, v := range r.decls {
			w, seen := best[k]
			if seen && (r.spec < w.spec || (r.spec == w.spec && r.order < w.order)) {
				continue
			}
			if out == nil {
				out = make(map[string]string)
			}
			best[k] = winner{r.spec, r.order}
			out[k] = v
		}
	}
	return out
}

// QuerySelectorAll returns all elements under root matching a simple
// selector list (comma-separated).
func QuerySelectorAll(root *html.Node, selector string) []*html.Node {
	var rules []cssRule
	for _, part := range strings.Split(selector, ",") {
		if sel, ok := parseSelector(part); ok {
			rules = append(rules, cssRule{sel: sel})
		}
	}
	if len(rules) == 0 {
		return nil
	}
	return FindAll(root, func(n *html.Node) bool {
		for i := range rules {
			if rules[i].matches(n) {
				return true
			}
		}
		return false
	})
}
