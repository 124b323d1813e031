package capture

import "strings"

// IsSufficient reports whether a fetched body carries enough visible text
// to be checked without running its scripts. Small bodies, bodies that are
// mostly markup, and the usual empty SPA mount points are not sufficient.
func IsSufficient(body []byte) bool {
	if len(body) < 256 {
		return false
	}

	text, markup := textMarkupRatio(body)
	total := text + markup
	if total == 0 {
		return false
	}
	if float64(text)/float64(total) < 0.10 || text < 200 {
		return false
	}

	lower := asciiLower(string(body))
	for _, ind := range spaIndicators {
		if strings.Contains(lower, ind) {
			return false
		}
	}
	return true
}

var spaIndicators = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
	"<noscript>you need to enable javascript",
	"<noscript>enable javascript",
}

// textMarkupRatio counts non-whitespace text bytes against markup bytes.
// Script and style bodies count as markup.
func textMarkupRatio(body []byte) (text, markup int) {
	s := string(body)
	lower := asciiLower(s)
	inTag := false
scan:
	for i := 0; i < len(s); {
		ch := s[i]
		switch {
		case ch == '<':
			for _, raw := range []string{"script", "style"} {
				if !strings.HasPrefix(lower[i:], "<"+raw) {
					continue
				}
				end := strings.Index(lower[i:], "</"+raw)
				if end < 0 {
					return text, markup + len(s) - i
				}
				if gt := strings.IndexByte(lower[i+end:], '>'); gt >= 0 {
					end += gt + 1
				}
				markup += end
				i += end
				continue scan
			}
			inTag = true
			markup++
			i++
		case ch == '>':
			inTag = false
			markup++
			i++
		case inTag:
			markup++
			i++
		default:
			if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
				text++
			}
			i++
		}
	}
	return text, markup
}

// asciiLower lowers A-Z only, keeping byte offsets stable.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
