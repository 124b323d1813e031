// Package classify finds directional runs in text.
//
// A Classifier partitions characters into strong-LTR, strong-RTL and neutral
// classes according to a Table, and exposes regexp-based finders over those
// classes: maximal LTR and RTL runs, "fake RTL" runs built with embedding or
// override controls, numeric prefixes and visible-neutral runs. All finders
// are pure functions of their input.
package classify

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// Match is a classified substring and its byte offset in the scanned string.
type Match struct {
	Text  string
	Index int
}

// End returns the byte offset just past the match.
func (m Match) End() int { return m.Index + len(m.Text) }

const (
	// LRM is U+200E LEFT-TO-RIGHT MARK.
	LRM = '\u200E'
	// RLM is U+200F RIGHT-TO-LEFT MARK.
	RLM = '\u200F'
	// RLE is U+202B RIGHT-TO-LEFT EMBEDDING.
	RLE = '\u202B'
	// PDF is U+202C POP DIRECTIONAL FORMATTING.
	PDF = '\u202C'
	// RLO is U+202E RIGHT-TO-LEFT OVERRIDE.
	RLO = '\u202E'
)

// Classifier holds the compiled patterns for one Table.
type Classifier struct {
	table Table

	ltrRun      *regexp.Regexp
	rtlRun      *regexp.Regexp
	fakeRTL     *regexp.Regexp
	numeric     *regexp.Regexp
	leadNeutral *regexp.Regexp
	tailNeutral *regexp.Regexp
	visible     *regexp.Regexp
	hasLTR      *regexp.Regexp
	hasRTL      *regexp.Regexp
	ltrMarkOnly *regexp.Regexp
	rtlMarkOnly *regexp.Regexp
	trimNeutral *regexp.Regexp

	escapes sync.Map // rune -> string
}

// New compiles a Classifier for t.
func New(t Table) (*Classifier, error) {
	if t.LTR == "" || t.RTL == "" || t.Neutral == "" || t.VisibleNeutral == "" {
		return nil, fmt.Errorf("classify: table %q is incomplete", t.Version)
	}
	l, r, n, v := t.LTR, t.RTL, t.Neutral, t.VisibleNeutral

	type pattern struct {
		dst **regexp.Regexp
		src string
	}
	var patterns []pattern
	c := &Classifier{table: t}
	add := func(dst **regexp.Regexp, src string) {
		patterns = append(patterns, pattern{dst, src})
	}
	add(&c.ltrRun, `[`+l+`](?:[^`+r+`]*[`+l+`])?`)
	add(&c.rtlRun, `[`+r+`](?:[^`+l+`]*[`+r+`])?`)
	add(&c.fakeRTL, `[\x{202B}\x{202E}][^`+r+`\x{202A}-\x{202E}]*`)
	add(&c.numeric, `^([^`+l+r+`0-9]*)([0-9]+)`)
	add(&c.leadNeutral, `^[`+n+`]+`)
	add(&c.tailNeutral, `[`+n+`]+$`)
	add(&c.visible, `[`+v+`]`)
	add(&c.hasLTR, `[`+l+`]`)
	add(&c.hasRTL, `[`+r+`]`)
	add(&c.ltrMarkOnly, `^[\x{200E}`+n+`]*$`)
	add(&c.rtlMarkOnly, `^[\x{200F}`+n+`]*$`)
	add(&c.trimNeutral, `[`+n+`]+$`)

	for _, p := range patterns {
		re, err := regexp.Compile(p.src)
		if err != nil {
			return nil, fmt.Errorf("classify: table %q: %w", t.Version, err)
		}
		*p.dst = re
	}
	return c, nil
}

// MustNew is New for tables known to be valid.
func MustNew(t Table) *Classifier {
	c, err := New(t)
	if err != nil {
		panic(err)
	}
	return c
}

var (
	defaultOnce sync.Once
	defaultC    *Classifier
)

// Default returns the shared Classifier for DefaultTable.
func Default() *Classifier {
	defaultOnce.Do(func() { defaultC = MustNew(DefaultTable) })
	return defaultC
}

// Table returns the table the classifier was built from.
func (c *Classifier) Table() Table { return c.table }

// LTRRuns returns the maximal runs that start and end on a strong LTR
// character and contain no strong RTL character.
func (c *Classifier) LTRRuns(s string) []Match { return findAll(c.ltrRun, s) }

// RTLRuns returns the maximal runs that start and end on a strong RTL
// character and contain no strong LTR character.
func (c *Classifier) RTLRuns(s string) []Match { return findAll(c.rtlRun, s) }

// FakeRTLRuns returns LTR or neutral text forced to render right-to-left by
// an RLE or RLO control. Trailing neutrals picked up by the pattern (the
// closing PDF included) are trimmed; runs without any strong LTR character
// are dropped.
func (c *Classifier) FakeRTLRuns(s string) []Match {
	var out []Match
	for _, m := range findAll(c.fakeRTL, s) {
		if loc := c.trimNeutral.FindStringIndex(m.Text); loc != nil {
			m.Text = m.Text[:loc[0]]
		}
		if !c.hasLTR.MatchString(m.Text) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// NumericPrefix reports whether s begins, after non-strong characters only,
// with an ASCII digit run. It returns the digit run.
func (c *Classifier) NumericPrefix(s string) (Match, bool) {
	loc := c.numeric.FindStringSubmatchIndex(s)
	if loc == nil {
		return Match{}, false
	}
	return Match{Text: s[loc[4]:loc[5]], Index: loc[4]}, true
}

// NeutralsBefore returns the neutral run ending at byte offset i.
func (c *Classifier) NeutralsBefore(s string, i int) (Match, bool) {
	loc := c.tailNeutral.FindStringIndex(s[:i])
	if loc == nil {
		return Match{}, false
	}
	return Match{Text: s[loc[0]:loc[1]], Index: loc[0]}, true
}

// NeutralsAfter returns the neutral run starting at byte offset i.
func (c *Classifier) NeutralsAfter(s string, i int) (Match, bool) {
	loc := c.leadNeutral.FindStringIndex(s[i:])
	if loc == nil {
		return Match{}, false
	}
	return Match{Text: s[i : i+loc[1]], Index: i}, true
}

// LeadingVisibleNeutrals returns the leading neutral run of s when it holds
// at least one visible neutral.
func (c *Classifier) LeadingVisibleNeutrals(s string) (Match, bool) {
	m, ok := c.NeutralsAfter(s, 0)
	if !ok || !c.HasVisibleNeutral(m.Text) {
		return Match{}, false
	}
	return m, true
}

// TrailingVisibleNeutrals returns the trailing neutral run of s when it
// holds at least one visible neutral.
func (c *Classifier) TrailingVisibleNeutrals(s string) (Match, bool) {
	m, ok := c.NeutralsBefore(s, len(s))
	if !ok || !c.HasVisibleNeutral(m.Text) {
		return Match{}, false
	}
	return m, true
}

// HasVisibleNeutral reports whether s holds a visible neutral character.
func (c *Classifier) HasVisibleNeutral(s string) bool { return c.visible.MatchString(s) }

// HasLTR reports whether s holds a strong LTR character.
func (c *Classifier) HasLTR(s string) bool { return c.hasLTR.MatchString(s) }

// HasRTL reports whether s holds a strong RTL character.
func (c *Classifier) HasRTL(s string) bool { return c.hasRTL.MatchString(s) }

// HasStrong reports whether s holds any strongly directional character.
func (c *Classifier) HasStrong(s string) bool { return c.HasLTR(s) || c.HasRTL(s) }

// OnlyLTRMarksAndNeutrals reports whether s is made of LRM and neutrals only.
// Such content is a legitimate directional fix, not misdirected text.
func (c *Classifier) OnlyLTRMarksAndNeutrals(s string) bool { return c.ltrMarkOnly.MatchString(s) }

// OnlyRTLMarksAndNeutrals reports whether s is made of RLM and neutrals only.
func (c *Classifier) OnlyRTLMarksAndNeutrals(s string) bool { return c.rtlMarkOnly.MatchString(s) }

// FirstStrong returns the direction of the first strong character in s.
// Directional marks count as strong.
func (c *Classifier) FirstStrong(s string) (rtl, found bool) {
	l := c.hasLTR.FindStringIndex(s)
	r := c.hasRTL.FindStringIndex(s)
	switch {
	case l == nil && r == nil:
		return false, false
	case l == nil:
		return true, true
	case r == nil:
		return false, true
	}
	return r[0] < l[0], true
}

// Escape renders s for diagnostics: printable ASCII and letters pass
// through, everything else (bidi controls included) becomes \uXXXX.
func (c *Classifier) Escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteString(c.escapeRune(r))
	}
	return b.String()
}

func (c *Classifier) escapeRune(r rune) string {
	if v, ok := c.escapes.Load(r); ok {
		return v.(string)
	}
	var out string
	switch {
	case r >= 0x20 && r < 0x7F:
		out = string(r)
	case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r):
		out = string(r)
	case r > 0xFFFF:
		out = fmt.Sprintf(`\U%08X`, r)
	default:
		out = fmt.Sprintf(`\u%04X`, r)
	}
	c.escapes.Store(r, out)
	return out
}

func findAll(re *regexp.Regexp, s string) []Match {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, len(locs))
	for i, loc := range locs {
		out[i] = Match{Text: s[loc[0]:loc[1]], Index: loc[0]}
	}
	return out
}
