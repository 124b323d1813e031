package classify

// Table is a versioned partition of code points into the classes the
// detectors reason about. Each field is the body of a regexp character
// class (without the surrounding brackets).
//
// The strong classes approximate the Unicode bidi categories L and R/AL.
// They are not a full bidi-class table.
type Table struct {
	Version string

	// LTR holds strong left-to-right letters plus U+200E LEFT-TO-RIGHT MARK.
	LTR string
	// RTL holds strong right-to-left letters plus U+200F RIGHT-TO-LEFT MARK.
	RTL string
	// Neutral holds punctuation, digits, whitespace and controls.
	Neutral string
	// VisibleNeutral is the subset of Neutral that renders as a visible
	// glyph. Neutrals adjacent to misdirected text escalate severity only
	// when they are visible.
	VisibleNeutral string
}

const (
	ltrRanges = `A-Za-z\x{00C0}-\x{00D6}\x{00D8}-\x{00F6}\x{00F8}-\x{02B8}` +
		`\x{0300}-\x{0590}\x{0900}-\x{1FFF}\x{200E}\x{2C00}-\x{FB1C}` +
		`\x{FE00}-\x{FE6F}\x{FEFD}-\x{FFFF}` +
		`\x{10000}-\x{107FF}\x{11000}-\x{1E7FF}\x{20000}-\x{10FFFF}`

	rtlRanges = `\x{0591}-\x{08FF}\x{200F}\x{FB1D}-\x{FDFF}\x{FE70}-\x{FEFC}` +
		`\x{10800}-\x{10FFF}\x{1E800}-\x{1EFFF}`

	asciiPunct = `\x{21}-\x{2F}\x{3A}-\x{40}\x{5B}-\x{60}\x{7B}-\x{7E}`
)

// TableV1 is the original partition: ASCII and Latin-1 neutrals plus the
// general punctuation and symbol blocks. Only ASCII punctuation counts as
// visible; digits do not.
var TableV1 = Table{
	Version:        "v1",
	LTR:            ltrRanges,
	RTL:            rtlRanges,
	Neutral:        `\x{0000}-\x{0040}\x{005B}-\x{0060}\x{007B}-\x{00BF}\x{00D7}\x{00F7}\x{2000}-\x{200D}\x{2010}-\x{2BFF}`,
	VisibleNeutral: asciiPunct,
}

// TableV2 extends V1 with spacing modifier letters and the supplementary
// symbol planes as neutrals, and counts digits, Latin-1 symbols and general
// punctuation as visible. Line/paragraph separators, the embedding and
// override controls and the invisible operators stay invisible.
var TableV2 = Table{
	Version: "v2",
	LTR:     ltrRanges,
	RTL:     rtlRanges,
	Neutral: `\x{0000}-\x{0040}\x{005B}-\x{0060}\x{007B}-\x{00BF}\x{00D7}\x{00F7}` +
		`\x{02B9}-\x{02FF}\x{2000}-\x{200D}\x{2010}-\x{2BFF}\x{1F000}-\x{1FFFF}`,
	VisibleNeutral: asciiPunct + `0-9\x{00A1}-\x{00AC}\x{00AE}-\x{00BF}\x{00D7}\x{00F7}` +
		`\x{02B9}-\x{02FF}\x{2010}-\x{2027}\x{2030}-\x{205E}\x{2070}-\x{2BFF}\x{1F000}-\x{1FFFF}`,
}

// DefaultTable is the table used when none is configured.
var DefaultTable = TableV2

// TableByVersion returns the table registered under version.
func TableByVersion(version string) (Table, bool) {
	switch version {
	case "", TableV2.Version:
		return TableV2, true
	case TableV1.Version:
		return TableV1, true
	}
	return Table{}, false
}
