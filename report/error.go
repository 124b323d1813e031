// CLAUDE:SUMMARY Bidi defect record, severity scale, per-scan session with id counter and highlight side table.
// Package report defines the bidi defect record produced by the detectors and
// its flat serialization.
package report

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/bidicheck/classify"
	"github.com/hazyhaar/bidicheck/dom"
)

// Severity ranks a defect from 1 (worst) to 4 (mildest).
type Severity int

const (
	SeverityCritical Severity = 1
	SeverityHigh     Severity = 2
	SeverityMedium   Severity = 3
	SeverityLow      Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Valid reports whether s is on the 1..4 scale.
func (s Severity) Valid() bool { return s >= SeverityCritical && s <= SeverityLow }

// Error types emitted by the detectors.
const (
	TypeOverallNotRTL     = "Overall directionality not RTL"
	TypeOverallNotLTR     = "Overall directionality not LTR"
	TypeUndeclaredLTR     = "Undeclared LTR text"
	TypeUndeclaredRTL     = "Undeclared RTL text"
	TypeSpilloverLTR      = "Declared LTR spillover to number"
	TypeSpilloverRTL      = "Declared RTL spillover to number"
	TypeFileInputNotLTR   = "File input not LTR"
	typeUndeclaredFieldFm = "Undeclared %s %s"
)

// OverallType returns the type for a page whose direction is not want.
func OverallType(want dom.Direction) string {
	if want == dom.RTL {
		return TypeOverallNotRTL
	}
	return TypeOverallNotLTR
}

// UndeclaredTextType returns the type for misdirected text of direction d.
func UndeclaredTextType(d dom.Direction) string {
	if d == dom.RTL {
		return TypeUndeclaredRTL
	}
	return TypeUndeclaredLTR
}

// SpilloverType returns the type for a spillover out of a region of
// direction d.
func SpilloverType(d dom.Direction) string {
	if d == dom.RTL {
		return TypeSpilloverRTL
	}
	return TypeSpilloverLTR
}

// UndeclaredFieldType returns the type for attribute text of direction d,
// e.g. "Undeclared RTL title".
func UndeclaredFieldType(d dom.Direction, field string) string {
	return fmt.Sprintf(typeUndeclaredFieldFm, d.Upper(), field)
}

// Error is one detected defect. Fields are fixed once the collector accepts
// it; the setters exist for enrichment before that.
type Error struct {
	ID                  int
	Type                string
	Severity            Severity
	AtText              string
	PrecededByText      string
	FollowedByText      string
	LocationDescription string

	area dom.Area
}

// Area returns the highlightable area, or nil for a hydrated error whose
// session no longer holds it.
func (e *Error) Area() dom.Area { return e.area }

// SetSeverity overrides the severity.
func (e *Error) SetSeverity(s Severity) { e.Severity = s }

// SetLocationDescription sets the human-readable location.
func (e *Error) SetLocationDescription(s string) { e.LocationDescription = s }

// SetPrecededByText sets the text found just before AtText.
func (e *Error) SetPrecededByText(s string) { e.PrecededByText = s }

// SetFollowedByText sets the text found just after AtText.
func (e *Error) SetFollowedByText(s string) { e.FollowedByText = s }

// String renders the error on one line. Bidi controls and other invisible
// characters in text fields are escaped.
func (e *Error) String() string {
	esc := classify.Default().Escape
	var b strings.Builder
	fmt.Fprintf(&b, "%s (severity %d)", e.Type, e.Severity)
	if e.AtText != "" {
		fmt.Fprintf(&b, " at %q", esc(e.AtText))
	}
	if e.PrecededByText != "" {
		fmt.Fprintf(&b, " preceded by %q", esc(e.PrecededByText))
	}
	if e.FollowedByText != "" {
		fmt.Fprintf(&b, " followed by %q", esc(e.FollowedByText))
	}
	if e.LocationDescription != "" {
		b.WriteString(" in ")
		b.WriteString(e.LocationDescription)
	}
	return b.String()
}
