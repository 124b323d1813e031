package dom

import (
	"fmt"
	"strings"
)

// Direction is a text directionality.
type Direction int

const (
	// Unknown means no expectation; it is never a computed direction.
	Unknown Direction = iota
	LTR
	RTL
)

func (d Direction) String() string {
	switch d {
	case LTR:
		return "ltr"
	case RTL:
		return "rtl"
	}
	return "unknown"
}

// Upper returns "LTR", "RTL" or "UNKNOWN", the form used in error types.
func (d Direction) Upper() string { return strings.ToUpper(d.String()) }

// Opposite returns RTL for LTR and LTR for RTL.
func (d Direction) Opposite() Direction {
	switch d {
	case LTR:
		return RTL
	case RTL:
		return LTR
	}
	return Unknown
}

// ParseDirection accepts ltr, rtl and unknown (or empty), case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ltr":
		return LTR, nil
	case "rtl":
		return RTL, nil
	case "", "unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("dom: invalid direction %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
