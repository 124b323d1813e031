// CLAUDE:SUMMARY Suppression filters over bidi errors: text, regexp, location class/id, severity and type predicates with AND/OR/NOT.
// Package filter suppresses detected errors. A filter sees the error and its
// location chain: the anchor element and its ancestors up to the document
// root, followed by the enclosing frame elements, innermost first.
package filter

import (
	"fmt"
	"regexp"

	"golang.org/x/net/html"

	"github.com/hazyhaar/bidicheck/dom"
	"github.com/hazyhaar/bidicheck/report"
)

// Filter decides whether an error is suppressed.
type Filter interface {
	Suppresses(e *report.Error, chain []*html.Node) bool
}

// Any reports whether any of fs suppresses e.
func Any(fs []Filter, e *report.Error, chain []*html.Node) bool {
	for _, f := range fs {
		if f.Suppresses(e, chain) {
			return true
		}
	}
	return false
}

type andFilter struct{ fst, snd Filter }

func (f andFilter) Suppresses(e *report.Error, chain []*html.Node) bool {
	return f.fst.Suppresses(e, chain) && f.snd.Suppresses(e, chain)
}

// And suppresses when both filters do.
func And(fst, snd Filter) Filter { return andFilter{fst, snd} }

type orFilter struct{ fst, snd Filter }

func (f orFilter) Suppresses(e *report.Error, chain []*html.Node) bool {
	return f.fst.Suppresses(e, chain) || f.snd.Suppresses(e, chain)
}

// Or suppresses when either filter does.
func Or(fst, snd Filter) Filter { return orFilter{fst, snd} }

type notFilter struct{ sub Filter }

func (f notFilter) Suppresses(e *report.Error, chain []*html.Node) bool {
	return !f.sub.Suppresses(e, chain)
}

// Not inverts a filter.
func Not(sub Filter) Filter { return notFilter{sub} }

// textField selects one of the error's text fields.
type textField int

const (
	fieldAtText textField = iota
	fieldFollowedBy
	fieldPrecededBy
)

func (t textField) of(e *report.Error) string {
	switch t {
	case fieldFollowedBy:
		return e.FollowedByText
	case fieldPrecededBy:
		return e.PrecededByText
	}
	return e.AtText
}

type textFilter struct {
	field textField
	text  string
	re    *regexp.Regexp
}

func (f textFilter) Suppresses(e *report.Error, _ []*html.Node) bool {
	v := f.field.of(e)
	if f.re != nil {
		return f.re.MatchString(v)
	}
	return v == f.text
}

// compileAnchored compiles pattern so it must match the whole input.
func compileAnchored(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("filter: regexp %q: %w", pattern, err)
	}
	return re, nil
}

func textRegexp(field textField, pattern string) (Filter, error) {
	re, err := compileAnchored(pattern)
	if err != nil {
		return nil, err
	}
	return textFilter{field: field, re: re}, nil
}

// AtText suppresses errors whose AtText equals s.
func AtText(s string) Filter { return textFilter{field: fieldAtText, text: s} }

// AtTextRegexp suppresses errors whose whole AtText matches pattern.
func AtTextRegexp(pattern string) (Filter, error) { return textRegexp(fieldAtText, pattern) }

// FollowedByText suppresses errors whose FollowedByText equals s.
func FollowedByText(s string) Filter { return textFilter{field: fieldFollowedBy, text: s} }

// FollowedByTextRegexp suppresses errors whose whole FollowedByText matches pattern.
func FollowedByTextRegexp(pattern string) (Filter, error) {
	return textRegexp(fieldFollowedBy, pattern)
}

// PrecededByText suppresses errors whose PrecededByText equals s.
func PrecededByText(s string) Filter { return textFilter{field: fieldPrecededBy, text: s} }

// PrecededByTextRegexp suppresses errors whose whole PrecededByText matches pattern.
func PrecededByTextRegexp(pattern string) (Filter, error) {
	return textRegexp(fieldPrecededBy, pattern)
}

type classFilter struct {
	name string
	re   *regexp.Regexp
}

func (f classFilter) Suppresses(_ *report.Error, chain []*html.Node) bool {
	for _, n := range chain {
		for _, c := range dom.Classes(n) {
			if (f.re != nil && f.re.MatchString(c)) || (f.re == nil && c == f.name) {
				return true
			}
		}
	}
	return false
}

// LocationClass suppresses errors located under an element with class name.
func LocationClass(name string) Filter { return classFilter{name: name} }

// LocationClassRegexp suppresses errors located under an element with a
// class fully matching pattern.
func LocationClassRegexp(pattern string) (Filter, error) {
	re, err := compileAnchored(pattern)
	if err != nil {
		return nil, err
	}
	return classFilter{re: re}, nil
}

type idFilter struct {
	id string
	re *regexp.Regexp
}

func (f idFilter) Suppresses(_ *report.Error, chain []*html.Node) bool {
	for _, n := range chain {
		id, ok := dom.LookupAttr(n, "id")
		if !ok {
			continue
		}
		if (f.re != nil && f.re.MatchString(id)) || (f.re == nil && id == f.id) {
			return true
		}
	}
	return false
}

// LocationID suppresses errors located under the element with the given id.
func LocationID(id string) Filter { return idFilter{id: id} }

// LocationIDRegexp suppresses errors located under an element whose id
// fully matches pattern.
func LocationIDRegexp(pattern string) (Filter, error) {
	re, err := compileAnchored(pattern)
	if err != nil {
		return nil, err
	}
	return idFilter{re: re}, nil
}

type severityFilter struct{ from report.Severity }

func (f severityFilter) Suppresses(e *report.Error, _ []*html.Node) bool {
	return e.Severity >= f.from
}

// SeverityFrom suppresses errors at severity n or milder (numerically >= n).
func SeverityFrom(n report.Severity) Filter { return severityFilter{from: n} }

type typeFilter struct{ typ string }

func (f typeFilter) Suppresses(e *report.Error, _ []*html.Node) bool { return e.Type == f.typ }

// Type suppresses errors of the given type.
func Type(t string) Filter { return typeFilter{typ: t} }
