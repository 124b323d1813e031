package report

import (
	"sync"

	"github.com/hazyhaar/bidicheck/dom"
)

// Session scopes error ids and highlightable areas to one top-level scan.
// Starting a new scan means creating a new Session.
type Session struct {
	mu     sync.Mutex
	nextID int
	areas  map[int]dom.Area
}

// NewSession returns an empty session; the first id is 1.
func NewSession() *Session {
	return &Session{areas: make(map[int]dom.Area)}
}

// NewError creates an error with the next session id.
func (s *Session) NewError(typ string, sev Severity, area dom.Area) *Error {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()
	return &Error{ID: id, Type: typ, Severity: sev, area: area}
}

// Register records the error's area so it can be found again by id.
func (s *Session) Register(e *Error) {
	if e.area == nil {
		return
	}
	s.mu.Lock()
	s.areas[e.ID] = e.area
	s.mu.Unlock()
}

// Area returns the area registered under id.
func (s *Session) Area(id int) (dom.Area, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.areas[id]
	return a, ok
}

// Len returns the number of registered areas.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.areas)
}

// Hydrate rebuilds an Error from its record, rebinding the area when this
// session still holds the id.
func (s *Session) Hydrate(r Record) *Error {
	e := r.Error()
	if a, ok := s.Area(r.ID); ok {
		e.area = a
	}
	return e
}

// HighlightAll highlights every registered area and returns an undo func.
// Areas that fail to highlight are skipped.
func (s *Session) HighlightAll() (undo func()) {
	s.mu.Lock()
	areas := make([]dom.Area, 0, len(s.areas))
	for id := 1; id <= s.nextID; id++ {
		if a, ok := s.areas[id]; ok {
			areas = append(areas, a)
		}
	}
	s.mu.Unlock()

	var done []dom.Area
	for _, a := range areas {
		if _, err := a.Highlight(); err == nil {
			done = append(done, a)
		}
	}
	return func() {
		for i := len(done) - 1; i >= 0; i-- {
			_ = done[i].Unhighlight()
		}
	}
}
