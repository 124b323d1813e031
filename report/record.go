package report

import (
	"encoding/json"
	"fmt"
)

// Record is the flat, serializable form of an Error. It carries no area.
type Record struct {
	ID                  int      `json:"id"`
	Type                string   `json:"type"`
	Severity            Severity `json:"severity"`
	AtText              string   `json:"atText,omitempty"`
	LocationDescription string   `json:"locationDescription,omitempty"`
	PrecededByText      string   `json:"precededByText,omitempty"`
	FollowedByText      string   `json:"followedByText,omitempty"`
	AsString            string   `json:"asString"`
}

// Record flattens e.
func (e *Error) Record() Record {
	return Record{
		ID:                  e.ID,
		Type:                e.Type,
		Severity:            e.Severity,
		AtText:              e.AtText,
		LocationDescription: e.LocationDescription,
		PrecededByText:      e.PrecededByText,
		FollowedByText:      e.FollowedByText,
		AsString:            e.String(),
	}
}

// Error rebuilds an Error without an area. Use Session.Hydrate to rebind it.
func (r Record) Error() *Error {
	return &Error{
		ID:                  r.ID,
		Type:                r.Type,
		Severity:            r.Severity,
		AtText:              r.AtText,
		LocationDescription: r.LocationDescription,
		PrecededByText:      r.PrecededByText,
		FollowedByText:      r.FollowedByText,
	}
}

// MarshalJSON encodes the error as its Record.
func (e *Error) MarshalJSON() ([]byte, error) { return json.Marshal(e.Record()) }

// Records flattens a list of errors.
func Records(errs []*Error) []Record {
	out := make([]Record, len(errs))
	for i, e := range errs {
		out[i] = e.Record()
	}
	return out
}

// MarshalRecords serializes errors as a JSON array of records.
func MarshalRecords(errs []*Error) ([]byte, error) {
	data, err := json.Marshal(Records(errs))
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}
	return data, nil
}

// UnmarshalRecords parses a JSON array of records.
func UnmarshalRecords(data []byte) ([]Record, error) {
	var out []Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("report: unmarshal: %w", err)
	}
	return out, nil
}
