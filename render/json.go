package render

import (
	"encoding/json"
	"io"
)

// JSONLines writes one report.Record per line.
func JSONLines(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, e := range r.Errors {
		if err := enc.Encode(e.Record()); err != nil {
			return err
		}
	}
	return nil
}
