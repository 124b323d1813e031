package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/bidicheck/report"
	"github.com/hazyhaar/bidicheck/sink"
)

// Summary is one row of the history listing.
type Summary struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Expected  string    `json:"expected,omitempty"`
	Revision  int       `json:"revision"`
	Stopped   bool      `json:"stopped,omitempty"`
	Count     int       `json:"count"`
	ScannedAt time.Time `json:"scannedAt"`
}

// Detail is a scan with its findings in id order.
type Detail struct {
	Summary
	Errors []report.Record `json:"errors"`
}

// Save stores scan and its findings. An empty scan.ID is filled with a new
// id; a zero ScannedAt with the current time.
func (s *Store) Save(ctx context.Context, scan *sink.Scan) (string, error) {
	if scan.ID == "" {
		scan.ID = s.newID()
	}
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = time.Now().UTC()
	}

	err := s.runTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scans (id, source, expected, revision, stopped, error_count, scanned_at)
			VALUES (?,?,?,?,?,?,?)`,
			scan.ID, scan.Source, scan.Expected, scan.Revision, boolInt(scan.Stopped),
			len(scan.Errors), scan.ScannedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("store: insert scan: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO findings (scan_id, error_id, type, severity, at_text, preceded_by, followed_by, location, as_string)
			VALUES (?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("store: prepare findings: %w", err)
		}
		defer stmt.Close()
		for _, r := range scan.Errors {
			if _, err := stmt.ExecContext(ctx,
				scan.ID, r.ID, r.Type, int(r.Severity), r.AtText, r.PrecededByText,
				r.FollowedByText, r.LocationDescription, r.AsString,
			); err != nil {
				return fmt.Errorf("store: insert finding %d: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("store: scan saved", "id", scan.ID, "source", scan.Source, "errors", len(scan.Errors))
	return scan.ID, nil
}

// Send saves scan, so a Store can sit behind a sink.Router.
func (s *Store) Send(ctx context.Context, scan *sink.Scan) error {
	_, err := s.Save(ctx, scan)
	return err
}

// List returns the most recent scans first. A source filter of "" matches all.
func (s *Store) List(ctx context.Context, source string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, source, expected, revision, stopped, error_count, scanned_at FROM scans`
	args := []any{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY scanned_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get returns the scan with its findings, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Detail, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, source, expected, revision, stopped, error_count, scanned_at
		FROM scans WHERE id = ?`, id)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT error_id, type, severity, at_text, preceded_by, followed_by, location, as_string
		FROM findings WHERE scan_id = ? ORDER BY error_id`, id)
	if err != nil {
		return nil, fmt.Errorf("store: get %s findings: %w", id, err)
	}
	defer rows.Close()

	d := &Detail{Summary: sum, Errors: []report.Record{}}
	for rows.Next() {
		var r report.Record
		var sev int
		if err := rows.Scan(&r.ID, &r.Type, &sev, &r.AtText, &r.PrecededByText,
			&r.FollowedByText, &r.LocationDescription, &r.AsString); err != nil {
			return nil, fmt.Errorf("store: get %s findings: %w", id, err)
		}
		r.Severity = report.Severity(sev)
		d.Errors = append(d.Errors, r)
	}
	return d, rows.Err()
}

// Delete removes a scan and its findings.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("store: delete %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// TypeCounts returns the number of findings per error type across the
// history, or for one scan when scanID is set.
func (s *Store) TypeCounts(ctx context.Context, scanID string) (map[string]int, error) {
	query := `SELECT type, COUNT(*) FROM findings`
	var args []any
	if scanID != "" {
		query += ` WHERE scan_id = ?`
		args = append(args, scanID)
	}
	query += ` GROUP BY type`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: type counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("store: type counts: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (Summary, error) {
	var sum Summary
	var stopped int
	var at int64
	if err := row.Scan(&sum.ID, &sum.Source, &sum.Expected, &sum.Revision, &stopped, &sum.Count, &at); err != nil {
		return Summary{}, err
	}
	sum.Stopped = stopped != 0
	sum.ScannedAt = time.UnixMilli(at).UTC()
	return sum, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
