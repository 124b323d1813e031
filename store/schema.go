package store

// Schema is the DDL for the history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS scans (
    id          TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    expected    TEXT NOT NULL DEFAULT '',
    revision    INTEGER NOT NULL,
    stopped     INTEGER NOT NULL DEFAULT 0,
    error_count INTEGER NOT NULL DEFAULT 0,
    scanned_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_source ON scans(source, scanned_at DESC);
CREATE INDEX IF NOT EXISTS idx_scans_time ON scans(scanned_at DESC);

CREATE TABLE IF NOT EXISTS findings (
    scan_id     TEXT NOT NULL,
    error_id    INTEGER NOT NULL,
    type        TEXT NOT NULL,
    severity    INTEGER NOT NULL,
    at_text     TEXT NOT NULL DEFAULT '',
    preceded_by TEXT NOT NULL DEFAULT '',
    followed_by TEXT NOT NULL DEFAULT '',
    location    TEXT NOT NULL DEFAULT '',
    as_string   TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (scan_id, error_id),
    FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_findings_type ON findings(type);
`
