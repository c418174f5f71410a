// Package storage is the sqlite progress store shared by the workflow stages. Every
// stage records what it has done here so a rerun picks up where the last one stopped.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"restituiri/internal"
)

// File statuses recorded by the parse stage.
const (
	FileParsed    = "parsed"
	FileCancelled = "cancelled"
	FileEmpty     = "empty"
	FileImported  = "imported"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS files (
  sourceFile TEXT PRIMARY KEY,
  status TEXT NOT NULL,
  rowCount INTEGER NOT NULL,
  processedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cases (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sourceFile TEXT NOT NULL,
  ordinal INTEGER NOT NULL,
  caseNumber TEXT,
  caseDate TEXT,
  requesters TEXT NOT NULL,
  notificationNumber TEXT,
  notificationDate TEXT,
  contemporary TEXT,
  historical TEXT,
  propertyType TEXT,
  solution TEXT,
  actHistory TEXT,
  multipleAddresses INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(sourceFile, ordinal)
);
CREATE INDEX IF NOT EXISTS idx_cases_caseNumber ON cases(caseNumber);

CREATE TABLE IF NOT EXISTS geocodes (
  caseId INTEGER PRIMARY KEY,
  query TEXT NOT NULL,
  status TEXT NOT NULL,
  latitude REAL,
  longitude REAL,
  detail TEXT,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(caseId) REFERENCES cases(id)
);
CREATE INDEX IF NOT EXISTS idx_geocodes_status ON geocodes(status);

CREATE TABLE IF NOT EXISTS downloads (
  dpg TEXT NOT NULL,
  isoDate TEXT NOT NULL,
  caseNumber TEXT NOT NULL,
  status TEXT NOT NULL,
  file TEXT,
  detail TEXT,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(dpg, isoDate)
);

CREATE TABLE IF NOT EXISTS pdf_links (
  caseId INTEGER NOT NULL,
  fileName TEXT NOT NULL,
  PRIMARY KEY(caseId, fileName),
  FOREIGN KEY(caseId) REFERENCES cases(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  stage TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// RecordFile stores the rows parsed from one source file and marks the file done, in a
// single transaction. Rows already stored for the file are replaced.
func (d *DB) RecordFile(sourceFile, status string, rows []internal.CaseRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM geocodes WHERE caseId IN (SELECT id FROM cases WHERE sourceFile = ?)`, sourceFile); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM pdf_links WHERE caseId IN (SELECT id FROM cases WHERE sourceFile = ?)`, sourceFile); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM cases WHERE sourceFile = ?`, sourceFile); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO cases (
  sourceFile, ordinal, caseNumber, caseDate, requesters,
  notificationNumber, notificationDate, contemporary, historical, propertyType,
  solution, actHistory, multipleAddresses
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		requestersJSON, _ := json.Marshal(nonNilStrings(r.Requesters))
		if _, err := stmt.Exec(
			sourceFile, i, r.CaseNumber, r.CaseDate, string(requestersJSON),
			r.NotificationNumber, r.NotificationDate, r.Address.Contemporary, r.Address.Historical, r.Address.PropertyType,
			r.Solution, r.ActHistory, boolToInt(r.MultipleAddresses),
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
INSERT INTO files (sourceFile, status, rowCount) VALUES (?, ?, ?)
ON CONFLICT(sourceFile) DO UPDATE SET
  status = excluded.status,
  rowCount = excluded.rowCount,
  processedAt = CURRENT_TIMESTAMP
`, sourceFile, status, len(rows)); err != nil {
		return err
	}

	return tx.Commit()
}

// RecordedFiles returns the source files the parse stage has finished.
func (d *DB) RecordedFiles() (map[string]struct{}, error) {
	rows, err := d.conn.Query(`SELECT sourceFile FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

const caseColumns = `
  c.id, c.sourceFile, c.ordinal, c.caseNumber, c.caseDate, c.requesters,
  c.notificationNumber, c.notificationDate, c.contemporary, c.historical, c.propertyType,
  c.solution, c.actHistory, c.multipleAddresses`

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(s scanner) (internal.StoredCase, error) {
	var c internal.StoredCase
	var requestersJSON string
	var multiple int
	r := &c.Record
	if err := s.Scan(
		&c.ID, &c.SourceFile, &c.Ordinal, &r.CaseNumber, &r.CaseDate, &requestersJSON,
		&r.NotificationNumber, &r.NotificationDate, &r.Address.Contemporary, &r.Address.Historical, &r.Address.PropertyType,
		&r.Solution, &r.ActHistory, &multiple,
	); err != nil {
		return internal.StoredCase{}, err
	}
	_ = json.Unmarshal([]byte(requestersJSON), &r.Requesters)
	if len(r.Requesters) == 0 {
		r.Requesters = nil
	}
	r.MultipleAddresses = multiple != 0
	return c, nil
}

// ListCases returns every stored row in insertion order.
func (d *DB) ListCases() ([]internal.StoredCase, error) {
	return d.queryCases(`SELECT` + caseColumns + ` FROM cases c ORDER BY c.id`)
}

func (d *DB) GetCase(id int64) (*internal.StoredCase, error) {
	c, err := scanCase(d.conn.QueryRow(`SELECT`+caseColumns+` FROM cases c WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// PendingGeocodes returns up to limit rows that have no geocoding outcome or whose last
// attempt failed; limit <= 0 means all of them.
func (d *DB) PendingGeocodes(limit int) ([]internal.StoredCase, error) {
	if limit <= 0 {
		limit = -1
	}
	return d.queryCases(`SELECT`+caseColumns+`
FROM cases c
LEFT JOIN geocodes g ON g.caseId = c.id
WHERE g.caseId IS NULL OR g.status = ?
ORDER BY c.id
LIMIT ?`, string(internal.GeocodeError), limit)
}

func (d *DB) queryCases(query string, args ...any) ([]internal.StoredCase, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.StoredCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) UpsertGeocode(row internal.GeocodeRow) error {
	_, err := d.conn.Exec(`
INSERT INTO geocodes (caseId, query, status, latitude, longitude, detail)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(caseId) DO UPDATE SET
  query = excluded.query,
  status = excluded.status,
  latitude = excluded.latitude,
  longitude = excluded.longitude,
  detail = excluded.detail,
  updatedAt = CURRENT_TIMESTAMP
`, row.CaseID, row.Query, string(row.Status), row.Latitude, row.Longitude, row.Detail)
	return err
}

func (d *DB) GeocodesByStatus(status internal.GeocodeStatus) ([]internal.GeocodeRow, error) {
	return d.queryGeocodes(`SELECT caseId, query, status, latitude, longitude, detail FROM geocodes WHERE status = ? ORDER BY caseId`, string(status))
}

// Geocodes returns every geocoding outcome keyed by case row id.
func (d *DB) Geocodes() (map[int64]internal.GeocodeRow, error) {
	list, err := d.queryGeocodes(`SELECT caseId, query, status, latitude, longitude, detail FROM geocodes`)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]internal.GeocodeRow, len(list))
	for _, g := range list {
		out[g.CaseID] = g
	}
	return out, nil
}

func (d *DB) queryGeocodes(query string, args ...any) ([]internal.GeocodeRow, error) {
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.GeocodeRow
	for rows.Next() {
		var g internal.GeocodeRow
		var status string
		if err := rows.Scan(&g.CaseID, &g.Query, &status, &g.Latitude, &g.Longitude, &g.Detail); err != nil {
			return nil, err
		}
		g.Status = internal.GeocodeStatus(status)
		out = append(out, g)
	}
	return out, rows.Err()
}

// RecordDownload stores the outcome of an act download keyed by (DPG, date).
func (d *DB) RecordDownload(task internal.DownloadTask, status internal.DownloadStatus, file, detail *string) error {
	_, err := d.conn.Exec(`
INSERT INTO downloads (dpg, isoDate, caseNumber, status, file, detail)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(dpg, isoDate) DO UPDATE SET
  caseNumber = excluded.caseNumber,
  status = excluded.status,
  file = excluded.file,
  detail = excluded.detail,
  updatedAt = CURRENT_TIMESTAMP
`, task.Code, task.ISODate, task.CaseNumber, string(status), file, detail)
	return err
}

// FinishedDownloads returns the (DPG, date) keys that need no further attempt: every
// recorded outcome except errors.
func (d *DB) FinishedDownloads() (map[internal.DpgKey]struct{}, error) {
	rows, err := d.conn.Query(`SELECT dpg, isoDate FROM downloads WHERE status != ?`, string(internal.DownloadError))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[internal.DpgKey]struct{}{}
	for rows.Next() {
		var k internal.DpgKey
		if err := rows.Scan(&k.Code, &k.ISODate); err != nil {
			return nil, err
		}
		out[k] = struct{}{}
	}
	return out, rows.Err()
}

// DownloadCounts tallies recorded downloads by status.
func (d *DB) DownloadCounts() (map[internal.DownloadStatus]int, error) {
	rows, err := d.conn.Query(`SELECT status, COUNT(*) FROM downloads GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[internal.DownloadStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[internal.DownloadStatus(status)] = n
	}
	return out, rows.Err()
}

// ReplacePDFLinks swaps the whole case-to-PDF mapping for links.
func (d *DB) ReplacePDFLinks(links map[int64][]string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM pdf_links`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO pdf_links (caseId, fileName) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for caseID, names := range links {
		for _, name := range names {
			if _, err := stmt.Exec(caseID, name); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// PDFLinks returns the linked file names per case row, sorted by name.
func (d *DB) PDFLinks() (map[int64][]string, error) {
	rows, err := d.conn.Query(`SELECT caseId, fileName FROM pdf_links ORDER BY caseId, fileName`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]string{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(runID, stage string, counts map[string]int) error {
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (runId, stage, countsJson) VALUES (?, ?, ?)`, runID, stage, string(countsJSON))
	return err
}

// Run is one recorded stage execution.
type Run struct {
	RunID     string
	Stage     string
	Counts    map[string]int
	CreatedAt string
}

func (d *DB) ListRuns() ([]Run, error) {
	rows, err := d.conn.Query(`SELECT runId, stage, countsJson, createdAt FROM runs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var countsJSON string
		if err := rows.Scan(&r.RunID, &r.Stage, &countsJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(countsJSON), &r.Counts)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
