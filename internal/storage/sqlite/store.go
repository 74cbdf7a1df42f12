// Package sqlite provides SQLite-backed persistence for scrape output.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	// database/sql driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/graviris/wildweb-scraper/internal/metrics"
	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// Config controls the SQLite connection used for scrape rows.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Store writes dispatch centers, incidents, and cycle audit rows into a
// single SQLite file. The sqlite3 driver does not tolerate concurrent
// writers, so all writes serialize through one mutex.
type Store struct {
	db *sql.DB

	writeMu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS dispatch_centers (
	id TEXT PRIMARY KEY,
	center_code TEXT UNIQUE,
	center_name TEXT,
	state TEXT,
	status TEXT,
	url TEXT,
	last_updated TIMESTAMP
);

CREATE TABLE IF NOT EXISTS incidents (
	id TEXT PRIMARY KEY,
	center_id TEXT,
	incident_id TEXT UNIQUE,
	incident_number TEXT,
	fiscal TEXT,
	incident_name TEXT,
	incident_type TEXT,
	incident_status TEXT,
	local_date TIMESTAMP,
	location TEXT,
	latitude REAL,
	longitude REAL,
	resources TEXT,
	acres REAL,
	comments TEXT,
	raw_data TEXT,
	raw_hash TEXT,
	ingest_date TIMESTAMP,
	FOREIGN KEY (center_id) REFERENCES dispatch_centers(id)
);

CREATE INDEX IF NOT EXISTS idx_incident_id ON incidents(incident_id);

CREATE TABLE IF NOT EXISTS scrape_cycles (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	status TEXT NOT NULL,
	centers_found INTEGER NOT NULL DEFAULT 0,
	centers_scraped INTEGER NOT NULL DEFAULT 0,
	centers_failed INTEGER NOT NULL DEFAULT 0,
	incidents_saved INTEGER NOT NULL DEFAULT 0,
	retries INTEGER NOT NULL DEFAULT 0,
	error_text TEXT
);
`

// New opens (creating if necessary) the database file and bootstraps the
// schema. The parent directory is created when absent so a fresh volume
// mount works without an init step.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db.path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", cfg.Path, busy.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// UpsertCenters replaces the stored row for each center. Centers carry a
// deterministic ID, so REPLACE keeps one row per center code.
func (s *Store) UpsertCenters(ctx context.Context, centers []wildweb.DispatchCenter) error {
	if len(centers) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	defer observeWrite("dispatch_centers", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin centers tx: %w", err)
	}
	defer rollback(tx)

	const q = `
INSERT OR REPLACE INTO dispatch_centers
	(id, center_code, center_name, state, status, url, last_updated)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, c := range centers {
		if _, err := tx.ExecContext(ctx, q, c.ID, c.Code, c.Name, c.State, c.Status, c.URL, c.LastUpdated); err != nil {
			return fmt.Errorf("upsert center %s: %w", c.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit centers: %w", err)
	}
	return nil
}

// UpsertIncidents inserts incident occurrences, updating in place when the
// deterministic incident identity already exists. Returns the number of
// rows written.
func (s *Store) UpsertIncidents(ctx context.Context, incidents []wildweb.Incident) (int, error) {
	if len(incidents) == 0 {
		return 0, nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	defer observeWrite("incidents", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin incidents tx: %w", err)
	}
	defer rollback(tx)

	const q = `
INSERT INTO incidents
	(id, center_id, incident_id, incident_number, fiscal, incident_name,
	 incident_type, incident_status, local_date, location,
	 latitude, longitude, resources, acres, comments,
	 raw_data, raw_hash, ingest_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(incident_id) DO UPDATE SET
	center_id = excluded.center_id,
	incident_number = excluded.incident_number,
	fiscal = excluded.fiscal,
	incident_name = excluded.incident_name,
	incident_type = excluded.incident_type,
	incident_status = excluded.incident_status,
	local_date = excluded.local_date,
	location = excluded.location,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	resources = excluded.resources,
	acres = excluded.acres,
	comments = excluded.comments,
	raw_data = excluded.raw_data,
	raw_hash = excluded.raw_hash,
	ingest_date = excluded.ingest_date`

	written := 0
	for _, in := range incidents {
		if _, err := tx.ExecContext(ctx, q,
			in.ID, in.CenterID, in.IncidentID, in.Number, in.Fiscal, in.Name,
			in.Type, in.Status, nullTime(in.LocalDate), in.Location,
			nullFloat(in.Latitude), nullFloat(in.Longitude), in.Resources, nullFloat(in.Acres), in.Comments,
			in.RawData, in.RawHash, in.IngestedAt,
		); err != nil {
			return written, fmt.Errorf("upsert incident %s: %w", in.IncidentID, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit incidents: %w", err)
	}
	return written, nil
}

// ListCenters returns all known dispatch centers ordered by code.
func (s *Store) ListCenters(ctx context.Context) ([]wildweb.DispatchCenter, error) {
	const q = `
SELECT id, center_code, center_name, state, status, url, last_updated
FROM dispatch_centers
ORDER BY center_code`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	defer closeRows(rows)

	var centers []wildweb.DispatchCenter
	for rows.Next() {
		var c wildweb.DispatchCenter
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.State, &c.Status, &c.URL, &c.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan center: %w", err)
		}
		centers = append(centers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate centers: %w", err)
	}
	return centers, nil
}

// IncidentHistory returns every stored occurrence sharing an incident
// identity, oldest first.
func (s *Store) IncidentHistory(ctx context.Context, incidentID string) ([]wildweb.Incident, error) {
	const q = `
SELECT id, center_id, incident_id, incident_number, fiscal, incident_name,
	incident_type, incident_status, local_date, location,
	latitude, longitude, resources, acres, comments,
	raw_data, raw_hash, ingest_date
FROM incidents
WHERE incident_id = ?
ORDER BY ingest_date`
	rows, err := s.db.QueryContext(ctx, q, incidentID)
	if err != nil {
		return nil, fmt.Errorf("query incident history: %w", err)
	}
	defer closeRows(rows)

	var history []wildweb.Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident history: %w", err)
	}
	return history, nil
}

// StateSummary counts dispatch centers per state.
func (s *Store) StateSummary(ctx context.Context) ([]wildweb.StateCount, error) {
	const q = `
SELECT state, COUNT(*) AS center_count
FROM dispatch_centers
GROUP BY state
ORDER BY state`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query state summary: %w", err)
	}
	defer closeRows(rows)

	var summary []wildweb.StateCount
	for rows.Next() {
		var sc wildweb.StateCount
		if err := rows.Scan(&sc.State, &sc.Centers); err != nil {
			return nil, fmt.Errorf("scan state summary: %w", err)
		}
		summary = append(summary, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state summary: %w", err)
	}
	return summary, nil
}

// RecordCycle upserts a scrape cycle audit row.
func (s *Store) RecordCycle(ctx context.Context, record wildweb.CycleRecord) error {
	if record.ID == "" {
		return fmt.Errorf("cycle id is required")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	defer observeWrite("scrape_cycles", time.Now())

	const q = `
INSERT INTO scrape_cycles
	(id, started_at, finished_at, status,
	 centers_found, centers_scraped, centers_failed, incidents_saved, retries, error_text)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	finished_at = excluded.finished_at,
	status = excluded.status,
	centers_found = excluded.centers_found,
	centers_scraped = excluded.centers_scraped,
	centers_failed = excluded.centers_failed,
	incidents_saved = excluded.incidents_saved,
	retries = excluded.retries,
	error_text = excluded.error_text`
	if _, err := s.db.ExecContext(ctx, q,
		record.ID, record.Started, nullTime(record.Finished), string(record.Status),
		record.Counters.CentersFound, record.Counters.CentersScraped,
		record.Counters.CentersFailed, record.Counters.IncidentsSaved,
		record.Counters.Retries, record.ErrorText,
	); err != nil {
		return fmt.Errorf("record cycle: %w", err)
	}
	return nil
}

// ErrNoCycles indicates no scrape cycle has been recorded yet.
var ErrNoCycles = errors.New("no scrape cycles recorded")

// LatestCycle returns the most recently started cycle audit row.
func (s *Store) LatestCycle(ctx context.Context) (wildweb.CycleRecord, error) {
	const q = `
SELECT id, started_at, finished_at, status,
	centers_found, centers_scraped, centers_failed, incidents_saved, retries, error_text
FROM scrape_cycles
ORDER BY started_at DESC
LIMIT 1`
	var (
		record   wildweb.CycleRecord
		finished sql.NullTime
		errText  sql.NullString
		status   string
	)
	err := s.db.QueryRowContext(ctx, q).Scan(
		&record.ID, &record.Started, &finished, &status,
		&record.Counters.CentersFound, &record.Counters.CentersScraped,
		&record.Counters.CentersFailed, &record.Counters.IncidentsSaved,
		&record.Counters.Retries, &errText,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return wildweb.CycleRecord{}, ErrNoCycles
	}
	if err != nil {
		return wildweb.CycleRecord{}, fmt.Errorf("query latest cycle: %w", err)
	}
	record.Status = wildweb.CycleStatus(status)
	if finished.Valid {
		t := finished.Time
		record.Finished = &t
	}
	if errText.Valid {
		record.ErrorText = errText.String
	}
	return record, nil
}

func scanIncident(rows *sql.Rows) (wildweb.Incident, error) {
	var (
		in        wildweb.Incident
		localDate sql.NullTime
		lat       sql.NullFloat64
		long      sql.NullFloat64
		acres     sql.NullFloat64
	)
	if err := rows.Scan(
		&in.ID, &in.CenterID, &in.IncidentID, &in.Number, &in.Fiscal, &in.Name,
		&in.Type, &in.Status, &localDate, &in.Location,
		&lat, &long, &in.Resources, &acres, &in.Comments,
		&in.RawData, &in.RawHash, &in.IngestedAt,
	); err != nil {
		return wildweb.Incident{}, fmt.Errorf("scan incident: %w", err)
	}
	if localDate.Valid {
		t := localDate.Time
		in.LocalDate = &t
	}
	if lat.Valid {
		in.Latitude = &lat.Float64
	}
	if long.Valid {
		in.Longitude = &long.Float64
	}
	if acres.Valid {
		in.Acres = &acres.Float64
	}
	return in, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func observeWrite(table string, start time.Time) {
	metrics.ObserveDBWrite(table, time.Since(start))
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

func closeRows(rows *sql.Rows) {
	_ = rows.Close()
}
