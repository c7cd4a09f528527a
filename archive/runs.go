// Package archive records scrape run history in SQLite. Each invocation of
// the scraper gets a run row tracking what was scraped, where the archive
// was written, and how many talks failed enrichment.
package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run represents one scrape invocation.
type Run struct {
	RunID         uuid.UUID  `json:"run_id"`
	ConferenceKey string     `json:"conference_key"`
	Language      string     `json:"language"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Sessions      int        `json:"sessions"`
	Talks         int        `json:"talks"`
	EnrichErrors  int        `json:"enrich_errors"`
	ArchivePath   string     `json:"archive_path,omitempty"`
	Status        string     `json:"status"`
}

// RunStore manages run history using SQLite.
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens (creating if needed) the run history database.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &RunStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the runs table if it doesn't exist.
func (s *RunStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		conference_key TEXT NOT NULL,
		language TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		sessions INTEGER DEFAULT 0,
		talks INTEGER DEFAULT 0,
		enrich_errors INTEGER DEFAULT 0,
		archive_path TEXT,
		status TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// RecordStart inserts a new running entry and returns it.
func (s *RunStore) RecordStart(conferenceKey, language string) (*Run, error) {
	run := &Run{
		RunID:         uuid.New(),
		ConferenceKey: conferenceKey,
		Language:      language,
		StartedAt:     time.Now(),
		Status:        StatusRunning,
	}

	query := `
		INSERT INTO runs (run_id, conference_key, language, started_at, status)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.RunID.String(),
		run.ConferenceKey,
		run.Language,
		formatTime(&run.StartedAt),
		run.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	return run, nil
}

// RunResult carries the counters recorded when a run finishes.
type RunResult struct {
	Sessions     int
	Talks        int
	EnrichErrors int
	ArchivePath  string
}

// RecordFinish marks a run completed (or failed, when failed is true) and
// stores its counters.
func (s *RunStore) RecordFinish(runID uuid.UUID, result RunResult, failed bool) error {
	status := StatusCompleted
	if failed {
		status = StatusFailed
	}
	now := time.Now()

	query := `
		UPDATE runs
		SET finished_at = ?, sessions = ?, talks = ?, enrich_errors = ?,
		    archive_path = ?, status = ?
		WHERE run_id = ?
	`

	res, err := s.db.Exec(query,
		formatTime(&now),
		result.Sessions,
		result.Talks,
		result.EnrichErrors,
		result.ArchivePath,
		status,
		runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(runID uuid.UUID) (*Run, error) {
	query := selectColumns + " WHERE run_id = ?"

	row := s.db.QueryRow(query, runID.String())
	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	return run, nil
}

// ListRuns lists run history, most recent first. A limit of 0 returns all
// runs.
func (s *RunStore) ListRuns(limit int) ([]Run, error) {
	query := selectColumns + " ORDER BY started_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

const selectColumns = `
	SELECT run_id, conference_key, language, started_at, finished_at,
	       sessions, talks, enrich_errors, archive_path, status
	FROM runs
`

// scanRun parses one row into a Run, shared by GetRun and ListRuns.
func scanRun(scan func(...any) error) (*Run, error) {
	var runIDStr, conferenceKey, language, startedAtStr, status string
	var finishedAtStr, archivePath sql.NullString
	var sessions, talks, enrichErrors int

	err := scan(
		&runIDStr, &conferenceKey, &language, &startedAtStr, &finishedAtStr,
		&sessions, &talks, &enrichErrors, &archivePath, &status,
	)
	if err != nil {
		return nil, err
	}

	runID, err := uuid.Parse(runIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run ID: %w", err)
	}

	run := &Run{
		RunID:         runID,
		ConferenceKey: conferenceKey,
		Language:      language,
		StartedAt:     parseTime(startedAtStr),
		Sessions:      sessions,
		Talks:         talks,
		EnrichErrors:  enrichErrors,
		Status:        status,
	}

	if finishedAtStr.Valid {
		t := parseTime(finishedAtStr.String)
		run.FinishedAt = &t
	}
	if archivePath.Valid {
		run.ArchivePath = archivePath.String
	}

	return run, nil
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
