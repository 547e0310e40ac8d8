// Package history persists evaluation outcomes to a local SQLite database.
// The store is an audit trail, not a cache: rows are append-only and a
// failed write must never fail the evaluation that produced it, so callers
// log recording errors instead of returning them.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shinsa-ai/shinsa/internal/model"
)

// defaultRecentLimit bounds Recent when the caller passes no limit.
const defaultRecentLimit = 20

// Entry is one recorded evaluation outcome.
type Entry struct {
	ID               string            `json:"id"`
	Fingerprint      string            `json:"fingerprint"`
	Mode             model.ReviewMode  `json:"mode"`
	Verdict          model.Verdict     `json:"verdict"`
	OverallScore     float64           `json:"overall_score"`
	CompliancePassed bool              `json:"compliance_passed"`
	FromCache        bool              `json:"from_cache"`
	ElapsedMS        int64             `json:"elapsed_ms"`
	CreatedAt        time.Time         `json:"created_at"`
}

// VerdictCount aggregates how often each verdict was issued.
type VerdictCount struct {
	Verdict model.Verdict `json:"verdict"`
	Count   int64         `json:"count"`
}

// Store implements the audit trail with a SQLite database.
type Store struct {
	db *sql.DB
}

const createEvaluations = `
CREATE TABLE IF NOT EXISTS evaluations (
	id TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	mode TEXT NOT NULL,
	verdict TEXT NOT NULL,
	overall_score REAL NOT NULL,
	compliance_passed INTEGER NOT NULL,
	from_cache INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at);
CREATE INDEX IF NOT EXISTS idx_evaluations_fingerprint ON evaluations(fingerprint);
`

// Open creates a Store at path and runs auto-migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if _, err := db.Exec(createEvaluations); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate db: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores one evaluation outcome. A missing ID or timestamp is filled
// in here so callers can pass a bare decision summary.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, fingerprint, mode, verdict, overall_score, compliance_passed, from_cache, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Fingerprint, string(e.Mode), string(e.Verdict), e.OverallScore,
		e.CompliancePassed, e.FromCache, e.ElapsedMS, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("history: record evaluation: %w", err)
	}
	return nil
}

// Recent returns the newest evaluations, newest first. A non-positive limit
// selects the default.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fingerprint, mode, verdict, overall_score, compliance_passed, from_cache, elapsed_ms, created_at
		 FROM evaluations ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent evaluations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Fingerprint, &e.Mode, &e.Verdict, &e.OverallScore,
			&e.CompliancePassed, &e.FromCache, &e.ElapsedMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan evaluation: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ByFingerprint returns the newest evaluations of one piece of content,
// newest first. A non-positive limit selects the default.
func (s *Store) ByFingerprint(ctx context.Context, fingerprint string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fingerprint, mode, verdict, overall_score, compliance_passed, from_cache, elapsed_ms, created_at
		 FROM evaluations WHERE fingerprint = ? ORDER BY created_at DESC, id LIMIT ?`, fingerprint, limit)
	if err != nil {
		return nil, fmt.Errorf("history: evaluations by fingerprint: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Fingerprint, &e.Mode, &e.Verdict, &e.OverallScore,
			&e.CompliancePassed, &e.FromCache, &e.ElapsedMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan evaluation: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary returns evaluation counts grouped by verdict.
func (s *Store) Summary(ctx context.Context) ([]VerdictCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT verdict, COUNT(*) FROM evaluations GROUP BY verdict ORDER BY verdict`)
	if err != nil {
		return nil, fmt.Errorf("history: summarize evaluations: %w", err)
	}
	defer rows.Close()

	var counts []VerdictCount
	for rows.Next() {
		var c VerdictCount
		if err := rows.Scan(&c.Verdict, &c.Count); err != nil {
			return nil, fmt.Errorf("history: scan summary: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
