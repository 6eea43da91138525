package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/emi-ran/video-downloader-bot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    platform    TEXT NOT NULL,
    url         TEXT NOT NULL,
    quality     TEXT,
    size_bytes  INTEGER,
    duration_ms INTEGER,
    status      TEXT NOT NULL,
    error       TEXT,
    created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_downloads_platform ON downloads(platform);

CREATE TABLE IF NOT EXISTS accesses (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    artifact_id TEXT NOT NULL,
    accessed_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accesses_artifact ON accesses(artifact_id);
`

// Sink implements domain.EventSink on SQLite: one append-only row per
// attempt, one per redemption. Rows are never updated.
type Sink struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and initializes the
// schema.
func New(dbPath string) (*Sink, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Sink{db: db}, nil
}

// Close closes the database connection.
func (s *Sink) Close() error {
	return s.db.Close()
}

// RecordAttempt appends one attempt record.
func (s *Sink) RecordAttempt(ctx context.Context, rec domain.AttemptRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (platform, url, quality, size_bytes, duration_ms, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Platform), rec.URL, rec.Quality, rec.SizeBytes,
		rec.Duration.Milliseconds(), string(rec.Status), rec.Error, ts.UTC(),
	)
	return err
}

// RecordAccess appends one redemption record.
func (s *Sink) RecordAccess(ctx context.Context, artifactID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accesses (artifact_id, accessed_at) VALUES (?, ?)`,
		artifactID, time.Now().UTC(),
	)
	return err
}

// CountAttempts returns the number of recorded attempts per status for
// a platform. Reporting-only helper.
func (s *Sink) CountAttempts(ctx context.Context, platform domain.SourcePlatform) (map[domain.AttemptStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM downloads WHERE platform = ? GROUP BY status`,
		string(platform),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.AttemptStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.AttemptStatus(status)] = n
	}
	return counts, rows.Err()
}
