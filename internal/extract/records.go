// Package extract ingests company sites and documents into the vector store
// and tracks extraction freshness per company.
package extract

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Records persists the last successful extraction timestamp per company.
// Rows are written only on success, so a failed run leaves the previous
// timestamp (and the staleness decision) untouched.
type Records struct {
	db *sql.DB
}

// OpenRecords opens the records database at path.
func OpenRecords(path string) (*Records, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "extract: open records")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "extract: exec %s", pragma)
		}
	}

	r := &Records{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

const recordsMigration = `
CREATE TABLE IF NOT EXISTS extraction_records (
	company      TEXT PRIMARY KEY,
	extracted_at DATETIME NOT NULL,
	chunk_count  INTEGER NOT NULL DEFAULT 0
);
`

func (r *Records) migrate() error {
	_, err := r.db.Exec(recordsMigration)
	return eris.Wrap(err, "extract: migrate records")
}

func (r *Records) Close() error {
	return r.db.Close()
}

// LastExtraction returns the last successful extraction time for a company.
// The second return is false when the company has never been extracted.
func (r *Records) LastExtraction(ctx context.Context, company string) (time.Time, bool, error) {
	var ts time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT extracted_at FROM extraction_records WHERE company = ?`, company,
	).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, eris.Wrapf(err, "extract: read record %s", company)
	}
	return ts, true, nil
}

// MarkExtracted records a successful extraction.
func (r *Records) MarkExtracted(ctx context.Context, company string, at time.Time, chunks int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO extraction_records (company, extracted_at, chunk_count) VALUES (?, ?, ?)
		 ON CONFLICT (company) DO UPDATE SET
			extracted_at = excluded.extracted_at,
			chunk_count = excluded.chunk_count`,
		company, at.UTC(), chunks,
	)
	return eris.Wrapf(err, "extract: mark extracted %s", company)
}
