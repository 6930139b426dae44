package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. Embeddings are kept
// as JSON arrays and scored in-process, which is plenty for single-tenant
// corpora of a few thousand passages.
type SQLiteStore struct {
	db        *sql.DB
	dimension int
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(path string, dimension int) (*SQLiteStore, error) {
	if dimension <= 0 {
		return nil, eris.New("sqlite: dimension must be positive")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, dimension: dimension}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS namespaces (
	name       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS vectors (
	id         TEXT NOT NULL,
	namespace  TEXT NOT NULL REFERENCES namespaces(name) ON DELETE CASCADE,
	embedding  TEXT NOT NULL,
	text       TEXT NOT NULL,
	payload    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (namespace, id)
);

CREATE INDEX IF NOT EXISTS idx_vectors_namespace ON vectors(namespace);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateNamespace(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO namespaces (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		namespace, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: create namespace %s", namespace)
}

func (s *SQLiteStore) DeleteNamespace(ctx context.Context, namespace string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE namespace = ?`, namespace); err != nil {
		return eris.Wrapf(err, "sqlite: delete vectors %s", namespace)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM namespaces WHERE name = ?`, namespace); err != nil {
		return eris.Wrapf(err, "sqlite: delete namespace %s", namespace)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) ListNamespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM namespaces ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list namespaces")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan namespace")
		}
		names = append(names, n)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: list namespaces iterate")
}

func (s *SQLiteStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v.Values) != s.dimension {
			return eris.Errorf("sqlite: vector %s has dimension %d, store expects %d",
				v.ID, len(v.Values), s.dimension)
		}
	}

	if err := s.CreateNamespace(ctx, namespace); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vectors (id, namespace, embedding, text, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (namespace, id) DO UPDATE SET
			embedding = excluded.embedding,
			text = excluded.text,
			payload = excluded.payload`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, v := range vectors {
		embJSON, err := json.Marshal(v.Values)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal embedding")
		}
		var payloadJSON sql.NullString
		if len(v.Payload) > 0 {
			p, err := json.Marshal(v.Payload)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal payload")
			}
			payloadJSON = sql.NullString{String: string(p), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, v.ID, namespace, string(embJSON), v.Text, payloadJSON, now); err != nil {
			return eris.Wrapf(err, "sqlite: upsert vector %s", v.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) Search(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	if len(vector) != s.dimension {
		return nil, eris.Errorf("sqlite: query vector dimension %d, store expects %d",
			len(vector), s.dimension)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding, text, payload FROM vectors WHERE namespace = ?`,
		namespace,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: search namespace %s", namespace)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id, embJSON, text string
			payloadJSON       sql.NullString
		)
		if err := rows.Scan(&id, &embJSON, &text, &payloadJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vector")
		}

		var emb []float32
		if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal embedding %s", id)
		}

		m := Match{ID: id, Similarity: cosineSimilarity(vector, emb), Text: text}
		if payloadJSON.Valid {
			if err := json.Unmarshal([]byte(payloadJSON.String), &m.Payload); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal payload %s", id)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: search iterate")
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *SQLiteStore) Stats(ctx context.Context, namespace string) (NamespaceStats, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vectors WHERE namespace = ?`, namespace,
	).Scan(&count)
	if err != nil {
		return NamespaceStats{}, eris.Wrapf(err, "sqlite: stats %s", namespace)
	}
	return NamespaceStats{Namespace: namespace, VectorCount: count}, nil
}

// cosineSimilarity returns 0 for zero-magnitude or mismatched vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
