package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on pgvector. Cosine distance via the <=>
// operator; similarity reported as 1 - distance.
type PostgresStore struct {
	pool      Pool
	dimension int
}

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, connString string, dimension int) (*PostgresStore, error) {
	if dimension <= 0 {
		return nil, eris.New("postgres: dimension must be positive")
	}

	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, dimension: dimension}, nil
}

// NewPostgresWithPool wires an existing pool, used by tests.
func NewPostgresWithPool(pool Pool, dimension int) *PostgresStore {
	return &PostgresStore{pool: pool, dimension: dimension}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS namespaces (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vectors (
	id         TEXT NOT NULL,
	namespace  TEXT NOT NULL REFERENCES namespaces(name) ON DELETE CASCADE,
	embedding  vector(%d) NOT NULL,
	text       TEXT NOT NULL,
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, id)
);

CREATE INDEX IF NOT EXISTS idx_vectors_namespace ON vectors(namespace);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(postgresMigration, s.dimension))
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateNamespace(ctx context.Context, namespace string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO namespaces (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
		namespace,
	)
	return eris.Wrapf(err, "postgres: create namespace %s", namespace)
}

func (s *PostgresStore) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM namespaces WHERE name = $1`, namespace)
	return eris.Wrapf(err, "postgres: delete namespace %s", namespace)
}

func (s *PostgresStore) ListNamespaces(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM namespaces ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list namespaces")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan namespace")
		}
		names = append(names, n)
	}
	return names, eris.Wrap(rows.Err(), "postgres: list namespaces iterate")
}

func (s *PostgresStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v.Values) != s.dimension {
			return eris.Errorf("postgres: vector %s has dimension %d, store expects %d",
				v.ID, len(v.Values), s.dimension)
		}
	}

	if err := s.CreateNamespace(ctx, namespace); err != nil {
		return err
	}

	for _, v := range vectors {
		var payloadJSON any
		if len(v.Payload) > 0 {
			p, err := json.Marshal(v.Payload)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal payload")
			}
			payloadJSON = string(p)
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO vectors (id, namespace, embedding, text, payload)
			 VALUES ($1, $2, $3::vector, $4, $5)
			 ON CONFLICT (namespace, id) DO UPDATE SET
				embedding = excluded.embedding,
				text = excluded.text,
				payload = excluded.payload`,
			v.ID, namespace, formatVector(v.Values), v.Text, payloadJSON,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: upsert vector %s", v.ID)
		}
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error) {
	if len(vector) != s.dimension {
		return nil, eris.Errorf("postgres: query vector dimension %d, store expects %d",
			len(vector), s.dimension)
	}
	if k <= 0 {
		k = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, 1 - (embedding <=> $1::vector) AS similarity, text, payload
		 FROM vectors
		 WHERE namespace = $2
		 ORDER BY embedding <=> $1::vector
		 LIMIT $3`,
		formatVector(vector), namespace, k,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: search namespace %s", namespace)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m           Match
			payloadJSON *string
		)
		if err := rows.Scan(&m.ID, &m.Similarity, &m.Text, &payloadJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		if payloadJSON != nil {
			if err := json.Unmarshal([]byte(*payloadJSON), &m.Payload); err != nil {
				return nil, eris.Wrapf(err, "postgres: unmarshal payload %s", m.ID)
			}
		}
		matches = append(matches, m)
	}
	return matches, eris.Wrap(rows.Err(), "postgres: search iterate")
}

func (s *PostgresStore) Stats(ctx context.Context, namespace string) (NamespaceStats, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM vectors WHERE namespace = $1`, namespace,
	).Scan(&count)
	if err != nil {
		return NamespaceStats{}, eris.Wrapf(err, "postgres: stats %s", namespace)
	}
	return NamespaceStats{Namespace: namespace, VectorCount: count}, nil
}

// formatVector renders a pgvector literal like [0.1,0.2,0.3].
func formatVector(values []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
