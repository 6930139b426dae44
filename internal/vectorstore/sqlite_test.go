package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), 3)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_UpsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vectors := []Vector{
		{ID: "a", Values: []float32{1, 0, 0}, Text: "alpha"},
		{ID: "b", Values: []float32{0, 1, 0}, Text: "beta"},
		{ID: "c", Values: []float32{0.9, 0.1, 0}, Text: "gamma", Payload: map[string]string{"source": "site"}},
	}
	require.NoError(t, s.Upsert(ctx, "GAP_ACME", vectors))

	matches, err := s.Search(ctx, "GAP_ACME", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Exact match first, near match second.
	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, "c", matches[1].ID)
	assert.Greater(t, matches[1].Similarity, 0.9)
	assert.Equal(t, "site", matches[1].Payload["source"])
}

func TestSQLite_UpsertReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "GAP_ACME", []Vector{
		{ID: "a", Values: []float32{1, 0, 0}, Text: "old"},
	}))
	require.NoError(t, s.Upsert(ctx, "GAP_ACME", []Vector{
		{ID: "a", Values: []float32{0, 1, 0}, Text: "new"},
	}))

	stats, err := s.Stats(ctx, "GAP_ACME")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCount)

	matches, err := s.Search(ctx, "GAP_ACME", []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Text)
}

func TestSQLite_DimensionEnforced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, "GAP_ACME", []Vector{{ID: "bad", Values: []float32{1, 0}}})
	require.Error(t, err)

	_, err = s.Search(ctx, "GAP_ACME", []float32{1, 0}, 5)
	require.Error(t, err)
}

func TestSQLite_NamespaceIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "GAP_ACME", []Vector{
		{ID: "a", Values: []float32{1, 0, 0}, Text: "acme"},
	}))
	require.NoError(t, s.Upsert(ctx, "GAP_GLOBEX", []Vector{
		{ID: "g", Values: []float32{1, 0, 0}, Text: "globex"},
	}))

	matches, err := s.Search(ctx, "GAP_GLOBEX", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "g", matches[0].ID)
}

func TestSQLite_DeleteNamespace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "GAP_ACME", []Vector{
		{ID: "a", Values: []float32{1, 0, 0}, Text: "acme"},
	}))
	require.NoError(t, s.DeleteNamespace(ctx, "GAP_ACME"))

	names, err := s.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "GAP_ACME")

	stats, err := s.Stats(ctx, "GAP_ACME")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.VectorCount)
}

func TestSQLite_SearchEmptyNamespace(t *testing.T) {
	s := newTestStore(t)

	matches, err := s.Search(context.Background(), "GAP_NOBODY", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tc.want)
			}
		})
	}
}
