package vectorstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves canned matches per namespace and fails on request.
type fakeStore struct {
	mu      sync.Mutex
	matches map[string][]Match
	failNS  map[string]bool
	calls   []string
}

func (f *fakeStore) Search(_ context.Context, ns string, _ []float32, _ int) ([]Match, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ns)
	f.mu.Unlock()
	if f.failNS[ns] {
		return nil, errors.New("backend unavailable")
	}
	return f.matches[ns], nil
}

func (f *fakeStore) CreateNamespace(context.Context, string) error { return nil }
func (f *fakeStore) DeleteNamespace(context.Context, string) error { return nil }
func (f *fakeStore) ListNamespaces(context.Context) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) Upsert(context.Context, string, []Vector) error { return nil }
func (f *fakeStore) Stats(context.Context, string) (NamespaceStats, error) {
	return NamespaceStats{}, nil
}
func (f *fakeStore) Close() error { return nil }

func TestParallelSearch_AllNamespaces(t *testing.T) {
	fs := &fakeStore{
		matches: map[string][]Match{
			"GAP_A": {{ID: "a1", Similarity: 0.9}},
			"GAP_B": {{ID: "b1", Similarity: 0.8}, {ID: "b2", Similarity: 0.7}},
		},
	}

	got := ParallelSearch(context.Background(), fs, []float32{1}, []string{"GAP_A", "GAP_B"}, 5)
	require.Len(t, got, 2)
	assert.Len(t, got["GAP_A"], 1)
	assert.Len(t, got["GAP_B"], 2)
}

func TestParallelSearch_FailureIsolated(t *testing.T) {
	fs := &fakeStore{
		matches: map[string][]Match{
			"GAP_OK": {{ID: "ok", Similarity: 0.9}},
		},
		failNS: map[string]bool{"GAP_BAD": true},
	}

	got := ParallelSearch(context.Background(), fs, []float32{1}, []string{"GAP_OK", "GAP_BAD"}, 5)
	require.Len(t, got, 2)
	assert.Len(t, got["GAP_OK"], 1)
	// Failed namespace yields an empty, non-nil slice.
	require.NotNil(t, got["GAP_BAD"])
	assert.Empty(t, got["GAP_BAD"])
}

func TestParallelSearch_NoNamespaces(t *testing.T) {
	fs := &fakeStore{}
	got := ParallelSearch(context.Background(), fs, []float32{1}, nil, 5)
	assert.Empty(t, got)
}
