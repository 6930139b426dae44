// Package vectorstore provides namespace-partitioned vector storage with
// pluggable backends: pgvector for shared deployments and SQLite for local,
// in-process use.
package vectorstore

import (
	"context"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"
)

// Vector is one embedded passage to store.
type Vector struct {
	ID      string            `json:"id"`
	Values  []float32         `json:"values"`
	Text    string            `json:"text"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Match is one search hit, ordered by similarity descending.
type Match struct {
	ID         string            `json:"id"`
	Similarity float64           `json:"similarity"`
	Text       string            `json:"text"`
	Payload    map[string]string `json:"payload,omitempty"`
}

// NamespaceStats summarizes one namespace.
type NamespaceStats struct {
	Namespace   string `json:"namespace"`
	VectorCount int    `json:"vector_count"`
}

// Store is the vector persistence interface. Namespaces are opaque
// identifiers; callers never depend on backend naming rules.
type Store interface {
	CreateNamespace(ctx context.Context, namespace string) error
	DeleteNamespace(ctx context.Context, namespace string) error
	ListNamespaces(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// Search returns up to k matches by cosine similarity, descending.
	Search(ctx context.Context, namespace string, vector []float32, k int) ([]Match, error)
	Stats(ctx context.Context, namespace string) (NamespaceStats, error)
	Close() error
}

// maxSearchConcurrency bounds the fan-out of ParallelSearch.
const maxSearchConcurrency = 8

// ParallelSearch queries several namespaces concurrently, one worker per
// namespace. A failing namespace contributes an empty result and a log line;
// it never fails the whole search.
func ParallelSearch(ctx context.Context, s Store, vector []float32, namespaces []string, k int) map[string][]Match {
	results := make([][]Match, len(namespaces))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSearchConcurrency)
	for i, ns := range namespaces {
		g.Go(func() error {
			matches, err := s.Search(ctx, ns, vector, k)
			if err != nil {
				zap.L().Warn("namespace search failed",
					zap.String("namespace", ns),
					zap.Error(err),
				)
				return nil
			}
			results[i] = matches
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	out := make(map[string][]Match, len(namespaces))
	for i, ns := range namespaces {
		if results[i] == nil {
			results[i] = []Match{}
		}
		out[ns] = results[i]
	}
	return out
}
