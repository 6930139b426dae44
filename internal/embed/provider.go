// Package embed turns text into vectors via an embeddings API.
package embed

import "context"

// Provider defines the embedding operations.
type Provider interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the vector size produced by the model.
	Dimension() int
}
