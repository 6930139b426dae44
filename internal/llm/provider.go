// Package llm provides the text generation provider used for score
// refinement, comparison narratives, and gap report synthesis.
package llm

import "context"

// Provider defines the generation operation.
type Provider interface {
	// Generate returns the model's text completion for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}
