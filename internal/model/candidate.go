// Package model defines the shared data types for the gap assessment pipeline.
package model

// Score bounds for groundedness and relevance ratings.
const (
	MinScore = 1
	MaxScore = 5
)

// Candidate is one retrieved passage from a company namespace, carrying the
// vector-store similarity plus the 1-5 quality ratings assigned by the
// retrieval engine (heuristic or model-refined).
type Candidate struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	// Similarity is the normalized vector-store score in [0,1]; higher is closer.
	Similarity   float64 `json:"similarity"`
	Text         string  `json:"text"`
	Groundedness int     `json:"groundedness"`
	Relevance    int     `json:"relevance"`
	Primary      bool    `json:"is_primary"`
}

// Scores bundles the three scores attached to a finding or comparison item.
type Scores struct {
	Groundedness int     `json:"groundedness"`
	Relevance    int     `json:"relevance"`
	Similarity   float64 `json:"similarity"`
}

// Scores returns the candidate's score triple.
func (c Candidate) Scores() Scores {
	return Scores{
		Groundedness: c.Groundedness,
		Relevance:    c.Relevance,
		Similarity:   c.Similarity,
	}
}

// ClampScore forces a rating into the [MinScore, MaxScore] range. Scores
// always pass through here regardless of whether they came from the
// similarity heuristic or a model response.
func ClampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// SearchResult is the output of one retrieval-and-scoring pass.
//
// Benchmarks is keyed by namespace; BenchmarkOrder preserves the caller's
// namespace enumeration order so downstream comparison output stays
// deterministic. Err is set only when query embedding fails, in which case
// both result sets are empty.
type SearchResult struct {
	Primary        []Candidate            `json:"primary"`
	Benchmarks     map[string][]Candidate `json:"benchmarks"`
	BenchmarkOrder []string               `json:"-"`
	// ModelCalls counts generation-provider refinement calls made during
	// this search (primary budget + shared benchmark budget).
	ModelCalls int    `json:"model_calls"`
	Err        string `json:"error,omitempty"`
}

// TotalCandidates counts candidates across the primary and all benchmark sets.
func (r SearchResult) TotalCandidates() int {
	n := len(r.Primary)
	for _, cands := range r.Benchmarks {
		n += len(cands)
	}
	return n
}
