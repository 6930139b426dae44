// Package rag implements the retrieval-and-scoring pipeline: namespace
// fan-out search, tiered scoring with a bounded model-refinement budget, and
// primary-vs-benchmark comparison.
package rag

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/gap-assessment/internal/config"
	"github.com/sells-group/gap-assessment/internal/embed"
	"github.com/sells-group/gap-assessment/internal/events"
	"github.com/sells-group/gap-assessment/internal/llm"
	"github.com/sells-group/gap-assessment/internal/model"
	"github.com/sells-group/gap-assessment/internal/vectorstore"
)

// scoringTextPrefix caps the passage text sent to the scoring prompt.
const scoringTextPrefix = 500

// Engine executes a query against a primary namespace and a set of benchmark
// namespaces, scoring candidates with the similarity heuristic and a capped
// number of model refinements.
type Engine struct {
	store    vectorstore.Store
	embedder embed.Provider
	llm      llm.Provider
	cfg      config.RAGConfig
	events   *events.Sink
}

// NewEngine wires the engine. The llm provider may be nil when model scoring
// is disabled.
func NewEngine(store vectorstore.Store, embedder embed.Provider, provider llm.Provider, cfg config.RAGConfig, sink *events.Sink) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
		llm:      provider,
		cfg:      cfg,
		events:   sink,
	}
}

// Search runs the full retrieval-and-scoring pass. Embedding failure is the
// only error that aborts the call; it is reported in the result rather than
// returned, so callers always get a well-formed SearchResult.
func (e *Engine) Search(ctx context.Context, query, primaryNS string, benchmarkNS []string) *model.SearchResult {
	result := &model.SearchResult{
		Primary:        []model.Candidate{},
		Benchmarks:     make(map[string][]model.Candidate, len(benchmarkNS)),
		BenchmarkOrder: append([]string(nil), benchmarkNS...),
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		zap.L().Error("query embedding failed", zap.Error(err))
		result.Err = err.Error()
		return result
	}

	primaryMatches, err := e.store.Search(ctx, primaryNS, vector, e.cfg.TopK)
	if err != nil {
		// Isolated like any single-namespace failure: empty list, logged.
		zap.L().Warn("primary namespace search failed",
			zap.String("namespace", primaryNS),
			zap.Error(err),
		)
		primaryMatches = nil
	}
	benchmarkMatches := vectorstore.ParallelSearch(ctx, e.store, vector, benchmarkNS, e.cfg.TopK)

	// Primary and benchmark refinement budgets are separate; the benchmark
	// budget is shared across all namespaces and consumed in enumeration
	// order.
	modelCalls := 0
	primaryScored := 0
	result.Primary = e.scoreMatches(ctx, query, primaryNS, primaryMatches, true, &primaryScored, &modelCalls)

	benchmarkScored := 0
	for _, ns := range benchmarkNS {
		result.Benchmarks[ns] = e.scoreMatches(ctx, query, ns, benchmarkMatches[ns], false, &benchmarkScored, &modelCalls)
	}

	result.ModelCalls = modelCalls
	e.events.IndexUsage(query, append([]string{primaryNS}, benchmarkNS...), result.TotalCandidates(), modelCalls)
	return result
}

// scoreMatches applies the tiered scoring algorithm to one namespace's
// matches: similarity prefilter, heuristic scores, selective model
// refinement, quality filter.
func (e *Engine) scoreMatches(ctx context.Context, query, namespace string, matches []vectorstore.Match, primary bool, scored, modelCalls *int) []model.Candidate {
	out := []model.Candidate{}
	for _, m := range matches {
		if m.Similarity < e.cfg.SimilarityThreshold {
			continue
		}

		cand := model.Candidate{
			ID:         m.ID,
			Namespace:  namespace,
			Similarity: m.Similarity,
			Text:       m.Text,
			Primary:    primary,
		}
		heuristic := model.ClampScore(int(math.Floor(m.Similarity*5)) + 1)
		cand.Groundedness = heuristic
		cand.Relevance = heuristic

		if e.cfg.UseModelScoring && e.llm != nil &&
			*scored < e.cfg.MaxModelScoredResults &&
			m.Similarity >= e.cfg.ModelScoreFloor {
			*scored++
			*modelCalls++
			if g, r, ok := e.refineScores(ctx, query, m.Text); ok {
				cand.Groundedness = g
				cand.Relevance = r
			}
		}

		if cand.Groundedness >= e.cfg.MinGroundedness && cand.Relevance >= e.cfg.MinRelevance {
			out = append(out, cand)
		}
	}
	return out
}

// refineScores asks the model for a combined groundedness,relevance rating.
// Any failure, from the call itself to a malformed response, leaves the
// heuristic score in place.
func (e *Engine) refineScores(ctx context.Context, query, text string) (groundedness, relevance int, ok bool) {
	text = textPrefix(text, scoringTextPrefix)

	prompt := fmt.Sprintf(`Rate this text excerpt for both groundedness and relevance on a scale of 1-5:
Query: %s
Text: %s

Respond with ONLY two numbers separated by a comma: groundedness,relevance
Where:
- Groundedness (1-5): How well is the result supported by the source?
- Relevance (1-5): How relevant is this to the query?

Example response: 4,5`, query, text)

	resp, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		zap.L().Debug("model scoring failed, keeping heuristic", zap.Error(err))
		return 0, 0, false
	}

	parts := strings.Split(strings.TrimSpace(resp), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	g, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	r, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return model.ClampScore(g), model.ClampScore(r), true
}

// textPrefix returns the first n runes of s, never splitting a multi-byte
// rune at the boundary.
func textPrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
