package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/gap-assessment/internal/company"
	"github.com/sells-group/gap-assessment/internal/config"
	"github.com/sells-group/gap-assessment/internal/events"
	"github.com/sells-group/gap-assessment/internal/llm"
	"github.com/sells-group/gap-assessment/internal/model"
)

// narrativeTextPrefix caps passage text sent to the model narrative prompt.
const narrativeTextPrefix = 200

// Comparator pairs benchmark candidates against the primary set. Narratives
// are heuristic by default; the model path is reserved for a small number of
// critical comparisons behind a config flag.
type Comparator struct {
	llm    llm.Provider
	cfg    config.ComparisonConfig
	events *events.Sink
}

// NewComparator wires the comparator. The llm provider may be nil when model
// narratives are disabled.
func NewComparator(provider llm.Provider, cfg config.ComparisonConfig, sink *events.Sink) *Comparator {
	return &Comparator{llm: provider, cfg: cfg, events: sink}
}

// Compare builds the comparison report from a search result. Benchmark
// namespaces are processed in the result's enumeration order; a global budget
// of max_comparisons per namespace caps total output.
func (c *Comparator) Compare(ctx context.Context, query string, result *model.SearchResult) *model.ComparisonReport {
	report := &model.ComparisonReport{
		Query:                query,
		PrimaryFindings:      make([]model.Finding, 0, len(result.Primary)),
		BenchmarkComparisons: make(map[string][]model.ComparisonItem, len(result.Benchmarks)),
	}

	for _, cand := range result.Primary {
		report.PrimaryFindings = append(report.PrimaryFindings, model.Finding{
			Text:   cand.Text,
			Scores: cand.Scores(),
		})
	}

	globalCap := c.cfg.MaxComparisons * len(result.Benchmarks)
	comparisonCount := 0
	narrativeCalls := 0

	for _, ns := range result.BenchmarkOrder {
		label := company.Label(ns)
		report.BenchmarkOrder = append(report.BenchmarkOrder, label)
		report.BenchmarkComparisons[label] = []model.ComparisonItem{}

		candidates := result.Benchmarks[ns]
		if len(candidates) > c.cfg.MaxComparisons {
			candidates = candidates[:c.cfg.MaxComparisons]
		}

		for _, cand := range candidates {
			// Low-relevance skips do not consume budget.
			if c.cfg.SkipLowScores && cand.Relevance < c.cfg.MinRelevance {
				continue
			}

			item := model.ComparisonItem{
				Text:      cand.Text,
				Scores:    cand.Scores(),
				Narrative: c.narrative(ctx, cand, result.Primary, &narrativeCalls),
			}
			report.BenchmarkComparisons[label] = append(report.BenchmarkComparisons[label], item)
			comparisonCount++

			if comparisonCount >= globalCap {
				break
			}
		}
		if comparisonCount >= globalCap {
			break
		}
	}

	report.ModelCalls = narrativeCalls
	c.events.Comparison(query, comparisonCount)
	return report
}

// narrative picks the model path only for critical candidates within its own
// small budget, falling back to the heuristic on any failure.
func (c *Comparator) narrative(ctx context.Context, cand model.Candidate, primary []model.Candidate, narrativeCalls *int) string {
	if c.cfg.ModelNarratives && c.llm != nil &&
		cand.Relevance >= c.cfg.CriticalRelevance &&
		*narrativeCalls < c.cfg.MaxModelNarratives {
		*narrativeCalls++
		if text, ok := c.modelNarrative(ctx, cand, primary); ok {
			return text
		}
	}
	return heuristicNarrative(cand, primary)
}

// heuristicNarrative compares the candidate's similarity against the first
// two primary candidates and renders one of three templated sentences.
func heuristicNarrative(cand model.Candidate, primary []model.Candidate) string {
	top := primary
	if len(top) > 2 {
		top = top[:2]
	}

	maxScore, minScore := 0.0, 1.0
	for _, p := range top {
		if p.Similarity > maxScore {
			maxScore = p.Similarity
		}
		if p.Similarity < minScore {
			minScore = p.Similarity
		}
	}

	switch {
	case cand.Similarity > maxScore:
		return fmt.Sprintf("Benchmark finding shows stronger alignment (score: %.2f) compared to primary company approach.", cand.Similarity)
	case cand.Similarity < minScore:
		return fmt.Sprintf("Benchmark finding indicates potential gap (score: %.2f) compared to primary company approach.", cand.Similarity)
	default:
		return fmt.Sprintf("Benchmark finding is similar to primary company approach (score: %.2f).", cand.Similarity)
	}
}

func (c *Comparator) modelNarrative(ctx context.Context, cand model.Candidate, primary []model.Candidate) (string, bool) {
	benchText := textPrefix(cand.Text, narrativeTextPrefix)

	var primaryLines []string
	for i, p := range primary {
		if i >= 2 {
			break
		}
		primaryLines = append(primaryLines, "- "+textPrefix(p.Text, narrativeTextPrefix))
	}

	prompt := fmt.Sprintf(`Compare this benchmark finding with the primary company findings:

Benchmark Finding: %s

Primary Findings:
%s

Provide a brief comparison (2-3 sentences) highlighting differences or gaps.`,
		benchText, strings.Join(primaryLines, "\n"))

	resp, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		zap.L().Debug("model narrative failed, using heuristic", zap.Error(err))
		return "", false
	}
	return textPrefix(resp, 500), true
}
