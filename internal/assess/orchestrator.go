// Package assess sequences one assessment run: extraction freshness gate,
// retrieval, comparison, and model-based gap synthesis, with per-run metrics.
package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gap-assessment/internal/company"
	"github.com/sells-group/gap-assessment/internal/events"
	"github.com/sells-group/gap-assessment/internal/extract"
	"github.com/sells-group/gap-assessment/internal/llm"
	"github.com/sells-group/gap-assessment/internal/model"
	"github.com/sells-group/gap-assessment/internal/resilience"
)

// Searcher is the retrieval-and-scoring contract consumed by the orchestrator.
type Searcher interface {
	Search(ctx context.Context, query, primaryNS string, benchmarkNS []string) *model.SearchResult
}

// Comparer is the comparison contract consumed by the orchestrator.
type Comparer interface {
	Compare(ctx context.Context, query string, result *model.SearchResult) *model.ComparisonReport
}

// Extraction is the go/no-go gate plus the bulk extraction entry point. A
// failed extraction never blocks the run; retrieval proceeds against
// possibly-stale data.
type Extraction interface {
	ShouldExtract(ctx context.Context, c company.Company, force bool) (bool, error)
	ExtractAll(ctx context.Context, force bool) ([]extract.Result, error)
}

// Orchestrator runs the linear assessment state machine. There is no branching
// back: extraction gate, search, compare, synthesize, done. Quota exhaustion
// at search or synthesis terminates the run with a structured partial result.
type Orchestrator struct {
	registry   *company.Registry
	extraction Extraction
	searcher   Searcher
	comparer   Comparer
	llm        llm.Provider
	events     *events.Sink
	now        func() time.Time
}

// NewOrchestrator wires the assessment pipeline.
func NewOrchestrator(
	registry *company.Registry,
	extraction Extraction,
	searcher Searcher,
	comparer Comparer,
	provider llm.Provider,
	sink *events.Sink,
) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		extraction: extraction,
		searcher:   searcher,
		comparer:   comparer,
		llm:        provider,
		events:     sink,
		now:        time.Now,
	}
}

// Run executes one assessment. The returned result always carries finalized
// metrics, on every exit path. A non-nil error is returned only for synthesis
// failures that are not quota-related; quota exhaustion is reported in the
// result status instead.
func (o *Orchestrator) Run(ctx context.Context, query string, forceExtraction bool) (*model.AssessmentResult, error) {
	result := &model.AssessmentResult{Query: query}
	result.Metrics.Reset(o.now())

	o.runExtractionGate(ctx, forceExtraction)

	search := o.searcher.Search(ctx, query, o.registry.Primary.Namespace(), o.registry.BenchmarkNamespaces())
	result.Search = search
	result.Metrics.SearchResultCount = search.TotalCandidates()
	result.Metrics.GenerationCalls += search.ModelCalls

	if search.Err != "" {
		result.Status = model.StatusQuotaExceeded
		result.Error = search.Err
		result.Message = "Cannot perform search due to API quota limits. Please try again later."
		result.Metrics.Finalize(o.now())
		return result, nil
	}

	comparison := o.comparer.Compare(ctx, query, search)
	result.Comparison = comparison
	result.Metrics.ComparisonCount = comparison.TotalComparisons()
	result.Metrics.GenerationCalls += comparison.ModelCalls

	assessment, err := o.synthesize(ctx, query, comparison)
	if err != nil {
		result.Metrics.Finalize(o.now())
		if resilience.IsQuota(err) {
			result.Status = model.StatusQuotaExceeded
			result.Error = "API quota exceeded during assessment generation"
			result.Message = "Search completed but assessment generation failed due to quota limits."
			return result, nil
		}
		return result, eris.Wrap(err, "assess: synthesis")
	}
	result.Metrics.GenerationCalls++

	result.Assessment = assessment
	result.Status = model.StatusSuccess
	result.Metrics.Finalize(o.now())
	return result, nil
}

// runExtractionGate decides whether fresh data is needed and, if so, runs
// extraction for all companies. Every failure here is logged and swallowed.
func (o *Orchestrator) runExtractionGate(ctx context.Context, force bool) {
	should, err := o.extraction.ShouldExtract(ctx, o.registry.Primary, force)
	if err != nil {
		zap.L().Warn("extraction gate check failed, skipping extraction", zap.Error(err))
		return
	}
	if !should {
		o.events.AgentAction("extraction_skipped", o.registry.Primary.Key)
		return
	}

	o.events.AgentAction("extraction_check", fmt.Sprintf("force=%t", force))
	if _, err := o.extraction.ExtractAll(ctx, force); err != nil {
		zap.L().Warn("extraction failed, proceeding with existing data", zap.Error(err))
		return
	}
	o.events.AgentAction("extraction_complete", o.registry.Primary.Key)
}

// synthesize builds the gap report from the comparison via one model call.
// Parse failures never discard the raw model output: the report carries an
// explicit parse_error marker plus the original text.
func (o *Orchestrator) synthesize(ctx context.Context, query string, comparison *model.ComparisonReport) (*model.GapReport, error) {
	prompt, err := synthesisPrompt(query, comparison)
	if err != nil {
		return nil, err
	}

	resp, err := o.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	report := parseAssessment(resp)
	return report, nil
}

// synthesisPrompt renders the query, primary findings, and benchmark
// comparisons into a single structured-output prompt.
func synthesisPrompt(query string, comparison *model.ComparisonReport) (string, error) {
	findings, err := json.MarshalIndent(comparison.PrimaryFindings, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "assess: marshal findings")
	}
	benchmarks, err := json.MarshalIndent(comparison.BenchmarkComparisons, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "assess: marshal comparisons")
	}

	return fmt.Sprintf(`You are an expert gap assessment consultant specializing in tax technology and compliance digitization.

Based on the following comparison data, provide a comprehensive gap assessment:

Query: %s

Primary Company Findings:
%s

Benchmark Comparisons:
%s

Provide a gap assessment with:
1. Identified gaps (with risk scores 1-10)
2. Current state assessment
3. Target state (based on benchmarks)
4. Recommendations
5. Priority levels (Critical/High/Medium/Low)

Format as JSON with the following structure:
{
  "gaps": [
    {
      "gap_id": "GAP-001",
      "description": "...",
      "current_state": "...",
      "target_state": "...",
      "risk_score": 1-10,
      "priority": "Critical|High|Medium|Low",
      "recommendations": ["..."],
      "benchmark_source": "..."
    }
  ],
  "summary": {
    "total_gaps": 0,
    "critical_gaps": 0,
    "high_priority_gaps": 0,
    "overall_risk_score": 1-10
  }
}`, query, findings, benchmarks), nil
}

// parseAssessment runs the multi-strategy JSON extraction over the model
// response and falls back to a marked empty report.
func parseAssessment(resp string) *model.GapReport {
	report := &model.GapReport{
		Gaps:        []model.Gap{},
		RawResponse: resp,
	}

	raw, err := llm.ExtractJSON(resp)
	if err != nil {
		report.ParseError = "Failed to parse assessment response"
		return report
	}

	var parsed model.GapReport
	if err := json.Unmarshal(raw, &parsed); err != nil {
		report.ParseError = "Failed to parse assessment response"
		return report
	}

	report.Gaps = parsed.Gaps
	if report.Gaps == nil {
		report.Gaps = []model.Gap{}
	}
	report.Summary = parsed.Summary
	return report
}
