package model

import "time"

// AssessmentStatus reports how an assessment run terminated.
type AssessmentStatus string

const (
	StatusSuccess       AssessmentStatus = "success"
	StatusQuotaExceeded AssessmentStatus = "quota_exceeded"
)

// Gap is one identified gap in the synthesized report.
type Gap struct {
	GapID           string   `json:"gap_id"`
	Description     string   `json:"description"`
	CurrentState    string   `json:"current_state"`
	TargetState     string   `json:"target_state"`
	RiskScore       int      `json:"risk_score"`
	Priority        string   `json:"priority"`
	Recommendations []string `json:"recommendations"`
	BenchmarkSource string   `json:"benchmark_source"`
}

// GapSummary aggregates the synthesized gaps.
type GapSummary struct {
	TotalGaps        int `json:"total_gaps"`
	CriticalGaps     int `json:"critical_gaps"`
	HighPriorityGaps int `json:"high_priority_gaps"`
	OverallRiskScore int `json:"overall_risk_score"`
}

// GapReport is the synthesized assessment. When the model response could not
// be parsed by any strategy, ParseError is set and RawResponse preserves the
// original text; the raw output is never discarded.
type GapReport struct {
	Gaps        []Gap      `json:"gaps"`
	Summary     GapSummary `json:"summary"`
	RawResponse string     `json:"raw_response,omitempty"`
	ParseError  string     `json:"parse_error,omitempty"`
}

// Metrics holds per-run call counters and timing. Reset at the start of each
// assessment and finalized on every exit path.
type Metrics struct {
	GenerationCalls   int       `json:"generation_calls"`
	SearchResultCount int       `json:"search_results_count"`
	ComparisonCount   int       `json:"comparison_count"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	LatencySeconds    float64   `json:"latency_seconds"`
}

// Reset clears counters and starts the run timer.
func (m *Metrics) Reset(now time.Time) {
	*m = Metrics{StartTime: now}
}

// Finalize stamps the end time and computes latency.
func (m *Metrics) Finalize(now time.Time) {
	m.EndTime = now
	m.LatencySeconds = now.Sub(m.StartTime).Seconds()
}

// AssessmentResult is the complete output of one assessment run. On quota
// failure the result keeps whatever search and comparison output was already
// computed, along with finalized metrics.
type AssessmentResult struct {
	Query      string            `json:"query"`
	Status     AssessmentStatus  `json:"status"`
	Assessment *GapReport        `json:"assessment,omitempty"`
	Comparison *ComparisonReport `json:"comparison,omitempty"`
	Search     *SearchResult     `json:"search_results,omitempty"`
	Error      string            `json:"error,omitempty"`
	Message    string            `json:"message,omitempty"`
	Metrics    Metrics           `json:"metrics"`
}
