package model

// Finding is a primary-company candidate reduced to its reportable form.
type Finding struct {
	Text   string `json:"text"`
	Scores Scores `json:"scores"`
}

// ComparisonItem is one benchmark candidate judged against the primary set.
type ComparisonItem struct {
	Text      string `json:"text"`
	Scores    Scores `json:"scores"`
	Narrative string `json:"comparison_with_primary"`
}

// ComparisonReport pairs primary findings with per-benchmark comparison
// items. BenchmarkComparisons is keyed by the benchmark label (namespace with
// the GAP_ decoration stripped); BenchmarkOrder preserves processing order.
type ComparisonReport struct {
	Query                string                      `json:"query"`
	PrimaryFindings      []Finding                   `json:"primary_findings"`
	BenchmarkComparisons map[string][]ComparisonItem `json:"benchmark_comparisons"`
	BenchmarkOrder       []string                    `json:"-"`
	// ModelCalls counts generation-provider narrative calls made while
	// building this report.
	ModelCalls int `json:"model_calls"`
}

// TotalComparisons counts comparison items across all benchmark labels.
func (r ComparisonReport) TotalComparisons() int {
	n := 0
	for _, items := range r.BenchmarkComparisons {
		n += len(items)
	}
	return n
}
