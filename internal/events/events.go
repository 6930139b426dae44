// Package events emits structured pipeline events. Emission is
// fire-and-forget: a nil or misconfigured sink never fails a caller.
package events

import "go.uber.org/zap"

// Sink writes events through a zap logger. The zero value and nil are both
// usable; a nil logger falls back to the global one.
type Sink struct {
	logger *zap.Logger
}

// NewSink builds a sink on the given logger. Pass nil to use zap.L().
func NewSink(logger *zap.Logger) *Sink {
	return &Sink{logger: logger}
}

func (s *Sink) log() *zap.Logger {
	if s == nil || s.logger == nil {
		return zap.L()
	}
	return s.logger
}

// IndexUsage records one retrieval pass over a set of namespaces.
func (s *Sink) IndexUsage(query string, namespaces []string, resultCount, modelCalls int) {
	s.log().Info("index_usage",
		zap.String("query", query),
		zap.Strings("namespaces", namespaces),
		zap.Int("result_count", resultCount),
		zap.Int("model_calls", modelCalls),
	)
}

// Comparison records one comparator pass.
func (s *Sink) Comparison(query string, comparisonCount int) {
	s.log().Info("comparison",
		zap.String("query", query),
		zap.Int("comparison_count", comparisonCount),
	)
}

// Extraction records the outcome of one extraction run.
func (s *Sink) Extraction(company string, chunks int, err error) {
	if err != nil {
		s.log().Warn("extraction",
			zap.String("company", company),
			zap.Int("chunks", chunks),
			zap.Error(err),
		)
		return
	}
	s.log().Info("extraction",
		zap.String("company", company),
		zap.Int("chunks", chunks),
	)
}

// AgentAction records an orchestrator state transition.
func (s *Sink) AgentAction(action, detail string) {
	s.log().Info("agent_action",
		zap.String("action", action),
		zap.String("detail", detail),
	)
}
