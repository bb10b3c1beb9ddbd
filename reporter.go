package citest

import (
	"time"

	"github.com/ethereum-optimism/infra/op-citest/metrics"
	"github.com/ethereum-optimism/infra/op-citest/types"
)

// MetricsReporter is responsible for reporting metrics from run summaries.
type MetricsReporter interface {
	ReportResults(summary *types.Summary, duration time.Duration)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults reports the run outcome to the metrics registry.
func (r *DefaultMetricsReporter) ReportResults(summary *types.Summary, duration time.Duration) {
	metrics.RecordRun(
		summary.Identifier,
		summary.RunID,
		summary.PassStatus,
		summary.FailureCount,
		duration,
	)
}
