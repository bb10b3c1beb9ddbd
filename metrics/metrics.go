package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "citest"
)

var (
	Debug                bool = true
	validStatuses             = []types.BatchStatus{types.BatchStatusPassed, types.BatchStatusFailed}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "batches_total",
		Help:      "Count of executed batches",
	}, []string{
		"identifier",
		"run_id",
		"status",
	})

	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "batch_duration_seconds",
		Help:      "Duration of executed batches",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{
		"identifier",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of test runs",
	}, []string{
		"identifier",
		"run_id",
		"result",
	})

	runFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_failures",
		Help:      "Number of failed batches in a run",
	}, []string{
		"identifier",
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of test runs",
	}, []string{
		"identifier",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordBatch counts one recorded batch result
func RecordBatch(identifier string, runID string, status types.BatchStatus, duration time.Duration) {
	if !isValidStatus(status) {
		log.Error("RecordBatch - invalid status", "status", status)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "batches_total",
			"identifier", identifier,
			"run_id", runID,
			"status", status)
	}
	batchesTotal.WithLabelValues(identifier, runID, string(status)).Inc()
	batchDuration.WithLabelValues(identifier).Observe(duration.Seconds())
}

// RecordRun stores the outcome of a finished run
func RecordRun(identifier string, runID string, status types.PassStatus, failures int, duration time.Duration) {
	runResults.WithLabelValues(identifier, runID, string(status)).Set(1)
	runFailures.WithLabelValues(identifier, runID).Set(float64(failures))
	runDuration.WithLabelValues(identifier, runID).Set(duration.Seconds())
}

// WriteTextfile dumps the default registry in the node exporter textfile format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

func isValidStatus(status types.BatchStatus) bool {
	return slices.Contains(validStatuses, status)
}
