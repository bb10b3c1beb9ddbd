package citest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-citest/metrics"
	"github.com/ethereum-optimism/infra/op-citest/types"
)

func TestDefaultMetricsReporter_ReportResults(t *testing.T) {
	tests := []struct {
		name     string
		runID    string
		status   types.PassStatus
		failures int
		want     string
	}{
		{"passed", "reporter-run-1", types.PassStatusPassed, 0,
			`citest_run_failures{identifier="reporter",run_id="reporter-run-1"} 0`},
		{"failed", "reporter-run-2", types.PassStatusFailed, 3,
			`citest_run_failures{identifier="reporter",run_id="reporter-run-2"} 3`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := types.NewSummary(types.NoCommitInfo(), "reporter", tt.runID, time.Now())
			summary.PassStatus = tt.status
			summary.FailureCount = tt.failures

			NewDefaultMetricsReporter().ReportResults(summary, 150*time.Millisecond)

			path := filepath.Join(t.TempDir(), "citest.prom")
			require.NoError(t, metrics.WriteTextfile(path))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.want)
			assert.Contains(t, string(data), `citest_run_results{identifier="reporter",result="`+string(tt.status)+`",run_id="`+tt.runID+`"} 1`)
		})
	}
}
