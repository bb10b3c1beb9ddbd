package citest

import (
	"bytes"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-citest/types"
)

func newTestFormatter() (*ConsoleResultFormatter, *bytes.Buffer) {
	var buf bytes.Buffer
	return &ConsoleResultFormatter{
		logger: log.NewLogger(log.DiscardHandler()),
		out:    &buf,
	}, &buf
}

// Helper function to create a sample summary for formatting
func createSampleSummary() *types.Summary {
	summary := types.NewSummary(types.NoCommitInfo(), "render smoke", "test-run-1", time.Now())

	passed := types.NewBatchResult("echo hello", types.BatchStatusPassed)
	passed.Duration = 50 * time.Millisecond
	failed := types.NewBatchResult("compare frame.png", types.BatchStatusFailed)
	failed.Duration = 75 * time.Millisecond
	failed.SetDetail("error", "reference file missing\nsecond line")

	profile := types.NewProfileResult(0, "/work/profiles/render.yaml", 3)
	profile.Append(passed)
	profile.Append(failed)

	summary.Profiles = append(summary.Profiles, profile)
	summary.FailureCount = 1
	summary.PassStatus = types.PassStatusFailed
	return summary
}

func TestConsoleResultFormatter_FormatResults(t *testing.T) {
	formatter, buf := newTestFormatter()

	err := formatter.FormatResults(createSampleSummary(), 135*time.Millisecond)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "render smoke")
	assert.Contains(t, out, "0: render.yaml")
	assert.Contains(t, out, "2/3")
	assert.Contains(t, out, "echo hello")
	assert.Contains(t, out, "compare frame.png")
	assert.Contains(t, out, "reference file missing")
	assert.NotContains(t, out, "second line")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "Run test-run-1 finished: failed (1 of 2 batches failed)")
}

func TestConsoleResultFormatter_FormatResults_EmptySummary(t *testing.T) {
	formatter, buf := newTestFormatter()
	summary := types.NewSummary(types.NoCommitInfo(), "empty", "empty-run", time.Now())
	summary.PassStatus = types.PassStatusPassed

	require.NoError(t, formatter.FormatResults(summary, 100*time.Millisecond))
	assert.Contains(t, buf.String(), "Run empty-run finished: passed (0 of 0 batches failed)")
}

func TestConsoleResultFormatter_FormatResults_Prerequisite(t *testing.T) {
	formatter, buf := newTestFormatter()
	summary := types.NewSummary(types.NoCommitInfo(), "gated", "gated-run", time.Now())
	summary.Prerequisite = types.PrerequisiteFailed
	summary.PassStatus = types.PassStatusFailed

	require.NoError(t, formatter.FormatResults(summary, time.Second))
	assert.Contains(t, buf.String(), "prerequisite")
	assert.Contains(t, buf.String(), "✗ fail")
}
