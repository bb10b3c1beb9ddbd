package runner

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultManager_AddBatchResult(t *testing.T) {
	rm := NewResultManager()
	summary := rm.CreateSummary(types.NoCommitInfo(), "id", "run", time.Now())
	require.Equal(t, types.PassStatusPending, summary.PassStatus)

	doc := &types.ConfigDocument{Path: "/tmp/p.json", Entries: make([]types.CommandEntry, 3)}
	profile := rm.AddProfile(summary, 0, doc)
	require.Len(t, summary.Profiles, 1)
	assert.Equal(t, 3, profile.CommandCount)
	assert.Equal(t, "/tmp/p.json", profile.Config)

	rm.AddBatchResult(summary, profile, types.NewBatchResult("a", types.BatchStatusPassed))
	assert.Equal(t, types.PassStatusPending, summary.PassStatus)
	assert.Equal(t, 0, summary.FailureCount)

	// A result without color gets the one matching its status
	failed := &types.BatchResult{Command: "b", Status: types.BatchStatusFailed}
	rm.AddBatchResult(summary, profile, failed)
	assert.Equal(t, types.PassStatusPendingFailed, summary.PassStatus)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Equal(t, types.StatusColorRed, failed.StatusColor)
	assert.Equal(t, 1, failed.Index)

	// A later pass does not clear the interim failure
	rm.AddBatchResult(summary, profile, types.NewBatchResult("c", types.BatchStatusPassed))
	assert.Equal(t, types.PassStatusPendingFailed, summary.PassStatus)
}

func TestResultManager_Finalize(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []types.BatchStatus
		prerequisite types.PrerequisiteOutcome
		aborted      bool
		want         types.PassStatus
		failures     int
	}{
		{name: "no batches", want: types.PassStatusPassed},
		{name: "all passed", statuses: []types.BatchStatus{"passed", "passed"}, want: types.PassStatusPassed},
		{name: "one failed", statuses: []types.BatchStatus{"passed", "failed"}, want: types.PassStatusFailed, failures: 1},
		{name: "aborted", statuses: []types.BatchStatus{"passed"}, aborted: true, want: types.PassStatusFailed},
		{name: "prerequisite failed", prerequisite: types.PrerequisiteFailed, want: types.PassStatusFailed},
		{name: "prerequisite passed", prerequisite: types.PrerequisitePassed, statuses: []types.BatchStatus{"passed"}, want: types.PassStatusPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := NewResultManager()
			summary := rm.CreateSummary(types.NoCommitInfo(), "id", "run", time.Now())
			rm.RecordPrerequisite(summary, tt.prerequisite)
			profile := rm.AddProfile(summary, 0, &types.ConfigDocument{Path: "p"})
			for _, s := range tt.statuses {
				rm.AddBatchResult(summary, profile, types.NewBatchResult("cmd", s))
			}
			// A stale counter is recomputed from the results
			summary.FailureCount = 42

			rm.Finalize(summary, tt.aborted)
			assert.Equal(t, tt.want, summary.PassStatus)
			assert.Equal(t, tt.failures, summary.FailureCount)
		})
	}
}

func TestResultManager_RecordFault(t *testing.T) {
	rm := NewResultManager()
	summary := rm.CreateSummary(types.NoCommitInfo(), "id", "run", time.Now())
	rm.RecordFault(summary, "./app --x", errors.New("segfault"))
	assert.Equal(t, "./app --x: segfault", summary.CriticalErrors)
}
