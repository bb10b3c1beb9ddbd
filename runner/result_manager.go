package runner

import (
	"time"

	"github.com/ethereum-optimism/infra/op-citest/types"
)

// ResultManager handles the creation and bookkeeping of the run summary.
// Profiles and batch results are append-only once added.
type ResultManager struct{}

// NewResultManager creates a new result manager
func NewResultManager() *ResultManager {
	return &ResultManager{}
}

// CreateSummary creates a properly initialized pending summary
func (rm *ResultManager) CreateSummary(commit types.CommitInfo, identifier, runID string, now time.Time) *types.Summary {
	return types.NewSummary(commit, identifier, runID, now)
}

// AddProfile appends an empty profile result for a loaded document
func (rm *ResultManager) AddProfile(summary *types.Summary, index int, doc *types.ConfigDocument) *types.ProfileResult {
	profile := types.NewProfileResult(index, doc.Path, len(doc.Entries))
	summary.Profiles = append(summary.Profiles, profile)
	return profile
}

// AddBatchResult tags the result with its batch index, appends it to the
// profile and updates the failure counter and interim pass status
func (rm *ResultManager) AddBatchResult(summary *types.Summary, profile *types.ProfileResult, result *types.BatchResult) {
	if result.StatusColor == "" {
		result.StatusColor = types.ColorFor(result.Status)
	}
	profile.Append(result)
	if result.Failed() {
		summary.FailureCount++
		summary.PassStatus = types.PassStatusPendingFailed
	}
}

// RecordPrerequisite stores the prerequisite outcome
func (rm *ResultManager) RecordPrerequisite(summary *types.Summary, outcome types.PrerequisiteOutcome) {
	summary.Prerequisite = outcome
}

// RecordFault stores the description of the fault that aborted the run
func (rm *ResultManager) RecordFault(summary *types.Summary, command string, err error) {
	summary.CriticalErrors = command + ": " + err.Error()
}

// Finalize recomputes the failure count from the recorded results and sets the
// final pass status. The run passes only if it was not aborted, the
// prerequisite did not fail and no batch failed.
func (rm *ResultManager) Finalize(summary *types.Summary, aborted bool) {
	failures := 0
	for _, p := range summary.Profiles {
		failures += p.Failures()
	}
	summary.FailureCount = failures

	if !aborted && summary.Prerequisite != types.PrerequisiteFailed && failures == 0 {
		summary.PassStatus = types.PassStatusPassed
	} else {
		summary.PassStatus = types.PassStatusFailed
	}
}
