package types

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// PassStatus is the overall status of a run
type PassStatus string

const (
	PassStatusPending       PassStatus = "pending"
	PassStatusPendingFailed PassStatus = "pending/failed"
	PassStatusPassed        PassStatus = "passed"
	PassStatusFailed        PassStatus = "failed"
)

// PrerequisiteOutcome is the result of the optional smoke test run before any profile
type PrerequisiteOutcome string

const (
	PrerequisiteAbsent PrerequisiteOutcome = ""
	PrerequisitePassed PrerequisiteOutcome = "passed"
	PrerequisiteFailed PrerequisiteOutcome = "failed"
)

// DateTimeLayout is the layout of the summary's datetime field
const DateTimeLayout = "02/01/2006, 15:04:05"

// NotAvailable is the sentinel used when commit metadata cannot be read
const NotAvailable = "n/a"

// CommitInfo describes the HEAD commit of the repository under test
type CommitInfo struct {
	Hash   string `json:"hash"`
	Author string `json:"author"`
	Date   string `json:"date"`
	Name   string `json:"name"`
}

// NoCommitInfo returns commit metadata with every field set to the sentinel value
func NoCommitInfo() CommitInfo {
	return CommitInfo{
		Hash:   NotAvailable,
		Author: NotAvailable,
		Date:   NotAvailable,
		Name:   NotAvailable,
	}
}

// Summary is the top-level run report. It is persisted after every batch.
type Summary struct {
	Commit         CommitInfo
	DateTime       time.Time
	PassStatus     PassStatus
	Identifier     string
	RunID          string
	Profiles       []*ProfileResult
	FailureCount   int
	Prerequisite   PrerequisiteOutcome
	CriticalErrors string
	Extra          map[string]any // Strategy additions, flattened at the top level
}

// NewSummary creates a pending summary with no profiles
func NewSummary(commit CommitInfo, identifier, runID string, now time.Time) *Summary {
	return &Summary{
		Commit:     commit,
		DateTime:   now,
		PassStatus: PassStatusPending,
		Identifier: identifier,
		RunID:      runID,
		Profiles:   make([]*ProfileResult, 0),
	}
}

// Passed reports whether the run has finished successfully
func (s *Summary) Passed() bool {
	return s.PassStatus == PassStatusPassed
}

// FileName returns the summary file name derived from the identifier
func (s *Summary) FileName() string {
	return SummaryFileName(s.Identifier)
}

// SetExtra records a top-level strategy field
func (s *Summary) SetExtra(key string, value any) {
	if s.Extra == nil {
		s.Extra = make(map[string]any)
	}
	s.Extra[key] = value
}

// TotalBatches returns the number of batch results across all profiles
func (s *Summary) TotalBatches() int {
	n := 0
	for _, p := range s.Profiles {
		n += len(p.Results)
	}
	return n
}

// MarshalJSON writes the fixed summary fields, the optional ones when set, and Extra.
func (s *Summary) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+10)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["commit"] = s.Commit
	out["datetime"] = s.DateTime.Format(DateTimeLayout)
	out["pass_status"] = s.PassStatus
	out["identifier"] = s.Identifier
	out["run_id"] = s.RunID
	out["profiles"] = s.Profiles
	out["failure_count"] = s.FailureCount
	if s.Prerequisite != PrerequisiteAbsent {
		out["dummy_run_status"] = s.Prerequisite
	}
	if s.CriticalErrors != "" {
		out["critical_errors"] = s.CriticalErrors
	}
	return json.Marshal(out)
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]+`)

// SanitizeIdentifier collapses runs of non-alphanumeric characters to a single
// underscore and trims underscores from both ends
func SanitizeIdentifier(identifier string) string {
	return strings.Trim(nonAlphanumeric.ReplaceAllString(identifier, "_"), "_")
}

// SummaryFileName returns the summary file name for an identifier
func SummaryFileName(identifier string) string {
	return "summary_" + SanitizeIdentifier(identifier) + ".json"
}
