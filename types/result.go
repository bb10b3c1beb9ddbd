package types

import (
	"encoding/json"
	"time"
)

// BatchStatus represents the outcome of a single command
type BatchStatus string

const (
	BatchStatusPassed BatchStatus = "passed"
	BatchStatusFailed BatchStatus = "failed"
)

// StatusColor is a display hint attached to every batch result
type StatusColor string

const (
	StatusColorGreen StatusColor = "green"
	StatusColorRed   StatusColor = "red"
)

// ColorFor returns the display color conventionally used for a status
func ColorFor(status BatchStatus) StatusColor {
	if status == BatchStatusPassed {
		return StatusColorGreen
	}
	return StatusColorRed
}

// BatchResult captures the outcome of one command within a profile
type BatchResult struct {
	Index         int
	Command       string
	Status        BatchStatus
	StatusColor   StatusColor
	ConsoleOutput string
	Duration      time.Duration
	TimedOut      bool
	Details       map[string]any // Strategy-specific diagnostics, flattened into the JSON object
}

// NewBatchResult creates a result with the color hint matching the status
func NewBatchResult(command string, status BatchStatus) *BatchResult {
	return &BatchResult{
		Command:     command,
		Status:      status,
		StatusColor: ColorFor(status),
	}
}

// Failed reports whether the batch counts as a failure
func (r *BatchResult) Failed() bool {
	return r.Status == BatchStatusFailed
}

// SetDetail records a strategy-specific field
func (r *BatchResult) SetDetail(key string, value any) {
	if r.Details == nil {
		r.Details = make(map[string]any)
	}
	r.Details[key] = value
}

// MarshalJSON flattens Details next to the fixed fields. Fixed fields win on key collisions.
func (r *BatchResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Details)+7)
	for k, v := range r.Details {
		out[k] = v
	}
	out["index"] = r.Index
	out["command"] = r.Command
	out["status"] = r.Status
	out["status_color"] = r.StatusColor
	out["console_output"] = r.ConsoleOutput
	out["duration_ms"] = r.Duration.Milliseconds()
	if r.TimedOut {
		out["timed_out"] = true
	}
	return json.Marshal(out)
}

// ProfileResult aggregates the batch results of one profile. Results are append-only.
type ProfileResult struct {
	Index        int            `json:"index"`
	Config       string         `json:"config"`
	CommandCount int            `json:"num_of_tests"`
	Results      []*BatchResult `json:"results"`
}

// NewProfileResult creates an empty profile result
func NewProfileResult(index int, configPath string, commandCount int) *ProfileResult {
	return &ProfileResult{
		Index:        index,
		Config:       configPath,
		CommandCount: commandCount,
		Results:      make([]*BatchResult, 0, commandCount),
	}
}

// Append tags the result with the next dense batch index and appends it
func (p *ProfileResult) Append(result *BatchResult) {
	result.Index = len(p.Results)
	p.Results = append(p.Results, result)
}

// Failures returns the number of failed batches in the profile
func (p *ProfileResult) Failures() int {
	n := 0
	for _, r := range p.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}
