package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"Path Tracer CI", "Path_Tracer_CI"},
		{"  --blit/test--  ", "blit_test"},
		{"a.b.c", "a_b_c"},
		{"already_safe", "already_safe"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeIdentifier(tt.input))
		})
	}
}

func TestSummaryFileName(t *testing.T) {
	s := NewSummary(NoCommitInfo(), "Renderer: smoke tests", "run", time.Now())
	assert.Equal(t, "summary_Renderer_smoke_tests.json", s.FileName())
}

func TestNewSummary(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	s := NewSummary(NoCommitInfo(), "id", "run-1", now)

	assert.Equal(t, PassStatusPending, s.PassStatus)
	assert.Empty(t, s.Profiles)
	assert.NotNil(t, s.Profiles)
	assert.Equal(t, 0, s.FailureCount)
	assert.False(t, s.Passed())
}

func TestSummary_MarshalJSON(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	s := NewSummary(NoCommitInfo(), "id", "run-1", now)
	s.SetExtra("renderer", "vulkan")
	s.SetExtra("pass_status", "overridden") // fixed fields win

	t.Run("optional fields omitted", func(t *testing.T) {
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "09/03/2024, 14:05:07", decoded["datetime"])
		assert.Equal(t, "pending", decoded["pass_status"])
		assert.Equal(t, "vulkan", decoded["renderer"])
		assert.Equal(t, []any{}, decoded["profiles"])
		assert.Equal(t, map[string]any{"hash": "n/a", "author": "n/a", "date": "n/a", "name": "n/a"}, decoded["commit"])
		assert.NotContains(t, decoded, "dummy_run_status")
		assert.NotContains(t, decoded, "critical_errors")
	})

	t.Run("optional fields present", func(t *testing.T) {
		s.Prerequisite = PrerequisiteFailed
		s.CriticalErrors = "./a: boom"

		data, err := json.Marshal(s)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "failed", decoded["dummy_run_status"])
		assert.Equal(t, "./a: boom", decoded["critical_errors"])
	})
}

func TestSummary_TotalBatches(t *testing.T) {
	s := NewSummary(NoCommitInfo(), "id", "run", time.Now())
	p0 := NewProfileResult(0, "a.json", 2)
	p0.Append(NewBatchResult("a", BatchStatusPassed))
	p0.Append(NewBatchResult("b", BatchStatusPassed))
	p1 := NewProfileResult(1, "b.json", 1)
	p1.Append(NewBatchResult("c", BatchStatusFailed))
	s.Profiles = append(s.Profiles, p0, p1)

	assert.Equal(t, 3, s.TotalBatches())
}
