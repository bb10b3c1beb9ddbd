package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name        string
		command     string
		expectedExe string
		expectedArg []string
		expectError bool
	}{
		{
			name:        "single token",
			command:     "./renderer",
			expectedExe: "./renderer",
			expectedArg: []string{"./renderer"},
		},
		{
			name:        "arguments",
			command:     "echo hello world",
			expectedExe: "echo",
			expectedArg: []string{"echo", "hello", "world"},
		},
		{
			name:        "quoted argument",
			command:     `./bin/pathtracer -scene "scenes/cornell box.xml"`,
			expectedExe: "./bin/pathtracer",
			expectedArg: []string{"./bin/pathtracer", "-scene", "scenes/cornell box.xml"},
		},
		{
			name:        "empty",
			command:     "   ",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := ParseCommand(tt.command)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.command, desc.Command)
			assert.Equal(t, tt.expectedExe, desc.Executable)
			assert.Equal(t, tt.expectedArg, desc.Args)
		})
	}
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, StatusColorGreen, ColorFor(BatchStatusPassed))
	assert.Equal(t, StatusColorRed, ColorFor(BatchStatusFailed))
}

func TestProfileResult_AppendAssignsDenseIndices(t *testing.T) {
	p := NewProfileResult(0, "/tmp/config.json", 3)

	for i := 0; i < 3; i++ {
		r := NewBatchResult("cmd", BatchStatusPassed)
		r.Index = 42 // overwritten on append
		p.Append(r)
	}
	p.Results[1].Status = BatchStatusFailed

	for i, r := range p.Results {
		assert.Equal(t, i, r.Index)
	}
	assert.Equal(t, 1, p.Failures())
}

func TestBatchResult_MarshalJSONFlattensDetails(t *testing.T) {
	r := NewBatchResult("echo hello", BatchStatusFailed)
	r.ConsoleOutput = "hello"
	r.Duration = 1500 * time.Millisecond
	r.SetDetail("exit_code", 3)
	r.SetDetail("status", "ignored") // fixed fields win

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "failed", decoded["status"])
	assert.Equal(t, "red", decoded["status_color"])
	assert.Equal(t, "hello", decoded["console_output"])
	assert.Equal(t, float64(3), decoded["exit_code"])
	assert.Equal(t, float64(1500), decoded["duration_ms"])
	assert.NotContains(t, decoded, "timed_out")
}
