package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-citest/exitcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExitCodeBehavior verifies that op-citest returns the correct exit codes:
// - Exit code 0 when all commands pass
// - Exit code 1 when any command fails
// - Exit code 2 when there's a runtime error
func TestExitCodeBehavior(t *testing.T) {
	projectRoot, err := os.Getwd()
	require.NoError(t, err, "Failed to get current directory")
	projectRoot = filepath.Dir(projectRoot) // Go up one directory to project root
	binary := filepath.Join(projectRoot, "bin", "op-citest")

	ensureBinaryExists(t, projectRoot, binary)

	testCases := []struct {
		name           string
		profile        string
		extraArgs      []string
		expectedStatus int
		expectSummary  string
	}{
		{
			name:           "Passing commands should exit with code 0",
			profile:        `{"data": [{"command": "true"}, {"command": "echo hello"}]}`,
			expectedStatus: exitcodes.Success,
			expectSummary:  "passed",
		},
		{
			name:           "Failing commands should exit with code 1",
			profile:        `{"data": [{"command": "true"}, {"command": "false"}]}`,
			expectedStatus: exitcodes.TestFailure,
			expectSummary:  "failed",
		},
		{
			name:           "Failing smoke test should exit with code 1",
			profile:        `{"data": [{"command": "true"}]}`,
			extraArgs:      []string{"--smoke-command", "false"},
			expectedStatus: exitcodes.TestFailure,
			expectSummary:  "failed",
		},
		{
			name:           "Unparsable profile should exit with code 2",
			profile:        `{"commands": []}`,
			expectedStatus: exitcodes.RuntimeErr,
			expectSummary:  "failed",
		},
		{
			name:           "Unknown strategy should exit with code 2",
			profile:        `{"data": [{"command": "true"}]}`,
			extraArgs:      []string{"--strategy", "pixel"},
			expectedStatus: exitcodes.RuntimeErr,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			profile := filepath.Join(dir, "profile.json")
			require.NoError(t, os.WriteFile(profile, []byte(tc.profile), 0644))

			args := append([]string{
				"--config", profile,
				"--name", "exit codes",
				"--output-dir", dir,
				"--silent",
			}, tc.extraArgs...)
			exitCode := runCITest(t, binary, args...)
			require.Equal(t, tc.expectedStatus, exitCode, "Unexpected exit code")

			if tc.expectSummary == "" {
				return
			}
			data, err := os.ReadFile(filepath.Join(dir, "summary_exit_codes.json"))
			require.NoError(t, err)
			var summary map[string]any
			require.NoError(t, json.Unmarshal(data, &summary))
			assert.Equal(t, tc.expectSummary, summary["pass_status"])
		})
	}
}

// ensureBinaryExists builds the op-citest binary if it doesn't exist
func ensureBinaryExists(t *testing.T, projectRoot, binaryPath string) {
	if !fileExists(binaryPath) {
		t.Logf("Building op-citest binary...")

		err := os.MkdirAll(filepath.Dir(binaryPath), 0755)
		require.NoError(t, err, "Failed to create directory for binary")

		buildCmd := exec.Command("go", "build", "-o", binaryPath, filepath.Join(projectRoot, "cmd"))
		var buildOutput bytes.Buffer
		buildCmd.Stdout = &buildOutput
		buildCmd.Stderr = &buildOutput

		err = buildCmd.Run()
		if err != nil {
			t.Logf("Build output:\n%s", buildOutput.String())
			t.Fatalf("Failed to build op-citest binary: %v", err)
		}

		t.Logf("Successfully built binary at %s", binaryPath)
	}

	require.FileExists(t, binaryPath, "op-citest binary not found")
}

// runCITest runs the binary and returns its exit code
func runCITest(t *testing.T, binary string, args ...string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	execCmd := exec.CommandContext(ctx, binary, args...)
	var output bytes.Buffer
	execCmd.Stdout = &output
	execCmd.Stderr = &output

	err := execCmd.Run()
	t.Logf("op-citest output:\n%s", output.String())

	if ctx.Err() == context.DeadlineExceeded {
		t.Logf("Command timed out")
		return exitcodes.RuntimeErr
	}

	if err == nil {
		return exitcodes.Success
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}

	return exitcodes.RuntimeErr
}

// Helper function to check if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
