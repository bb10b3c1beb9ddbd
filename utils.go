package citest

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-citest/types"
)

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getResultString returns a marked string representing a batch result
func getResultString(status types.BatchStatus) string {
	if status == types.BatchStatusPassed {
		return "✓ pass"
	}
	return "✗ fail"
}

// getRunString returns a marked string representing the overall run status
func getRunString(summary *types.Summary) string {
	if summary.Passed() {
		return "✓ pass"
	}
	return "✗ fail"
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// batchError returns the first line of the error recorded for a batch, if any
func batchError(result *types.BatchResult) string {
	if result.TimedOut {
		return "timed out"
	}
	v, ok := result.Details["error"]
	if !ok {
		return ""
	}
	msg := fmt.Sprint(v)
	if idx := strings.Index(msg, "\n"); idx != -1 {
		msg = msg[:idx]
	}
	if runes := []rune(msg); len(runes) > 80 {
		msg = string(runes[:77]) + "..."
	}
	return msg
}
