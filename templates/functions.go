package templates

import (
	"fmt"
	"html/template"
	"time"

	"github.com/ethereum-optimism/infra/op-citest/types"
)

// GetTemplateFunc returns the centralized template functions used across the application
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			if d < time.Second {
				return fmt.Sprintf("%dms", d.Milliseconds())
			}
			return d.Truncate(time.Millisecond).String()
		},
		"getStatusClass": func(status types.BatchStatus) string {
			return getStatusString(status)
		},
		"getStatusText": func(status types.BatchStatus) string {
			return getStatusString(status)
		},
		"getOverallStatus": func(failures int) types.BatchStatus {
			if failures > 0 {
				return types.BatchStatusFailed
			}
			return types.BatchStatusPassed
		},
	}
}

// getStatusString returns a consistent lowercase status string
func getStatusString(status types.BatchStatus) string {
	switch status {
	case types.BatchStatusPassed:
		return "pass"
	case types.BatchStatusFailed:
		return "fail"
	default:
		return "unknown"
	}
}
