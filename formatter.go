package citest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-citest/types"
)

// ResultFormatter is responsible for formatting and displaying run summaries.
type ResultFormatter interface {
	FormatResults(summary *types.Summary, duration time.Duration) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter writing to stdout.
func NewConsoleResultFormatter(logger log.Logger) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
		out:    os.Stdout,
	}
}

// FormatResults renders one row per profile followed by its batches.
func (f *ConsoleResultFormatter) FormatResults(summary *types.Summary, duration time.Duration) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("CI Test Results: %s (%s)", summary.Identifier, formatDuration(duration)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Tests", "Passed", "Failed", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	if summary.Prerequisite != types.PrerequisiteAbsent {
		status := types.BatchStatusPassed
		if summary.Prerequisite == types.PrerequisiteFailed {
			status = types.BatchStatusFailed
		}
		t.AppendRow(table.Row{"Smoke", "prerequisite", "-", "-", "-", "-", getResultString(status), ""})
		t.AppendSeparator()
	}

	total := 0
	for _, profile := range summary.Profiles {
		var profileDuration time.Duration
		for _, r := range profile.Results {
			profileDuration += r.Duration
		}
		failed := profile.Failures()
		status := types.BatchStatusPassed
		if failed > 0 {
			status = types.BatchStatusFailed
		}

		// Profile row shows batch counts but is not itself counted
		t.AppendRow(table.Row{
			"Profile",
			fmt.Sprintf("%d: %s", profile.Index, filepath.Base(profile.Config)),
			formatDuration(profileDuration),
			fmt.Sprintf("%d/%d", len(profile.Results), profile.CommandCount),
			len(profile.Results) - failed,
			failed,
			getResultString(status),
			"",
		})

		for i, result := range profile.Results {
			prefix := "├─"
			if i == len(profile.Results)-1 {
				prefix = "└─"
			}
			t.AppendRow(table.Row{
				"",
				fmt.Sprintf("%s %s", prefix, result.Command),
				formatDuration(result.Duration),
				"1",
				boolToInt(!result.Failed()),
				boolToInt(result.Failed()),
				getResultString(result.Status),
				batchError(result),
			})
		}
		total += len(profile.Results)

		t.AppendSeparator()
	}

	if summary.Passed() {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(duration),
		total,
		total - summary.FailureCount,
		summary.FailureCount,
		getRunString(summary),
		summary.CriticalErrors,
	})

	t.Render()

	_, err := fmt.Fprintf(f.out, "Run %s finished: %s (%d of %d batches failed)\n",
		summary.RunID, summary.PassStatus, summary.FailureCount, total)
	return err
}
