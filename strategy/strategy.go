package strategy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/ethereum-optimism/infra/op-citest/compare"
	"github.com/ethereum-optimism/infra/op-citest/runner"
	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/ethereum/go-ethereum/log"
)

const (
	ExitCode       = "exit-code"
	ExpectedOutput = "expected-output"
	OutputFile     = "output-file"

	// Entry fields read by the output-file strategy
	OutputField   = "output"
	BaselineField = "baseline"

	// StrategyKey is the summary field naming the strategy of the run
	StrategyKey = "strategy"
)

// Names lists the available strategies; the first one is the default
func Names() []string {
	return []string{ExitCode, ExpectedOutput, OutputFile}
}

var (
	_ runner.BatchExecutor   = (*Executor)(nil)
	_ runner.SummaryAppender = (*Executor)(nil)
)

// Options configures a strategy
type Options struct {
	Log          log.Logger
	Timeout      time.Duration    // Per-command timeout; 0 disables it
	TailBytes    int              // Captured bytes per stream; 0 uses the default
	Checker      *compare.Checker // Used by output-file; defaults to a digest checker
	SaveBaseline bool             // Write digests of confirmed matches to baseline files
}

// verdict decides whether a finished process passed. An error marks the batch
// failed and is recorded in the result.
type verdict func(req runner.BatchRequest, out *ProcessOutput, result *types.BatchResult) (bool, error)

// Executor launches the command of a batch as a child process and judges the outcome
type Executor struct {
	name    string
	opts    Options
	verdict verdict
}

// New creates the strategy with the given name
func New(name string, opts Options) (*Executor, error) {
	if opts.Log == nil {
		opts.Log = log.New()
	}
	e := &Executor{name: name, opts: opts}
	switch name {
	case "", ExitCode:
		e.name = ExitCode
		e.verdict = exitCodeVerdict
	case ExpectedOutput:
		e.verdict = expectedOutputVerdict
	case OutputFile:
		if e.opts.Checker == nil {
			e.opts.Checker = compare.NewChecker(compare.ModeDigest, nil, opts.Log)
		}
		e.verdict = e.outputFileVerdict
	default:
		return nil, fmt.Errorf("unknown strategy %q, must be one of %v", name, Names())
	}
	return e, nil
}

// Name returns the strategy name
func (e *Executor) Name() string {
	return e.name
}

// AppendSummary records the strategy name in the summary
func (e *Executor) AppendSummary(summary *types.Summary) {
	summary.SetExtra(StrategyKey, e.name)
}

// RunBatch runs the command and records its normalised output, exit code and stderr
func (e *Executor) RunBatch(ctx context.Context, req runner.BatchRequest) (*types.BatchResult, error) {
	out, err := RunProcess(ctx, req.Descriptor, req.WorkDir, e.opts.Timeout, e.opts.TailBytes)
	if err != nil {
		return nil, err
	}

	result := types.NewBatchResult(req.Descriptor.Command, types.BatchStatusFailed)
	result.ConsoleOutput = Normalize(out.Stdout)
	result.Duration = out.Duration
	result.TimedOut = out.TimedOut
	result.SetDetail("exit_code", out.ExitCode)
	if stderr := Normalize(out.Stderr); stderr != "" {
		result.SetDetail("stderr", stderr)
	}
	if out.Truncated {
		result.SetDetail("output_truncated", true)
	}

	if out.TimedOut {
		e.opts.Log.Warn("Command timed out", "command", req.Descriptor.Command, "timeout", e.opts.Timeout)
		result.SetDetail("error", fmt.Sprintf("timed out after %s", e.opts.Timeout))
		return result, nil
	}

	passed, err := e.verdict(req, out, result)
	if err != nil {
		e.opts.Log.Warn("Could not judge command", "command", req.Descriptor.Command, "err", err)
		result.SetDetail("error", err.Error())
		passed = false
	}
	if passed {
		result.Status = types.BatchStatusPassed
		result.StatusColor = types.ColorFor(types.BatchStatusPassed)
	}
	return result, nil
}

func exitCodeVerdict(_ runner.BatchRequest, out *ProcessOutput, _ *types.BatchResult) (bool, error) {
	return out.Succeeded(), nil
}

func expectedOutputVerdict(req runner.BatchRequest, out *ProcessOutput, result *types.BatchResult) (bool, error) {
	path, err := reference(req)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read expected output: %w", err)
	}
	expected := Normalize(string(data))
	result.SetDetail("expected_output", expected)
	return out.Succeeded() && expected == result.ConsoleOutput, nil
}

func (e *Executor) outputFileVerdict(req runner.BatchRequest, out *ProcessOutput, result *types.BatchResult) (bool, error) {
	output, ok := req.Entry.StringField(OutputField)
	if !ok || output == "" {
		return false, fmt.Errorf("entry has no %q field", OutputField)
	}
	ref, err := reference(req)
	if err != nil {
		return false, err
	}
	output = resolve(req.WorkDir, output)
	result.SetDetail("output", output)
	result.SetDetail("reference", ref)

	if !out.Succeeded() {
		return false, nil
	}

	var baseline compare.Baseline
	if b, ok := req.Entry.StringField(BaselineField); ok && b != "" {
		baseline = compare.Baseline{Path: resolve(req.WorkDir, b), Save: e.opts.SaveBaseline}
	}
	return e.opts.Checker.EqualWithBaseline(output, ref, baseline)
}

// reference returns the first dependency of the entry resolved against the profile directory
func reference(req runner.BatchRequest) (string, error) {
	if len(req.Entry.Dependencies) == 0 {
		return "", errors.New("entry has no dependencies")
	}
	return resolve(req.WorkDir, req.Entry.Dependencies[0]), nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

// IsValidName reports whether name selects a strategy
func IsValidName(name string) bool {
	return slices.Contains(Names(), name)
}
