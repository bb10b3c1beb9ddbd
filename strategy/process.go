package strategy

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-citest/types"
)

// waitDelay bounds how long Wait blocks on inherited pipes after the child is killed
const waitDelay = 5 * time.Second

// ProcessOutput is what a finished child process left behind
type ProcessOutput struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Duration  time.Duration
	TimedOut  bool
	Truncated bool // Output exceeded the tail buffer and only the end was kept
}

// Succeeded reports whether the process exited 0 within its deadline
func (o *ProcessOutput) Succeeded() bool {
	return o.ExitCode == 0 && !o.TimedOut
}

// RunProcess launches the command in dir and waits for it. A non-zero exit is
// reported through ExitCode; only a failure to start is returned as an error.
// With timeout > 0 the child is killed once the deadline passes.
func RunProcess(ctx context.Context, desc types.CommandDescriptor, dir string, timeout time.Duration, tailBytes int) (*ProcessOutput, error) {
	if len(desc.Args) == 0 {
		return nil, errors.New("empty command")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	executable := desc.Executable
	if executable == "" {
		executable = desc.Args[0]
	}

	stdout := newTailBuffer(tailBytes)
	stderr := newTailBuffer(tailBytes)

	cmd := exec.CommandContext(ctx, executable, desc.Args[1:]...)
	cmd.Args[0] = desc.Args[0]
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", desc.Args[0], err)
	}
	waitErr := cmd.Wait()

	out := &ProcessOutput{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  time.Since(start),
		TimedOut:  timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	case errors.Is(waitErr, exec.ErrWaitDelay):
	default:
		return nil, fmt.Errorf("failed waiting for %s: %w", desc.Args[0], waitErr)
	}
	// Killed children report -1
	if out.TimedOut && out.ExitCode == 0 {
		out.ExitCode = -1
	}
	return out, nil
}

// Normalize trims surrounding whitespace and drops carriage returns so output
// from different platforms compares equal
func Normalize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\r", "")
}
