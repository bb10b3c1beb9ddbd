package strategy

import (
	"context"

	"github.com/ethereum-optimism/infra/op-citest/runner"
	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/ethereum/go-ethereum/log"
)

var (
	_ runner.BatchExecutor       = (*SmokeTest)(nil)
	_ runner.PrerequisiteChecker = (*SmokeTest)(nil)
	_ runner.SummaryAppender     = (*SmokeTest)(nil)
)

// SmokeTest adds a prerequisite command to an executor. The prerequisite
// passes iff the command exits 0.
type SmokeTest struct {
	runner.BatchExecutor
	command string
	dir     string
	opts    Options
	log     log.Logger
}

// WithSmokeTest wraps exec with a smoke-test command run in dir. An empty
// command leaves the prerequisite absent.
func WithSmokeTest(exec runner.BatchExecutor, command, dir string, opts Options) *SmokeTest {
	if opts.Log == nil {
		opts.Log = log.New()
	}
	return &SmokeTest{
		BatchExecutor: exec,
		command:       command,
		dir:           dir,
		opts:          opts,
		log:           opts.Log,
	}
}

// RunPrerequisite runs the smoke-test command
func (s *SmokeTest) RunPrerequisite(ctx context.Context) types.PrerequisiteOutcome {
	if s.command == "" {
		return types.PrerequisiteAbsent
	}
	desc, err := types.ParseCommand(s.command)
	if err != nil {
		s.log.Error("Invalid smoke test command", "command", s.command, "err", err)
		return types.PrerequisiteFailed
	}

	s.log.Info("Running smoke test", "command", s.command)
	out, err := RunProcess(ctx, desc, s.dir, s.opts.Timeout, s.opts.TailBytes)
	if err != nil {
		s.log.Error("Smoke test could not be started", "command", s.command, "err", err)
		return types.PrerequisiteFailed
	}
	if !out.Succeeded() {
		s.log.Error("Smoke test failed", "command", s.command, "exit_code", out.ExitCode,
			"timed_out", out.TimedOut, "stderr", Normalize(out.Stderr))
		return types.PrerequisiteFailed
	}
	return types.PrerequisitePassed
}

// AppendSummary forwards to the wrapped executor when it adds summary fields
func (s *SmokeTest) AppendSummary(summary *types.Summary) {
	if appender, ok := s.BatchExecutor.(runner.SummaryAppender); ok {
		appender.AppendSummary(summary)
	}
	if s.command != "" {
		summary.SetExtra("smoke_command", s.command)
	}
}
