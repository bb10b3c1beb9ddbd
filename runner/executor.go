package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-citest/types"
)

// BatchExecutor runs one command and judges its outcome. It must not mutate the
// summary; any working directory change it makes is undone by the runner.
// A returned error is an unhandled fault and aborts the run.
type BatchExecutor interface {
	RunBatch(ctx context.Context, req BatchRequest) (*types.BatchResult, error)
}

// PrerequisiteChecker is implemented by executors that need a smoke test before
// any profile runs. Executors without it behave as if no prerequisite exists.
type PrerequisiteChecker interface {
	RunPrerequisite(ctx context.Context) types.PrerequisiteOutcome
}

// SummaryAppender is implemented by executors that add top-level fields to the
// summary. It is called once, before the prerequisite.
type SummaryAppender interface {
	AppendSummary(summary *types.Summary)
}

// ResultSink consumes batch results as they are recorded
type ResultSink interface {
	Consume(profile int, result *types.BatchResult) error
	Complete() error
}

// BatchRequest is everything an executor gets to know about one command
type BatchRequest struct {
	ProfileIndex int
	BatchIndex   int // Index the result will get if recorded
	Descriptor   types.CommandDescriptor
	Entry        types.CommandEntry
	Config       *types.ConfigDocument
	WorkDir      string
}

// ExecutorFunc adapts a plain function to BatchExecutor
type ExecutorFunc func(ctx context.Context, req BatchRequest) (*types.BatchResult, error)

// RunBatch implements BatchExecutor
func (f ExecutorFunc) RunBatch(ctx context.Context, req BatchRequest) (*types.BatchResult, error) {
	return f(ctx, req)
}

// FaultError reports an unhandled fault raised while executing a command
type FaultError struct {
	Command string
	Err     error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("critical error while running %q: %v", e.Command, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *FaultError) Unwrap() error {
	return e.Err
}

// IsFaultError checks if the error is or wraps a FaultError
func IsFaultError(err error) bool {
	var faultErr *FaultError
	return err != nil && errors.As(err, &faultErr)
}
