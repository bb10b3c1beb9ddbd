package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-citest/metrics"
	"github.com/ethereum-optimism/infra/op-citest/registry"
	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrExecutableNotFound is recorded for missing executables when they count as failures
var ErrExecutableNotFound = errors.New("executable not found")

// Runner is the orchestration engine. It exclusively owns the summary for the
// duration of Run.
type Runner struct {
	registry                *registry.Registry
	executor                BatchExecutor
	store                   SummaryStore
	sinks                   []ResultSink
	results                 *ResultManager
	log                     log.Logger
	identifier              string
	runID                   string
	commit                  types.CommitInfo
	failOnMissingExecutable bool
	now                     func() time.Time
	tracer                  trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Registry                *registry.Registry
	Executor                BatchExecutor
	Store                   SummaryStore
	Sinks                   []ResultSink
	Log                     log.Logger
	Identifier              string           // Test name; also names the summary file
	RunID                   string           // Generated when empty
	Commit                  types.CommitInfo // Zero value is replaced with "n/a" sentinels
	FailOnMissingExecutable bool             // Record missing executables as failed batches instead of skipping them
	Clock                   func() time.Time
}

// NewRunner creates a new runner instance
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("summary store is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Identifier == "" {
		cfg.Identifier = DefaultIdentifier
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}
	if cfg.Commit == (types.CommitInfo{}) {
		cfg.Commit = types.NoCommitInfo()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	cfg.Log.Debug("NewRunner()", "identifier", cfg.Identifier, "runID", cfg.RunID,
		"profiles", cfg.Registry.Len(), "failOnMissingExecutable", cfg.FailOnMissingExecutable)

	return &Runner{
		registry:                cfg.Registry,
		executor:                cfg.Executor,
		store:                   cfg.Store,
		sinks:                   cfg.Sinks,
		results:                 NewResultManager(),
		log:                     cfg.Log,
		identifier:              cfg.Identifier,
		runID:                   cfg.RunID,
		commit:                  cfg.Commit,
		failOnMissingExecutable: cfg.FailOnMissingExecutable,
		now:                     cfg.Clock,
		tracer:                  otel.Tracer(TracerName),
	}, nil
}

// RunID returns the identifier of the run
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes the prerequisite and every profile in order. The returned
// summary is always final and persisted, also when an error is returned. The
// error is non-nil when the run was aborted: an unparsable profile, an executor
// fault or a persistence failure.
func (r *Runner) Run(ctx context.Context) (*types.Summary, error) {
	scope, err := enterDir("")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := scope.Restore(); err != nil {
			r.log.Error("Failed to restore working directory", "err", err)
		}
	}()

	summary := r.results.CreateSummary(r.commit, r.identifier, r.runID, r.now())
	if appender, ok := r.executor.(SummaryAppender); ok {
		appender.AppendSummary(summary)
	}
	r.log.Info("Starting run", "identifier", r.identifier, "run_id", r.runID, "profiles", r.registry.Len())

	outcome := r.runPrerequisite(ctx)
	r.results.RecordPrerequisite(summary, outcome)
	if outcome == types.PrerequisiteFailed {
		r.log.Error("Prerequisite failed, skipping all profiles")
		return summary, r.finalize(summary, nil)
	}

	runErr := r.processProfiles(ctx, summary)
	return summary, r.finalize(summary, runErr)
}

func (r *Runner) runPrerequisite(ctx context.Context) types.PrerequisiteOutcome {
	checker, ok := r.executor.(PrerequisiteChecker)
	if !ok {
		return types.PrerequisiteAbsent
	}
	ctx, span := r.tracer.Start(ctx, "prerequisite")
	defer span.End()

	outcome := checker.RunPrerequisite(ctx)
	switch outcome {
	case types.PrerequisiteAbsent:
		r.log.Debug("No prerequisite")
	case types.PrerequisitePassed:
		r.log.Info("Prerequisite passed")
	default:
		span.SetStatus(codes.Error, "prerequisite failed")
	}
	return outcome
}

// processProfiles runs every profile in declared order, stopping at the first fatal error
func (r *Runner) processProfiles(ctx context.Context, summary *types.Summary) error {
	for i := 0; i < r.registry.Len(); i++ {
		if err := r.processProfile(ctx, i, summary); err != nil {
			return err
		}
	}
	return nil
}

// processProfile loads a profile, enters its directory and runs its commands
func (r *Runner) processProfile(ctx context.Context, index int, summary *types.Summary) error {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("profile %d", index))
	defer span.End()

	doc, err := r.registry.Load(index)
	if err != nil {
		r.log.Error("Failed to load profile configuration", "profile", index, "err", err)
		metrics.RecordErrorDetails("load_profile", err)
		r.results.RecordFault(summary, r.registry.Profiles()[index], err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("loading profile %d: %w", index, err)
	}
	span.SetAttributes(attribute.String("config", doc.Path))

	if err := changeDir(doc.Dir); err != nil {
		r.log.Error("Failed to enter profile directory", "profile", index, "dir", doc.Dir, "err", err)
		metrics.RecordErrorDetails("enter_profile", err)
		r.results.RecordFault(summary, doc.Path, err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("entering profile %d: %w", index, err)
	}

	profile := r.results.AddProfile(summary, index, doc)
	r.log.Info("Running profile", "profile", index, "config", doc.Path, "commands", len(doc.Entries))

	for _, entry := range doc.Entries {
		if err := r.processCommand(ctx, summary, profile, doc, entry); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

// processCommand validates and runs one command, then records and persists its result
func (r *Runner) processCommand(ctx context.Context, summary *types.Summary, profile *types.ProfileResult,
	doc *types.ConfigDocument, entry types.CommandEntry) error {

	desc, err := types.ParseCommand(entry.Command)
	if err != nil {
		return r.fault(summary, entry.Command, err)
	}

	executable, ok := resolveExecutable(desc.Executable, doc.Dir)
	if !ok {
		r.log.Warn("Executable does not exist", "executable", desc.Executable, "command", entry.Command)
		if !r.failOnMissingExecutable {
			return nil
		}
		result := types.NewBatchResult(entry.Command, types.BatchStatusFailed)
		result.SetDetail("error", ErrExecutableNotFound.Error())
		return r.record(summary, profile, result)
	}
	desc.Executable = executable

	req := BatchRequest{
		ProfileIndex: profile.Index,
		BatchIndex:   len(profile.Results),
		Descriptor:   desc,
		Entry:        entry,
		Config:       doc,
		WorkDir:      doc.Dir,
	}
	result, err := r.runBatch(ctx, req)
	if err != nil {
		return r.fault(summary, entry.Command, err)
	}
	if result.Command == "" {
		result.Command = entry.Command
	}
	return r.record(summary, profile, result)
}

// runBatch invokes the executor. The working directory is reset to the profile
// directory on every exit path and a panic is converted into a fault.
func (r *Runner) runBatch(ctx context.Context, req BatchRequest) (result *types.BatchResult, err error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("batch %d", req.BatchIndex))
	defer span.End()
	span.SetAttributes(
		attribute.Int("profile", req.ProfileIndex),
		attribute.String("command", req.Descriptor.Command),
	)

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("runtime error: %v", rec)
		}
	}()
	defer func() {
		if cdErr := changeDir(req.WorkDir); cdErr != nil && err == nil {
			result = nil
			err = cdErr
		}
	}()

	r.log.Info("Running command", "profile", req.ProfileIndex, "batch", req.BatchIndex, "command", req.Descriptor.Command)
	result, err = r.executor.RunBatch(ctx, req)
	if err == nil && result == nil {
		err = errors.New("executor returned no result")
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// record appends the result, notifies sinks and persists the whole summary
func (r *Runner) record(summary *types.Summary, profile *types.ProfileResult, result *types.BatchResult) error {
	r.results.AddBatchResult(summary, profile, result)

	if result.Failed() {
		r.log.Warn("Command is not passing the tests", "profile", profile.Index, "batch", result.Index, "command", result.Command)
	} else {
		r.log.Info("Command passed", "profile", profile.Index, "batch", result.Index, "command", result.Command)
	}
	metrics.RecordBatch(r.identifier, r.runID, result.Status, result.Duration)

	for _, sink := range r.sinks {
		if err := sink.Consume(profile.Index, result); err != nil {
			r.log.Error("Result sink failed", "err", err)
		}
	}

	return r.persist(summary)
}

// fault records an unhandled executor fault; the caller aborts the run
func (r *Runner) fault(summary *types.Summary, command string, err error) error {
	r.log.Error("Critical error occurred while running command", "command", command, "err", err)
	metrics.RecordErrorDetails("fault", err)
	r.results.RecordFault(summary, command, err)
	return &FaultError{Command: command, Err: err}
}

func (r *Runner) persist(summary *types.Summary) error {
	if err := r.store.Save(summary); err != nil {
		metrics.RecordErrorDetails("persist", err)
		return fmt.Errorf("persisting summary: %w", err)
	}
	return nil
}

// finalize sets the final status, persists the summary one last time and
// completes the sinks. It returns runErr, or the persistence error if runErr is nil.
func (r *Runner) finalize(summary *types.Summary, runErr error) error {
	r.results.Finalize(summary, runErr != nil)

	for _, sink := range r.sinks {
		if err := sink.Complete(); err != nil {
			r.log.Error("Failed to complete result sink", "err", err)
		}
	}

	r.log.Info("Run finished", "identifier", r.identifier, "status", summary.PassStatus,
		"failures", summary.FailureCount, "batches", summary.TotalBatches())

	if err := r.persist(summary); err != nil {
		if runErr != nil {
			r.log.Error("Failed to persist final summary", "err", err)
			return runErr
		}
		return err
	}
	return runErr
}

// resolveExecutable checks that the executable of a command exists. Relative
// tokens are resolved against dir first; bare names not found there are looked
// up in PATH.
func resolveExecutable(token, dir string) (string, bool) {
	path := token
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return path, true
	}
	if strings.ContainsRune(token, os.PathSeparator) || strings.Contains(token, "/") {
		return "", false
	}
	path, err := exec.LookPath(token)
	if err != nil {
		return "", false
	}
	return path, true
}
