// Package citest wires the profile registry, batch strategy, summary store and
// result sinks into a one-shot CI test run.
package citest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-citest/compare"
	"github.com/ethereum-optimism/infra/op-citest/logging"
	"github.com/ethereum-optimism/infra/op-citest/metrics"
	"github.com/ethereum-optimism/infra/op-citest/publish"
	"github.com/ethereum-optimism/infra/op-citest/registry"
	"github.com/ethereum-optimism/infra/op-citest/reporting"
	"github.com/ethereum-optimism/infra/op-citest/runner"
	"github.com/ethereum-optimism/infra/op-citest/service"
	"github.com/ethereum-optimism/infra/op-citest/strategy"
	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/ethereum-optimism/infra/op-citest/vcs"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// citest implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &citest{}

// summaryRunner is the part of *runner.Runner the application drives
type summaryRunner interface {
	Run(ctx context.Context) (*types.Summary, error)
	RunID() string
}

// citest runs every configured profile once and then asks the app to shut down.
type citest struct {
	config     *Config
	version    string
	runID      string
	runner     summaryRunner
	store      *runner.FileStore
	fileLogger *logging.FileLogger
	service    *service.Service
	publisher  *publish.Publisher
	formatter  ResultFormatter
	reporter   MetricsReporter
	result     *types.Summary

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*citest, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating citest with config",
		"profiles", len(config.ConfigFiles),
		"identifier", config.Identifier,
		"strategy", config.Strategy,
		"outputDir", config.OutputDir,
		"logDir", config.LogDir)

	runID := uuid.New().String()

	reg, err := registry.NewRegistry(registry.Config{
		Log:         config.Log,
		ConfigFiles: config.ConfigFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	executor, err := newExecutor(config)
	if err != nil {
		return nil, err
	}

	store, err := runner.NewFileStore(config.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary store: %w", err)
	}

	svc := service.New(service.Config{
		HealthzAddr: config.HealthzAddr,
		MetricsAddr: config.MetricsAddr,
		Identifier:  config.Identifier,
		RunID:       runID,
		Log:         config.Log,
	})
	sinks := []runner.ResultSink{svc}

	var fileLogger *logging.FileLogger
	if config.LogDir != "" {
		fileLogger, err = logging.NewFileLogger(config.LogDir, runID, config.Identifier)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		report, err := reporting.NewHTMLSink(fileLogger.GetBaseDir(), config.Identifier, runID, fileLogger.BatchLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTML report: %w", err)
		}
		sinks = append(sinks, fileLogger, report)
	}

	var publisher *publish.Publisher
	if config.Publish.Enabled() {
		publisher, err = publish.NewPublisher(config.Publish, config.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to create publisher: %w", err)
		}
	}

	r, err := runner.NewRunner(runner.Config{
		Registry:                reg,
		Executor:                executor,
		Store:                   store,
		Sinks:                   sinks,
		Log:                     config.Log,
		Identifier:              config.Identifier,
		RunID:                   runID,
		Commit:                  vcs.CommitInfoOrSentinel(ctx, config.Log, "git", config.RepoDir),
		FailOnMissingExecutable: config.FailOnMissingExecutable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	config.Log.Info("citest.New: created registry and runner", "runID", runID)

	return &citest{
		config:           config,
		version:          version,
		runID:            runID,
		runner:           r,
		store:            store,
		fileLogger:       fileLogger,
		service:          svc,
		publisher:        publisher,
		formatter:        NewConsoleResultFormatter(config.Log),
		reporter:         NewDefaultMetricsReporter(),
		shutdownCallback: shutdownCallback,
	}, nil
}

// newExecutor builds the configured strategy, wrapped with the smoke test when one is set
func newExecutor(config *Config) (runner.BatchExecutor, error) {
	var hasher compare.Hasher = compare.BlobHasher{}
	if config.GitHashObject {
		hasher = &compare.GitHasher{RepoDir: config.RepoDir}
	}
	opts := strategy.Options{
		Log:          config.Log,
		Timeout:      config.CommandTimeout,
		Checker:      compare.NewChecker(config.CompareMode, hasher, config.Log),
		SaveBaseline: config.SaveBaseline,
	}
	exec, err := strategy.New(config.Strategy, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy: %w", err)
	}
	if config.SmokeCommand == "" {
		return exec, nil
	}
	return strategy.WithSmokeTest(exec, config.SmokeCommand, config.SmokeDir, opts), nil
}

// Start runs every profile once.
// Start implements the cliapp.Lifecycle interface.
func (c *citest) Start(ctx context.Context) error {
	c.running.Store(true)
	c.config.Log.Info("Starting op-citest", "version", c.version, "identifier", c.config.Identifier)

	if err := c.service.Start(ctx); err != nil {
		c.running.Store(false)
		return NewRuntimeError(fmt.Errorf("failed to start service: %w", err))
	}
	defer c.service.Shutdown()

	err := c.runTests(ctx)
	c.running.Store(false)
	if err != nil {
		return err
	}

	go func() {
		c.shutdownCallback(nil)
	}()
	return nil
}

// runTests runs the profiles, then reports and publishes the summary
func (c *citest) runTests(ctx context.Context) error {
	c.config.Log.Info("Running all profiles...")
	start := time.Now()
	summary, runErr := c.runner.Run(ctx)
	duration := time.Since(start)
	c.result = summary

	if summary != nil {
		if err := c.formatter.FormatResults(summary, duration); err != nil {
			c.config.Log.Error("Failed to print results", "err", err)
		}
		c.reporter.ReportResults(summary, duration)
	}

	if c.config.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(c.config.MetricsTextfile); err != nil {
			c.config.Log.Error("Failed to write metrics textfile", "err", err)
		}
	}

	if summary != nil {
		c.publish(ctx)
	}

	if runErr != nil {
		c.config.Log.Error("Runtime error running profiles", "err", runErr)
		return NewRuntimeError(runErr)
	}

	c.config.Log.Info("Test run completed", "run_id", summary.RunID, "status", summary.PassStatus)
	if !summary.Passed() {
		c.config.Log.Warn("Test run completed with failures, returning exit code 1")
		return NewTestFailureError(fmt.Sprintf("%d failed batches, see %s", summary.FailureCount, c.summaryPath()))
	}
	return nil
}

// publish uploads the summary and batch logs. Failures are logged and do not
// change the outcome of the run.
func (c *citest) publish(ctx context.Context) {
	if c.publisher == nil {
		return
	}
	paths := []string{c.summaryPath()}
	if c.fileLogger != nil {
		paths = append(paths, c.fileLogger.GetBaseDir())
	}
	if _, err := c.publisher.Publish(ctx, c.runID, paths...); err != nil {
		c.config.Log.Error("Failed to publish run artifacts", "err", err)
		metrics.RecordErrorDetails("publish", err)
	}
}

func (c *citest) summaryPath() string {
	return c.store.PathFor(c.config.Identifier)
}

// Stop implements the cliapp.Lifecycle interface.
func (c *citest) Stop(ctx context.Context) error {
	c.config.Log.Info("Stopping op-citest")
	c.running.Store(false)
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (c *citest) Stopped() bool {
	return !c.running.Load()
}

// Result returns the final summary of the last run
func (c *citest) Result() *types.Summary {
	return c.result
}
