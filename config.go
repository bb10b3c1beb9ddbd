package citest

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-citest/compare"
	"github.com/ethereum-optimism/infra/op-citest/flags"
	"github.com/ethereum-optimism/infra/op-citest/publish"
	"github.com/ethereum-optimism/infra/op-citest/strategy"
	"github.com/ethereum/go-ethereum/log"
)

// Config holds the application configuration
type Config struct {
	ConfigFiles             []string      // Absolute profile document paths, in execution order
	Identifier              string        // Test name; names the summary file
	RepoDir                 string        // Repository whose HEAD commit is recorded; empty records n/a
	OutputDir               string        // Directory of the summary file
	LogDir                  string        // Per-batch log directory; empty disables batch logs
	Strategy                string        // Batch strategy name
	SmokeCommand            string        // Prerequisite command; empty disables it
	SmokeDir                string        // Directory the prerequisite runs in
	CommandTimeout          time.Duration // 0 disables the per-command timeout
	FailOnMissingExecutable bool
	CompareMode             compare.Mode
	GitHashObject           bool // Delegate digests to `git hash-object`
	SaveBaseline            bool
	MetricsTextfile         string
	HealthzAddr             string
	MetricsAddr             string
	Publish                 publish.Config
	Log                     log.Logger
}

// LogValue implements slog.LogValuer so the config can be logged without
// leaking publish credentials
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("configFiles", c.ConfigFiles),
		slog.String("identifier", c.Identifier),
		slog.String("repoDir", c.RepoDir),
		slog.String("outputDir", c.OutputDir),
		slog.String("logDir", c.LogDir),
		slog.String("strategy", c.Strategy),
		slog.String("smokeCommand", c.SmokeCommand),
		slog.String("smokeDir", c.SmokeDir),
		slog.Duration("commandTimeout", c.CommandTimeout),
		slog.Bool("failOnMissingExecutable", c.FailOnMissingExecutable),
		slog.String("compareMode", c.CompareMode.String()),
		slog.Bool("gitHashObject", c.GitHashObject),
		slog.Bool("saveBaseline", c.SaveBaseline),
		slog.String("metricsTextfile", c.MetricsTextfile),
		slog.String("healthzAddr", c.HealthzAddr),
		slog.String("metricsAddr", c.MetricsAddr),
		slog.Any("publish", c.Publish),
	)
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	configFiles := ctx.StringSlice(flags.Config.Name)
	if len(configFiles) == 0 {
		return nil, errors.New("at least one config file is required")
	}
	for i, path := range configFiles {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for config '%s': %w", path, err)
		}
		configFiles[i] = abs
	}

	identifier := ctx.String(flags.Name.Name)
	if identifier == "" {
		return nil, errors.New("test name cannot be empty")
	}

	name := ctx.String(flags.Strategy.Name)
	if !strategy.IsValidName(name) {
		return nil, fmt.Errorf("invalid strategy: %s", name)
	}

	if ctx.Duration(flags.CommandTimeout.Name) < 0 {
		return nil, errors.New("command timeout cannot be negative")
	}

	outputDir, err := filepath.Abs(ctx.String(flags.OutputDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for output directory '%s': %w", ctx.String(flags.OutputDir.Name), err)
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir != "" {
		if logDir, err = filepath.Abs(logDir); err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
	}

	repoDir := ctx.String(flags.RepoDir.Name)
	if repoDir != "" {
		if repoDir, err = filepath.Abs(repoDir); err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for repository '%s': %w", repoDir, err)
		}
	}

	// The smoke test runs in the repository when one is given
	smokeDir := repoDir
	if smokeDir == "" {
		if smokeDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to read working directory: %w", err)
		}
	}

	mode := compare.ModeDigest
	if ctx.Bool(flags.CompareByteExact.Name) {
		mode = compare.ModeByteExact
	}

	pub := publish.Config{
		Endpoint:  ctx.String(flags.PublishEndpoint.Name),
		Bucket:    ctx.String(flags.PublishBucket.Name),
		Prefix:    ctx.String(flags.PublishPrefix.Name),
		AccessKey: ctx.String(flags.PublishAccessKey.Name),
		SecretKey: ctx.String(flags.PublishSecretKey.Name),
		Insecure:  ctx.Bool(flags.PublishInsecure.Name),
	}
	if pub.Enabled() {
		if err := pub.Validate(); err != nil {
			return nil, fmt.Errorf("invalid publish configuration: %w", err)
		}
	}

	return &Config{
		ConfigFiles:             configFiles,
		Identifier:              identifier,
		RepoDir:                 repoDir,
		OutputDir:               outputDir,
		LogDir:                  logDir,
		Strategy:                name,
		SmokeCommand:            ctx.String(flags.SmokeCommand.Name),
		SmokeDir:                smokeDir,
		CommandTimeout:          ctx.Duration(flags.CommandTimeout.Name),
		FailOnMissingExecutable: ctx.Bool(flags.FailOnMissingExecutable.Name),
		CompareMode:             mode,
		GitHashObject:           ctx.Bool(flags.CompareGitHashObject.Name),
		SaveBaseline:            ctx.Bool(flags.CompareSaveBaseline.Name),
		MetricsTextfile:         ctx.String(flags.MetricsTextfile.Name),
		HealthzAddr:             ctx.String(flags.HealthzAddr.Name),
		MetricsAddr:             ctx.String(flags.MetricsAddr.Name),
		Publish:                 pub,
		Log:                     log,
	}, nil
}
