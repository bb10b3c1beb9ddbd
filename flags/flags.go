package flags

import (
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "OP_CITEST"

// StrategyNames lists the accepted --strategy values; the first one is the default
var StrategyNames = []string{"exit-code", "expected-output", "output-file"}

var (
	Config = &cli.StringSliceFlag{
		Name:     "config",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:    "Path to a profile configuration document (JSON or YAML). Repeat to run several profiles in order",
	}
	Name = &cli.StringFlag{
		Name:     "name",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "NAME"),
		Usage:    "Test name. Identifies the run and names the summary file",
	}
	RepoDir = &cli.StringFlag{
		Name:    "repo-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPO_DIR"),
		Usage:   "Repository whose HEAD commit is recorded in the summary. Unset records n/a",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   ".",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT_DIR"),
		Usage:   "Directory the summary file is written to",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_DIR"),
		Usage:   "Directory for per-batch log files. Unset disables them",
	}
	Strategy = &cli.StringFlag{
		Name:    "strategy",
		Value:   StrategyNames[0],
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STRATEGY"),
		Usage:   fmt.Sprintf("How a batch is judged (%s)", strings.Join(StrategyNames, ", ")),
		Action: func(ctx *cli.Context, value string) error {
			return validateStrategy(value)
		},
	}
	SmokeCommand = &cli.StringFlag{
		Name:    "smoke-command",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SMOKE_COMMAND"),
		Usage:   "Command run once before any profile. A non-zero exit skips every profile and fails the run",
	}
	CommandTimeout = &cli.DurationFlag{
		Name:    "command-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COMMAND_TIMEOUT"),
		Usage:   "Kill a command that runs longer than this (e.g. '10m'). 0 waits forever",
	}
	FailOnMissingExecutable = &cli.BoolFlag{
		Name:    "fail-on-missing-executable",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_ON_MISSING_EXECUTABLE"),
		Usage:   "Record commands whose executable does not exist as failed instead of skipping them",
	}
	CompareByteExact = &cli.BoolFlag{
		Name:    "compare.byte-exact",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COMPARE_BYTE_EXACT"),
		Usage:   "Compare output files byte by byte instead of by content digest",
	}
	CompareGitHashObject = &cli.BoolFlag{
		Name:    "compare.git-hash-object",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COMPARE_GIT_HASH_OBJECT"),
		Usage:   "Compute digests with 'git hash-object' instead of in process",
	}
	CompareSaveBaseline = &cli.BoolFlag{
		Name:    "compare.save-baseline",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COMPARE_SAVE_BASELINE"),
		Usage:   "Write the digest of every confirmed match to its baseline file",
	}
	Silent = &cli.BoolFlag{
		Name:    "silent",
		Aliases: []string{"s"},
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SILENT"),
		Usage:   "Discard console log output",
	}
	MetricsTextfile = &cli.StringFlag{
		Name:    "metrics.textfile",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_TEXTFILE"),
		Usage:   "Write Prometheus metrics in text format to this file after the run",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Serve run progress on /healthz at this address (e.g. '0.0.0.0:8080') while the run is in flight",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics.addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_ADDR"),
		Usage:   "Serve Prometheus metrics on /metrics at this address (e.g. '0.0.0.0:7300') while the run is in flight",
	}
	PublishEndpoint = &cli.StringFlag{
		Name:    "publish.endpoint",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PUBLISH_ENDPOINT"),
		Usage:   "S3-compatible endpoint (host:port) the summary and logs are uploaded to. Unset disables publishing",
	}
	PublishBucket = &cli.StringFlag{
		Name:    "publish.bucket",
		Value:   "citest",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PUBLISH_BUCKET"),
		Usage:   "Bucket for published artifacts",
	}
	PublishPrefix = &cli.StringFlag{
		Name:    "publish.prefix",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PUBLISH_PREFIX"),
		Usage:   "Key prefix for published artifacts",
	}
	PublishAccessKey = &cli.StringFlag{
		Name:    "publish.access-key",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PUBLISH_ACCESS_KEY"),
		Usage:   "Access key for the publish endpoint",
	}
	PublishSecretKey = &cli.StringFlag{
		Name:    "publish.secret-key",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PUBLISH_SECRET_KEY"),
		Usage:   "Secret key for the publish endpoint",
	}
	PublishInsecure = &cli.BoolFlag{
		Name:    "publish.insecure",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PUBLISH_INSECURE"),
		Usage:   "Use plain HTTP for the publish endpoint",
	}
)

var requiredFlags = []cli.Flag{
	Config,
	Name,
}

var optionalFlags = []cli.Flag{
	RepoDir,
	OutputDir,
	LogDir,
	Strategy,
	SmokeCommand,
	CommandTimeout,
	FailOnMissingExecutable,
	CompareByteExact,
	CompareGitHashObject,
	CompareSaveBaseline,
	Silent,
	MetricsTextfile,
	HealthzAddr,
	MetricsAddr,
	PublishEndpoint,
	PublishBucket,
	PublishPrefix,
	PublishAccessKey,
	PublishSecretKey,
	PublishInsecure,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}

func validateStrategy(value string) error {
	if !slices.Contains(StrategyNames, value) {
		return fmt.Errorf("strategy must be one of %s, got %q", strings.Join(StrategyNames, ", "), value)
	}
	return nil
}
