package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	citest "github.com/ethereum-optimism/infra/op-citest"
	"github.com/ethereum-optimism/infra/op-citest/exitcodes"
	"github.com/ethereum-optimism/infra/op-citest/flags"
	"github.com/ethereum-optimism/infra/op-citest/logging"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-citest"
	app.Usage = "CI test orchestration harness"
	app.Description = "op-citest runs the commands listed in profile documents and records a JSON summary after every command"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if citest.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				// Flag parsing and wiring errors are runtime errors too
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			}
		}
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logger := newLogger(ctx)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()

	cfg, err := citest.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, citest.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "config", cfg)

	svc, err := citest.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return nil, citest.NewRuntimeError(fmt.Errorf("failed to create citest: %w", err))
	}

	return svc, nil
}

// newLogger discards output with --silent, uses the bracketed console format
// unless --log.format is given, and falls back to op-service logging otherwise
func newLogger(ctx *cli.Context) log.Logger {
	if ctx.Bool(flags.Silent.Name) {
		return log.NewLogger(log.DiscardHandler())
	}
	logCfg := oplog.ReadCLIConfig(ctx)
	if !ctx.IsSet(oplog.FormatFlagName) {
		return log.NewLogger(logging.NewConsoleHandler(oplog.AppOut(ctx), logCfg.Level))
	}
	return oplog.NewLogger(oplog.AppOut(ctx), logCfg)
}
