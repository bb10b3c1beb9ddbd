package flags

import (
	"strings"
	"testing"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")

			expectedEnvVar := opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix)
			require.Equal(t, expectedEnvVar, envFlags[0])
			require.True(t, strings.HasPrefix(envFlags[0], EnvVarPrefix+"_"))
		})
	}
}

func TestStrategyFlag(t *testing.T) {
	assert.Equal(t, "exit-code", Strategy.Value)
	for _, name := range StrategyNames {
		assert.NoError(t, validateStrategy(name))
	}
	for _, bad := range []string{"", "EXIT-CODE", "pixel"} {
		err := validateStrategy(bad)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "strategy must be one of")
	}

	app := &cli.App{
		Flags:  []cli.Flag{Strategy},
		Action: func(ctx *cli.Context) error { return nil },
	}
	testCases := []struct {
		name        string
		args        []string
		shouldError bool
	}{
		{"valid", []string{"app", "--strategy", "output-file"}, false},
		{"invalid value", []string{"app", "--strategy", "invalid"}, true},
		{"no flag uses default", []string{"app"}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := app.Run(tc.args)
			if tc.shouldError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckRequired(t *testing.T) {
	run := func(args ...string) error {
		app := &cli.App{
			Flags: []cli.Flag{
				&cli.StringSliceFlag{Name: Config.Name},
				&cli.StringFlag{Name: Name.Name},
			},
			Action: CheckRequired,
		}
		return app.Run(append([]string{"app"}, args...))
	}

	assert.NoError(t, run("--config", "a.json", "--name", "render"))
	assert.ErrorContains(t, run("--name", "render"), "flag config is required")
	assert.ErrorContains(t, run("--config", "a.json"), "flag name is required")
}

func TestConfigFlagRepeats(t *testing.T) {
	var got []string
	app := &cli.App{
		Flags: []cli.Flag{&cli.StringSliceFlag{Name: Config.Name}},
		Action: func(ctx *cli.Context) error {
			got = ctx.StringSlice(Config.Name)
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app", "--config", "a.json", "--config", "b.yaml"}))
	assert.Equal(t, []string{"a.json", "b.yaml"}, got)
}
