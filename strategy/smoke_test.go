package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSmokeTest(t *testing.T) {
	inner, err := New(ExitCode, testOptions())
	require.NoError(t, err)

	tests := []struct {
		name    string
		command string
		want    types.PrerequisiteOutcome
	}{
		{name: "absent", command: "", want: types.PrerequisiteAbsent},
		{name: "passes", command: "true", want: types.PrerequisitePassed},
		{name: "fails", command: "sh -c 'exit 2'", want: types.PrerequisiteFailed},
		{name: "cannot start", command: "definitely-not-a-citest-binary", want: types.PrerequisiteFailed},
		{name: "unparsable", command: "echo 'open", want: types.PrerequisiteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			smoke := WithSmokeTest(inner, tt.command, t.TempDir(), testOptions())
			assert.Equal(t, tt.want, smoke.RunPrerequisite(context.Background()))
		})
	}
}

func TestWithSmokeTest_DelegatesBatches(t *testing.T) {
	inner, err := New(ExitCode, testOptions())
	require.NoError(t, err)
	smoke := WithSmokeTest(inner, "true", t.TempDir(), testOptions())

	result, err := smoke.RunBatch(context.Background(), request(t, t.TempDir(), "echo hi", types.CommandEntry{}))
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusPassed, result.Status)

	summary := types.NewSummary(types.NoCommitInfo(), "id", "run", time.Now())
	smoke.AppendSummary(summary)
	assert.Equal(t, ExitCode, summary.Extra[StrategyKey])
	assert.Equal(t, "true", summary.Extra["smoke_command"])
}
