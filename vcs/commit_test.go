package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommitHeader(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		expected types.CommitInfo
		wantErr  bool
	}{
		{
			name: "regular commit",
			output: "commit 3f1c2a9d0b7e4f5a6c8d9e0f1a2b3c4d5e6f7a8b\n" +
				"Author: Jane Doe <jane@example.com>\n" +
				"Date:   Mon Mar 4 10:00:00 2024 +0100\n" +
				"\n" +
				"    Fix shader cache invalidation\n" +
				"\n" +
				"    Longer body text.\n",
			expected: types.CommitInfo{
				Hash:   "3f1c2a9d0b7e4f5a6c8d9e0f1a2b3c4d5e6f7a8b",
				Author: "Author: Jane Doe <jane@example.com>",
				Date:   "Date:   Mon Mar 4 10:00:00 2024 +0100",
				Name:   "Fix shader cache invalidation",
			},
		},
		{
			name: "merge commit with CRLF",
			output: "commit abc123 (HEAD -> master)\r\n" +
				"Merge: 1111111 2222222\r\n" +
				"Author: CI Bot <ci@example.com>\r\n" +
				"Date:   Tue Mar 5 11:00:00 2024 +0000\r\n" +
				"\r\n" +
				"    Merge pull request #42\r\n",
			expected: types.CommitInfo{
				Hash:   "abc123",
				Author: "Author: CI Bot <ci@example.com>",
				Date:   "Date:   Tue Mar 5 11:00:00 2024 +0000",
				Name:   "Merge pull request #42",
			},
		},
		{
			name:    "not a commit header",
			output:  "fatal: not a git repository",
			wantErr: true,
		},
		{
			name:    "missing author",
			output:  "commit abc\nDate: today\n\n    subject",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseCommitHeader(tt.output)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, info)
		})
	}
}

func TestCommitInfoOrSentinel(t *testing.T) {
	logger := log.NewLogger(log.DiscardHandler())

	t.Run("no repo configured", func(t *testing.T) {
		assert.Equal(t, types.NoCommitInfo(), CommitInfoOrSentinel(context.Background(), logger, "", ""))
	})

	t.Run("not a repository", func(t *testing.T) {
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git not available")
		}
		dir := t.TempDir()
		assert.Equal(t, types.NoCommitInfo(), CommitInfoOrSentinel(context.Background(), logger, "", dir))
	})

	t.Run("real repository", func(t *testing.T) {
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git not available")
		}
		dir := t.TempDir()
		gitCmd := func(args ...string) {
			cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
			cmd.Env = append(os.Environ(),
				"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
				"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
			)
			out, err := cmd.CombinedOutput()
			require.NoError(t, err, string(out))
		}
		gitCmd("init", "-q")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0644))
		gitCmd("add", "README")
		gitCmd("commit", "-q", "-m", "Initial import")

		info := CommitInfoOrSentinel(context.Background(), logger, "", dir)
		assert.Len(t, info.Hash, 40)
		assert.Equal(t, "Author: Test <test@example.com>", info.Author)
		assert.Contains(t, info.Date, "Date:")
		assert.Equal(t, "Initial import", info.Name)
	})
}
