// Package vcs reads commit metadata of the repository whose build artifacts are under test.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/ethereum/go-ethereum/log"
)

var commitHashRegex = regexp.MustCompile(`^commit (\w+)`)

// ReadHeadCommit runs `git show` in repoDir and parses the HEAD commit header
func ReadHeadCommit(ctx context.Context, gitBinary, repoDir string) (types.CommitInfo, error) {
	if gitBinary == "" {
		gitBinary = "git"
	}
	cmd := exec.CommandContext(ctx, gitBinary, "-C", repoDir, "show", "--no-patch", "--format=medium", "HEAD")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return types.CommitInfo{}, fmt.Errorf("git show in %s failed: %w: %s", repoDir, err, strings.TrimSpace(stderr.String()))
	}
	return ParseCommitHeader(string(out))
}

// ParseCommitHeader extracts hash, author line, date line and subject from the
// default (medium) `git show` output
func ParseCommitHeader(output string) (types.CommitInfo, error) {
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(output), "\r", ""), "\n")
	if len(lines) == 0 {
		return types.CommitInfo{}, errors.New("empty commit header")
	}

	m := commitHashRegex.FindStringSubmatch(lines[0])
	if m == nil {
		return types.CommitInfo{}, fmt.Errorf("unexpected first line %q", lines[0])
	}

	info := types.CommitInfo{Hash: m[1]}
	i := 1
	for ; i < len(lines) && lines[i] != ""; i++ {
		switch {
		case strings.HasPrefix(lines[i], "Author:"):
			info.Author = lines[i]
		case strings.HasPrefix(lines[i], "Date:"):
			info.Date = lines[i]
		}
	}
	for ; i < len(lines); i++ {
		if subject := strings.TrimSpace(lines[i]); subject != "" {
			info.Name = subject
			break
		}
	}

	if info.Author == "" || info.Date == "" {
		return types.CommitInfo{}, errors.New("commit header is missing author or date")
	}
	return info, nil
}

// CommitInfoOrSentinel returns HEAD metadata for repoDir, or sentinel values
// when repoDir is empty or git fails. Failures are logged, never returned.
func CommitInfoOrSentinel(ctx context.Context, logger log.Logger, gitBinary, repoDir string) types.CommitInfo {
	if repoDir == "" {
		logger.Warn("No repository directory configured, commit data will be empty")
		return types.NoCommitInfo()
	}
	info, err := ReadHeadCommit(ctx, gitBinary, repoDir)
	if err != nil {
		logger.Warn("Failed to read commit data", "repo", repoDir, "err", err)
		return types.NoCommitInfo()
	}
	return info
}
