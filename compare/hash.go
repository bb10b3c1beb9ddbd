package compare

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Hasher computes a content-addressed digest of a file
type Hasher interface {
	Hash(path string) (string, error)
}

var (
	_ Hasher = BlobHasher{}
	_ Hasher = (*GitHasher)(nil)
)

// BlobHasher computes the git blob object id of a file without invoking git.
// The result is identical to `git hash-object <path>` for files that need no
// clean/smudge filtering.
type BlobHasher struct{}

// Hash implements Hasher
func (BlobHasher) Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	h := sha1.New()
	h.Write([]byte("blob " + strconv.FormatInt(info.Size(), 10) + "\x00"))
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the git blob object id of in-memory content
func HashBytes(content []byte) string {
	h := sha1.New()
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// GitHasher delegates hashing to `git hash-object`, so the digest follows the
// repository's object format and attribute filters
type GitHasher struct {
	GitBinary string // Defaults to "git"
	RepoDir   string // Optional repository to run in
}

// Hash implements Hasher
func (g *GitHasher) Hash(path string) (string, error) {
	bin := g.GitBinary
	if bin == "" {
		bin = "git"
	}
	args := []string{"hash-object", path}
	if g.RepoDir != "" {
		args = append([]string{"-C", g.RepoDir}, args...)
	}

	cmd := exec.CommandContext(context.Background(), bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git hash-object %s failed: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}
