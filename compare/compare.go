// Package compare decides whether two artifacts are equivalent, either byte for
// byte or by content digest with an optional persisted baseline digest.
package compare

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// Mode selects how two artifacts are compared
type Mode int

const (
	ModeDigest Mode = iota
	ModeByteExact
)

func (m Mode) String() string {
	switch m {
	case ModeByteExact:
		return "byte-exact"
	case ModeDigest:
		return "digest"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const chunkSize = 64 * 1024

// Baseline names a side file holding a previously confirmed digest
type Baseline struct {
	Path string
	Save bool // Overwrite the baseline with the digest after a confirmed match
}

// Checker compares artifacts
type Checker struct {
	Mode   Mode
	Hasher Hasher
	Log    log.Logger
}

// NewChecker creates a checker. A nil hasher defaults to BlobHasher.
func NewChecker(mode Mode, hasher Hasher, logger log.Logger) *Checker {
	if hasher == nil {
		hasher = BlobHasher{}
	}
	if logger == nil {
		logger = log.New()
	}
	return &Checker{Mode: mode, Hasher: hasher, Log: logger}
}

// Equal reports whether the two artifacts are equivalent under the checker's mode
func (c *Checker) Equal(a, b string) (bool, error) {
	return c.EqualWithBaseline(a, b, Baseline{})
}

// EqualWithBaseline compares a and b. In digest mode, when baseline.Path is set,
// the matching digest must also match the baseline file's first line. A missing
// baseline file is logged and ignored. On a confirmed match with baseline.Save
// set, the digest is written to the baseline file.
func (c *Checker) EqualWithBaseline(a, b string, baseline Baseline) (bool, error) {
	if c.Mode == ModeByteExact {
		return equalBytes(a, b)
	}

	hashA, err := c.Hasher.Hash(a)
	if err != nil {
		return false, err
	}
	hashB, err := c.Hasher.Hash(b)
	if err != nil {
		return false, err
	}

	if hashA != hashB {
		c.Log.Warn("Files have different content hashes", "a", a, "hashA", hashA, "b", b, "hashB", hashB)
		return false, nil
	}
	if baseline.Path == "" {
		return true, nil
	}

	saved, err := ReadBaseline(baseline.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.Log.Warn("Could not compare with stored hash, baseline file does not exist",
			"hashA", hashA, "hashB", hashB, "baseline", baseline.Path)
	case err != nil:
		return false, err
	case saved != hashA:
		c.Log.Warn("Files differ from stored baseline hash", "hash", hashA, "baseline", saved, "path", baseline.Path)
		return false, nil
	}

	if baseline.Save {
		if err := WriteBaseline(baseline.Path, hashA); err != nil {
			return false, err
		}
		c.Log.Info("Saved hash", "hash", hashA, "path", baseline.Path)
	}
	return true, nil
}

// ReadBaseline returns the first line of a baseline file, trimmed
func ReadBaseline(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read baseline %s: %w", path, err)
	}
	return strings.TrimSpace(line), nil
}

// WriteBaseline replaces the baseline file's content with the digest
func WriteBaseline(path, digest string) error {
	if err := os.WriteFile(path, []byte(digest), 0644); err != nil {
		return fmt.Errorf("failed to write baseline %s: %w", path, err)
	}
	return nil
}

func equalBytes(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	sa, err := fa.Stat()
	if err != nil {
		return false, err
	}
	sb, err := fb.Stat()
	if err != nil {
		return false, err
	}
	if sa.Size() != sb.Size() {
		return false, nil
	}

	bufA := make([]byte, chunkSize)
	bufB := make([]byte, chunkSize)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA := errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		doneB := errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		if errA != nil && !doneA {
			return false, errA
		}
		if errB != nil && !doneB {
			return false, errB
		}
		if doneA || doneB {
			return doneA == doneB, nil
		}
	}
}
