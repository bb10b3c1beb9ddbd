package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum-optimism/infra/op-citest/types"
)

const (
	RunDirectoryPrefix = "citest-" // Standardized prefix for run directories
	AllLogsFilename    = "all.log"
	PassedDirName      = "passed"
	FailedDirName      = "failed"

	maxCommandFilenameLen = 80
)

// FileLogger writes the output of every batch to files under a per-run directory:
// one file per batch in passed/ or failed/, plus a combined all.log.
type FileLogger struct {
	logDir       string                // Root log directory of the run
	passedDir    string                // Directory for passed batches
	failedDir    string                // Directory for failed batches
	allLogsFile  string                // Path to the combined log file
	identifier   string                // Test identifier
	runID        string                // Current run ID
	mu           sync.Mutex            // Protects asyncWriters
	asyncWriters map[string]*AsyncFile // Map of async file writers
	now          func() time.Time
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(filepath string) (*AsyncFile, error) {
	file, err := os.Create(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", filepath, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100), // Buffer channel to reduce blocking
	}

	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	// Make a copy of the data to avoid race conditions
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	af.queue <- dataCopy
	return nil
}

// processQueue processes the write queue in the background
func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		_, err := af.file.Write(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	// Wait for all writes to complete
	af.wg.Wait()
	return af.file.Close()
}

// NewFileLogger creates the run directory <baseDir>/citest-<runID> and its
// passed/failed subdirectories
func NewFileLogger(baseDir string, runID string, identifier string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", baseDir, err)
	}

	logDir := filepath.Join(abs, RunDirectoryPrefix+runID)
	passedDir := filepath.Join(logDir, PassedDirName)
	failedDir := filepath.Join(logDir, FailedDirName)

	for _, dir := range []string{logDir, passedDir, failedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &FileLogger{
		logDir:       logDir,
		passedDir:    passedDir,
		failedDir:    failedDir,
		allLogsFile:  filepath.Join(logDir, AllLogsFilename),
		identifier:   identifier,
		runID:        runID,
		asyncWriters: make(map[string]*AsyncFile),
		now:          time.Now,
	}, nil
}

// getAsyncWriter gets or creates an AsyncFile for the given path
func (l *FileLogger) getAsyncWriter(path string) (*AsyncFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if writer, exists := l.asyncWriters[path]; exists {
		return writer, nil
	}

	writer, err := NewAsyncFile(path)
	if err != nil {
		return nil, err
	}
	l.asyncWriters[path] = writer
	return writer, nil
}

// closeAllWriters closes all async writers
func (l *FileLogger) closeAllWriters() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, writer := range l.asyncWriters {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.asyncWriters = make(map[string]*AsyncFile)
	return firstErr
}

// Consume writes the batch to its own file and appends it to all.log
func (l *FileLogger) Consume(profile int, result *types.BatchResult) error {
	block := l.formatBatch(profile, result)

	if err := os.WriteFile(l.BatchLogPath(profile, result), []byte(block), 0644); err != nil {
		return fmt.Errorf("failed to write batch log: %w", err)
	}

	writer, err := l.getAsyncWriter(l.allLogsFile)
	if err != nil {
		return err
	}
	return writer.Write([]byte(block))
}

// Complete flushes and closes all.log
func (l *FileLogger) Complete() error {
	return l.closeAllWriters()
}

// BatchLogPath returns the file a batch is written to
func (l *FileLogger) BatchLogPath(profile int, result *types.BatchResult) string {
	dir := l.passedDir
	if result.Failed() {
		dir = l.failedDir
	}
	name := fmt.Sprintf("p%d_b%d_%s.log", profile, result.Index,
		truncateString(safeFilename(result.Command), maxCommandFilenameLen))
	return filepath.Join(dir, name)
}

// GetBaseDir returns the log directory of the run
func (l *FileLogger) GetBaseDir() string {
	return l.logDir
}

// GetFailedDir returns the directory containing logs for failed batches
func (l *FileLogger) GetFailedDir() string {
	return l.failedDir
}

// GetPassedDir returns the directory containing logs for passed batches
func (l *FileLogger) GetPassedDir() string {
	return l.passedDir
}

// GetAllLogsFile returns the path to the all logs file
func (l *FileLogger) GetAllLogsFile() string {
	return l.allLogsFile
}

// GetRunID returns the current runID
func (l *FileLogger) GetRunID() string {
	return l.runID
}

func (l *FileLogger) formatBatch(profile int, result *types.BatchResult) string {
	var content strings.Builder

	fmt.Fprintf(&content, "\n")
	fmt.Fprintf(&content, "┌─────────────────────────────────────────────────────────────────────┐\n")
	fmt.Fprintf(&content, "│ COMMAND: %-61s │\n", truncateString(result.Command, 61))
	fmt.Fprintf(&content, "├─────────────────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(&content, "│ Status:   %-62s │\n", result.Status)
	fmt.Fprintf(&content, "│ Test:     %-62s │\n", truncateString(l.identifier, 62))
	fmt.Fprintf(&content, "│ Profile:  %-62d │\n", profile)
	fmt.Fprintf(&content, "│ Batch:    %-62d │\n", result.Index)
	fmt.Fprintf(&content, "│ Duration: %-62s │\n", result.Duration)
	if result.TimedOut {
		fmt.Fprintf(&content, "│ Timed out: %-61s │\n", "yes")
	}
	fmt.Fprintf(&content, "│ Time:     %-62s │\n", l.now().Format(time.RFC3339))
	fmt.Fprintf(&content, "└─────────────────────────────────────────────────────────────────────┘\n\n")

	if msg, ok := result.Details["error"].(string); ok && msg != "" {
		fmt.Fprintf(&content, "ERROR:\n")
		fmt.Fprintf(&content, "~~~~~~\n")
		fmt.Fprintf(&content, "%s\n\n", msg)
	}

	if result.ConsoleOutput != "" {
		fmt.Fprintf(&content, "OUTPUT:\n")
		fmt.Fprintf(&content, "~~~~~~~\n")
		fmt.Fprintf(&content, "%s\n", indentText(stripansi.Strip(result.ConsoleOutput), "  "))
	}

	if stderr, ok := result.Details["stderr"].(string); ok && stderr != "" {
		fmt.Fprintf(&content, "STDERR:\n")
		fmt.Fprintf(&content, "~~~~~~~\n")
		fmt.Fprintf(&content, "%s\n", indentText(stripansi.Strip(stderr), "  "))
	}

	fmt.Fprintf(&content, "\n")
	return content.String()
}

// safeFilename converts a string to a safe filename by replacing problematic characters
func safeFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	s = strings.ReplaceAll(s, "?", "_")
	s = strings.ReplaceAll(s, "\"", "_")
	s = strings.ReplaceAll(s, "'", "_")
	s = strings.ReplaceAll(s, "<", "_")
	s = strings.ReplaceAll(s, ">", "_")
	s = strings.ReplaceAll(s, "|", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "...", "")
	return s
}

// indentText adds indentation to each line of text for better readability
func indentText(text, indent string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// truncateString truncates a string to the specified max length
// and adds an ellipsis if needed
// truncateString shortens s to at most maxLen runes, never splitting a rune
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
