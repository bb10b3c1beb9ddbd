// Package reporting renders batch results into a browsable HTML report.
package reporting

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-citest/templates"
	"github.com/ethereum-optimism/infra/op-citest/types"
)

const (
	// ResultsFilename is the report written into the output directory
	ResultsFilename = "results.html"

	templateName = "results.html.tmpl"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// LogPathFunc returns the log file of a batch, or "" when none is written
type LogPathFunc func(profile int, result *types.BatchResult) string

type reportBatch struct {
	Command  string
	Status   types.BatchStatus
	Duration time.Duration
	Output   string
	LogPath  string
}

type reportProfile struct {
	Index   int
	Failed  int
	Results []reportBatch
}

type reportData struct {
	Identifier string
	RunID      string
	Generated  string
	Total      int
	Passed     int
	Failed     int
	Profiles   []*reportProfile
}

// HTMLSink collects batch results and writes results.html when the run completes
type HTMLSink struct {
	tmpl       *template.Template
	outputDir  string
	identifier string
	runID      string
	logPath    LogPathFunc
	now        func() time.Time

	mu       sync.Mutex
	profiles []*reportProfile
}

// NewHTMLSink creates a sink writing into outputDir. logPath may be nil.
func NewHTMLSink(outputDir, identifier, runID string, logPath LogPathFunc) (*HTMLSink, error) {
	tmpl, err := template.New(templateName).Funcs(templates.GetTemplateFunc()).ParseFS(templateFS, "templates/"+templateName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return &HTMLSink{
		tmpl:       tmpl,
		outputDir:  outputDir,
		identifier: identifier,
		runID:      runID,
		logPath:    logPath,
		now:        time.Now,
	}, nil
}

// Consume collects a batch result for later HTML generation
func (s *HTMLSink) Consume(profile int, result *types.BatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p *reportProfile
	if n := len(s.profiles); n > 0 && s.profiles[n-1].Index == profile {
		p = s.profiles[n-1]
	} else {
		p = &reportProfile{Index: profile}
		s.profiles = append(s.profiles, p)
	}

	batch := reportBatch{
		Command:  result.Command,
		Status:   result.Status,
		Duration: result.Duration,
		Output:   stripansi.Strip(result.ConsoleOutput),
	}
	if s.logPath != nil {
		if path := s.logPath(profile, result); path != "" {
			if rel, err := filepath.Rel(s.outputDir, path); err == nil {
				path = filepath.ToSlash(rel)
			}
			batch.LogPath = path
		}
	}
	if result.Failed() {
		p.Failed++
	}
	p.Results = append(p.Results, batch)
	return nil
}

// Complete renders the collected results into results.html
func (s *HTMLSink) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := reportData{
		Identifier: s.identifier,
		RunID:      s.runID,
		Generated:  s.now().UTC().Format(time.RFC3339),
		Profiles:   s.profiles,
	}
	for _, p := range s.profiles {
		data.Total += len(p.Results)
		data.Failed += p.Failed
	}
	data.Passed = data.Total - data.Failed

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to format HTML: %w", err)
	}

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", s.outputDir, err)
	}
	if err := os.WriteFile(s.Path(), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}

// Path returns the report file
func (s *HTMLSink) Path() string {
	return filepath.Join(s.outputDir, ResultsFilename)
}
