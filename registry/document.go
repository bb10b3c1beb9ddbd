package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum-optimism/infra/op-citest/types"
	"gopkg.in/yaml.v3"
)

const (
	// DataField is the document field holding the command list
	DataField = "data"
	// CommandField is the entry field holding the invocation string
	CommandField = "command"
	// DependenciesField is the optional entry field listing dependency files
	DependenciesField = "dependencies"
)

// ParseError reports a configuration document that is not well-formed
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse config %s: %v", e.Path, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError checks if the error is or wraps a ParseError
func IsParseError(err error) bool {
	var parseErr *ParseError
	return err != nil && errors.As(err, &parseErr)
}

// LoadDocument reads and parses a configuration document. YAML is used for
// .yaml and .yml files, JSON for everything else.
func LoadDocument(path string) (*types.ConfigDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &ParseError{Path: abs, Err: fmt.Errorf("reading config file: %w", err)}
	}

	raw, err := decode(abs, data)
	if err != nil {
		return nil, &ParseError{Path: abs, Err: err}
	}

	entries, err := parseEntries(raw)
	if err != nil {
		return nil, &ParseError{Path: abs, Err: err}
	}

	return &types.ConfigDocument{
		Path:    abs,
		Dir:     filepath.Dir(abs),
		Entries: entries,
		Raw:     raw,
	}, nil
}

func decode(path string, data []byte) (map[string]any, error) {
	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
	}
	if raw == nil {
		return nil, errors.New("document is empty")
	}
	return raw, nil
}

func parseEntries(raw map[string]any) ([]types.CommandEntry, error) {
	field, ok := raw[DataField]
	if !ok {
		return nil, fmt.Errorf("missing %q field", DataField)
	}
	list, ok := field.([]any)
	if !ok {
		return nil, fmt.Errorf("%q field must be an array, got %T", DataField, field)
	}

	entries := make([]types.CommandEntry, 0, len(list))
	for i, item := range list {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: entry must be an object, got %T", DataField, i, item)
		}
		command, ok := fields[CommandField].(string)
		if !ok || strings.TrimSpace(command) == "" {
			return nil, fmt.Errorf("%s[%d]: missing %q string", DataField, i, CommandField)
		}
		if _, err := types.ParseCommand(command); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", DataField, i, err)
		}
		deps, err := parseDependencies(fields[DependenciesField])
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", DataField, i, err)
		}
		entries = append(entries, types.CommandEntry{
			Command:      command,
			Dependencies: deps,
			Fields:       fields,
		})
	}
	return entries, nil
}

func parseDependencies(v any) ([]string, error) {
	switch deps := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{deps}, nil
	case []any:
		out := make([]string, 0, len(deps))
		for _, d := range deps {
			s, ok := d.(string)
			if !ok {
				return nil, fmt.Errorf("%q must contain strings, got %T", DependenciesField, d)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%q must be a string or array of strings, got %T", DependenciesField, v)
	}
}
