// Package types contains shared types used across the citest harness
package types

import (
	"errors"
	"fmt"

	"github.com/google/shlex"
)

// CommandEntry is a single element of a configuration document's command list
type CommandEntry struct {
	Command      string
	Dependencies []string       // Declared output-file dependencies, relative to the document directory
	Fields       map[string]any // Every field of the entry, passed through to the batch executor
}

// StringField returns the entry field with the given key if it is a string
func (e CommandEntry) StringField(key string) (string, bool) {
	v, ok := e.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ConfigDocument is a parsed configuration document. It is immutable after load.
type ConfigDocument struct {
	Path    string         // Absolute path of the document
	Dir     string         // Absolute directory containing the document
	Entries []CommandEntry // Commands in declared order
	Raw     map[string]any // The full decoded document
}

// Commands returns the raw command strings in declared order
func (d *ConfigDocument) Commands() []string {
	commands := make([]string, 0, len(d.Entries))
	for _, e := range d.Entries {
		commands = append(commands, e.Command)
	}
	return commands
}

// CommandDescriptor is a command string split into its executable and argument list
type CommandDescriptor struct {
	Command    string
	Executable string
	Args       []string // Full argv; Args[0] is the executable token
}

// ParseCommand splits a shell-style invocation string into a CommandDescriptor.
// Quoting follows POSIX shell rules; no variable expansion is performed.
func ParseCommand(command string) (CommandDescriptor, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return CommandDescriptor{}, fmt.Errorf("failed to split command %q: %w", command, err)
	}
	if len(args) == 0 {
		return CommandDescriptor{}, errors.New("command is empty")
	}
	return CommandDescriptor{
		Command:    command,
		Executable: args[0],
		Args:       args,
	}, nil
}
