package runner

import (
	"fmt"
	"os"
)

// dirScope remembers a working directory so it can be restored later
type dirScope struct {
	prev string
}

// enterDir saves the current working directory and changes to dir. An empty
// dir only saves the current directory.
func enterDir(dir string) (*dirScope, error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	if dir != "" {
		if err := changeDir(dir); err != nil {
			return nil, err
		}
	}
	return &dirScope{prev: prev}, nil
}

// Restore changes back to the saved directory
func (s *dirScope) Restore() error {
	return changeDir(s.prev)
}

func changeDir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("failed to change working directory to %s: %w", dir, err)
	}
	return nil
}
