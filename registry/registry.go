package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ethereum-optimism/infra/op-citest/types"
	"github.com/ethereum/go-ethereum/log"
)

// Registry manages the ordered list of profiles and loads their configuration documents
type Registry struct {
	config   Config
	profiles []string
	docs     map[int]*types.ConfigDocument
	mu       sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log         log.Logger
	ConfigFiles []string // Profile configuration documents, in execution order
}

// NewRegistry creates a new registry instance. Documents are not read until Load is called.
func NewRegistry(cfg Config) (*Registry, error) {
	if len(cfg.ConfigFiles) == 0 {
		return nil, errors.New("at least one config file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	seen := make(map[string]bool, len(cfg.ConfigFiles))
	profiles := make([]string, 0, len(cfg.ConfigFiles))
	for _, path := range cfg.ConfigFiles {
		if path == "" {
			return nil, errors.New("config file path cannot be empty")
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for config '%s': %w", path, err)
		}
		if seen[abs] {
			return nil, fmt.Errorf("config file %s listed more than once", abs)
		}
		seen[abs] = true
		profiles = append(profiles, abs)
	}

	cfg.Log.Debug("Registry created", "profiles", len(profiles))

	return &Registry{
		config:   cfg,
		profiles: profiles,
		docs:     make(map[int]*types.ConfigDocument),
	}, nil
}

// Profiles returns the absolute profile document paths in declared order
func (r *Registry) Profiles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Len returns the number of profiles
func (r *Registry) Len() int {
	return len(r.profiles)
}

// Load parses the configuration document of the profile at the given index.
// A document is read at most once; later calls return the cached result.
func (r *Registry) Load(index int) (*types.ConfigDocument, error) {
	if index < 0 || index >= len(r.profiles) {
		return nil, fmt.Errorf("profile index %d out of range [0, %d)", index, len(r.profiles))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if doc, ok := r.docs[index]; ok {
		return doc, nil
	}

	doc, err := LoadDocument(r.profiles[index])
	if err != nil {
		return nil, err
	}
	r.config.Log.Info("Aggregated commands", "config", doc.Path, "commands", len(doc.Entries))
	r.docs[index] = doc
	return doc, nil
}
