package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultRelPath is where a workspace keeps its config, relative to the
// workspace root.
const DefaultRelPath = ".storyloop/config.yaml"

// Load reads and parses a config from the given YAML file path, then applies
// defaults for any unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadWorkspace loads the workspace config if one exists, or returns a
// default config when the file is absent. A present-but-broken config is an
// error; silent fallback would mask typos.
func LoadWorkspace(workspaceDir string) (*Config, error) {
	path := filepath.Join(workspaceDir, DefaultRelPath)
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		applyDefaults(cfg)
		return cfg, nil
	}
	return cfg, err
}

// applyDefaults fills in defaults for fields the YAML left unset.
func applyDefaults(cfg *Config) {
	if cfg.Agent.Tool == "" {
		cfg.Agent.Tool = "claude"
	}
	if cfg.Reviewer.Tool == "" {
		cfg.Reviewer.Tool = cfg.Agent.Tool
	}
	if cfg.Loop.MaxRounds == 0 {
		cfg.Loop.MaxRounds = 3
	}
}
