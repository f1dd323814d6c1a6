package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ExtractConfig holds concept extraction settings.
type ExtractConfig struct {
	MinFrequency int `yaml:"min_frequency"`
}

// GraphConfig holds graph persistence settings.
type GraphConfig struct {
	File string `yaml:"file"`
}

// Config holds kg configuration.
type Config struct {
	Version string        `yaml:"version"`
	Extract ExtractConfig `yaml:"extract,omitempty"`
	Graph   GraphConfig   `yaml:"graph,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Extract: ExtractConfig{
			MinFrequency: 2,
		},
		Graph: GraphConfig{
			File: "graph.json",
		},
	}
}

// Store represents a loaded KG_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the KG_HOME path, respecting the KG_HOME env var.
func Home() string {
	if h := os.Getenv("KG_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".kg")
	}
	return filepath.Join(home, ".kg")
}

// Init creates the KG_HOME directory with a default config.yaml.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("KG_HOME already exists at %s (use --force to reinitialize)", home)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads and validates an existing KG_HOME.
// Missing config fields are filled from defaults.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read KG_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfgPath := filepath.Join(s.Home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetConfigValue sets a config value by dot-path key (e.g. "extract.min_frequency").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "extract.min_frequency":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 1 {
			return fmt.Errorf("extract.min_frequency must be a positive integer")
		}
		s.Config.Extract.MinFrequency = n
	case "graph.file":
		if value == "" || filepath.IsAbs(value) || value != filepath.Base(value) {
			return fmt.Errorf("graph.file must be a bare filename inside KG_HOME")
		}
		s.Config.Graph.File = value
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: extract.min_frequency, graph.file", key)
	}
	return s.SaveConfig()
}

// Path resolves a path within KG_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// GraphPath returns the path of the persisted graph document.
func (s *Store) GraphPath() string {
	return s.Path(s.Config.Graph.File)
}

// CheckHealth verifies KG_HOME structure integrity.
func CheckHealth(home string) []Issue {
	var issues []Issue

	info, err := os.Stat(home)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing KG_HOME: %s", home)})
		return issues
	}
	if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", home)})
		return issues
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
	} else {
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		}
	}

	return issues
}
