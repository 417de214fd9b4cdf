package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/watchlog/config.yaml"

// Config holds all watchlog configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Logging  LoggingConfig  `yaml:"logging"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	Backend    string `yaml:"backend"`
	SQLiteFile string `yaml:"sqlite_file"`
}

type DaemonConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AuthToken      string `yaml:"auth_token"`
	MaxRequestSize int    `yaml:"max_request_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type YouTubeConfig struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type PipelineConfig struct {
	DebounceWindowSeconds int `yaml:"debounce_window_seconds"`
	DedupWindowSeconds    int `yaml:"dedup_window_seconds"`
}

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML, or
// fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Backend) {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend)
	}
	if c.Daemon.Port < 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port: out of range: %d", c.Daemon.Port)
	}
	if c.Pipeline.DebounceWindowSeconds < 0 || c.Pipeline.DedupWindowSeconds < 0 {
		return fmt.Errorf("pipeline: windows must not be negative")
	}
	return nil
}

// DataDir returns the expanded storage directory.
func (c *Config) DataDir() (string, error) {
	return expandPath(c.Storage.Path)
}

// SQLitePath returns the full path of the SQLite database.
func (c *Config) SQLitePath() (string, error) {
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// LogFile returns the expanded log file path, relative paths resolved
// against the data directory. Empty disables file logging.
func (c *Config) LogFile() (string, error) {
	if c.Logging.File == "" {
		return "", nil
	}
	p, err := expandPath(c.Logging.File)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// ListenAddr returns host:port for the ingest daemon.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Daemon.Host, c.Daemon.Port)
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.YouTube.TimeoutSeconds) * time.Second
}

func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Pipeline.DebounceWindowSeconds) * time.Second
}

func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Pipeline.DedupWindowSeconds) * time.Second
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
