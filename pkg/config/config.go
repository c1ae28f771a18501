// Package config loads watchparse settings from .watchparse.yaml and the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"watchparse/pkg/parser"
)

// FileName is the configuration file looked up in the working directory
const FileName = ".watchparse.yaml"

// Config represents the structure of a .watchparse.yaml file
type Config struct {
	Backend   string        `yaml:"backend,omitempty"`    // gdb or cdb
	Format    string        `yaml:"format,omitempty"`     // human, json or yaml
	MaxDepth  int           `yaml:"max_depth,omitempty"`  // brace nesting limit
	CacheSize int           `yaml:"cache_size,omitempty"` // expressions kept by the registry
	Debounce  time.Duration `yaml:"debounce,omitempty"`   // follow: wait after a write event
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Backend:   "gdb",
		Format:    "human",
		MaxDepth:  parser.DefaultMaxDepth,
		CacheSize: 128,
		Debounce:  50 * time.Millisecond,
	}
}

// Load reads path (FileName in the working directory when empty), then
// applies .env and environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FileName
	}

	content, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		var fromFile Config
		if err := yaml.Unmarshal(content, &fromFile); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		cfg.merge(&fromFile)
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(o *Config) {
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.Format != "" {
		c.Format = o.Format
	}
	if o.MaxDepth > 0 {
		c.MaxDepth = o.MaxDepth
	}
	if o.CacheSize > 0 {
		c.CacheSize = o.CacheSize
	}
	if o.Debounce > 0 {
		c.Debounce = o.Debounce
	}
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("WATCHPARSE_BACKEND")); v != "" {
		c.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("WATCHPARSE_FORMAT")); v != "" {
		c.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("WATCHPARSE_MAX_DEPTH")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WATCHPARSE_MAX_DEPTH %q: %w", v, err)
		}
		c.MaxDepth = n
	}
	if v := strings.TrimSpace(os.Getenv("WATCHPARSE_CACHE_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WATCHPARSE_CACHE_SIZE %q: %w", v, err)
		}
		c.CacheSize = n
	}
	return nil
}

// Validate checks that every field holds a usable value
func (c *Config) Validate() error {
	if _, err := parser.ParseBackend(c.Backend); err != nil {
		return err
	}
	switch c.Format {
	case "human", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format: %s", c.Format)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	return nil
}

// ParserBackend returns the configured grammar
func (c *Config) ParserBackend() parser.Backend {
	b, _ := parser.ParseBackend(c.Backend)
	return b
}
