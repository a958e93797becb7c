// Package config loads the application configuration: an optional YAML
// file, overlaid by .env files and CELLTUTOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/builder"
	"github.com/abhisek/celltutor/internal/llm"
	"github.com/abhisek/celltutor/internal/runtime"
	"github.com/abhisek/celltutor/internal/store"
)

// Config is the application configuration.
type Config struct {
	// DBPath is the SQLite file. Empty means store.DefaultDBPath.
	DBPath string `yaml:"db_path"`

	// ArtifactDir receives rendered diagrams. Empty keeps them in memory.
	ArtifactDir string `yaml:"artifact_dir"`

	// Addr is the HTTP listen address for `serve`.
	Addr string `yaml:"addr"`

	Log     LogConfig      `yaml:"log"`
	Build   builder.Config `yaml:"build"`
	Runtime runtime.Config `yaml:"runtime"`
	LLM     llm.Config     `yaml:"llm"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Addr:    ":8080",
		Log:     LogConfig{Level: "info", Format: "text"},
		Build:   builder.DefaultConfig(),
		Runtime: runtime.DefaultConfig(),
		LLM:     llm.DefaultConfig(),
	}
	if home, err := store.DataHome(); err == nil {
		cfg.ArtifactDir = filepath.Join(home, "visuals")
	}
	return cfg
}

// Load builds the configuration from defaults, the YAML file at path (or
// $CELLTUTOR_CONFIG when path is empty), .env files, and the environment,
// in increasing order of precedence.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("CELLTUTOR_CONFIG")
	}
	if err := LoadDotEnvForConfig(path); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays CELLTUTOR_* environment variables onto c.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CELLTUTOR_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("CELLTUTOR_ARTIFACT_DIR"); v != "" {
		c.ArtifactDir = v
	}
	if v := os.Getenv("CELLTUTOR_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("CELLTUTOR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CELLTUTOR_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("CELLTUTOR_DETAIL"); v != "" {
		c.Build.Detail = agent.Detail(v)
	}
	if v := os.Getenv("CELLTUTOR_QUIZ_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Build.QuizCount = n
			c.Runtime.QuizCount = n
		}
	}
	if v := os.Getenv("CELLTUTOR_SIMPLIFY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Runtime.SimplifyThreshold = f
		}
	}
	c.LLM.ApplyEnv()
}

// Validate checks settings that do not depend on a provider being usable.
// The LLM section is validated when the provider is created.
func (c Config) Validate() error {
	var errs []error
	if err := c.Build.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("build: %w", err))
	}
	if c.Runtime.Window < 1 {
		errs = append(errs, fmt.Errorf("runtime: window must be >= 1, got %d", c.Runtime.Window))
	}
	if c.Runtime.SimplifyThreshold < 0 || c.Runtime.SimplifyThreshold > 1 {
		errs = append(errs, fmt.Errorf("runtime: simplify_threshold must be within [0, 1], got %g", c.Runtime.SimplifyThreshold))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ResolveLLM returns the LLM config to use. A usable configured provider
// wins. A provider chosen through CELLTUTOR_LLM_PROVIDER is returned as is
// so that its missing key is reported. Otherwise well-known API key
// variables are checked, and without any key the offline provider is used.
func (c Config) ResolveLLM() llm.Config {
	if c.LLM.Validate() == nil || os.Getenv("CELLTUTOR_LLM_PROVIDER") != "" {
		return c.LLM
	}
	if discovered, ok := llm.DiscoverConfig(); ok {
		return discovered
	}
	offline := c.LLM
	offline.Provider = "offline"
	return offline
}
