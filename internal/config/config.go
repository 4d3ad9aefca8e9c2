// Package config loads trackpoint settings from an optional YAML file and the
// environment. Command-line flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andresmejia3/trackpoint/internal/gesture"
	"github.com/andresmejia3/trackpoint/internal/pose"
	"github.com/andresmejia3/trackpoint/internal/worker"
)

const (
	// DefaultStore is used when neither the file, the flags nor the environment name a store.
	DefaultStore       = "trackpoint.db"
	defaultReadTimeout = 30 * time.Second
)

type Config struct {
	Runner  worker.Config   `yaml:"runner"`
	Store   string          `yaml:"store"`
	Pose    pose.Options    `yaml:"pose"`
	Gesture gesture.Options `yaml:"gesture"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Runner: worker.Config{
			Command:     "trackpoint-runner",
			ReadTimeout: defaultReadTimeout,
		},
		Pose:    pose.DefaultOptions(),
		Gesture: gesture.DefaultOptions(),
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("TRACKPOINT_RUNNER"); v != "" {
		c.Runner.Command = v
	}
	if v := getenv("TRACKPOINT_GRAPH_DIR"); v != "" {
		c.Runner.GraphDir = v
	}
	if v := getenv("TRACKPOINT_STORE"); v != "" {
		c.Store = v
		return
	}
	if c.Store != "" {
		return
	}
	// Build the connection string from the Postgres environment, if present
	if host := getenv("POSTGRES_HOST"); host != "" {
		user := getenv("POSTGRES_USER")
		pass := getenv("POSTGRES_PASSWORD")
		name := getenv("POSTGRES_DB")
		port := getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		c.Store = fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
		return
	}
	// Fallback to a local SQLite file if nothing else is configured
	c.Store = DefaultStore
}

func (c Config) Validate() error {
	if c.Runner.Command == "" {
		return errors.New("runner command must be set")
	}
	if c.Runner.ReadTimeout < 0 {
		return fmt.Errorf("runner read timeout must not be negative, got %s", c.Runner.ReadTimeout)
	}
	if err := c.Pose.Validate(); err != nil {
		return fmt.Errorf("pose: %w", err)
	}
	if err := c.Gesture.Validate(); err != nil {
		return fmt.Errorf("gesture: %w", err)
	}
	return nil
}
