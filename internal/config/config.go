package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	DatabasePath string `yaml:"database_path"`
	ManifestDir  string `yaml:"manifest_dir"`
	ListenAddr   string `yaml:"listen_addr"`
	Workers      int    `yaml:"workers"`
	LogLevel     string `yaml:"log_level"`

	// Geometry used by `composer new` when flags leave a field unset
	Defaults DefaultsConfig `yaml:"defaults"`

	Slate SlateConfig `yaml:"slate"`
}

type DefaultsConfig struct {
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	FPS              float64 `yaml:"fps"`
	DurationInFrames int     `yaml:"duration_in_frames"`
}

type SlateConfig struct {
	MaxEdge int `yaml:"max_edge"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Write prints the configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	if c.Defaults.Width <= 0 || c.Defaults.Height <= 0 {
		return fmt.Errorf("invalid default size: %dx%d", c.Defaults.Width, c.Defaults.Height)
	}
	if c.Defaults.FPS <= 0 {
		return fmt.Errorf("invalid default fps: %v", c.Defaults.FPS)
	}
	if c.Defaults.DurationInFrames <= 0 {
		return fmt.Errorf("invalid default duration: %d frames", c.Defaults.DurationInFrames)
	}
	if c.Slate.MaxEdge < 64 || c.Slate.MaxEdge > 4096 {
		return fmt.Errorf("invalid slate max edge: %d", c.Slate.MaxEdge)
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DatabasePath: "composer.db",
		ManifestDir:  "manifests",
		ListenAddr:   "127.0.0.1:8080",
		Workers:      4,
		LogLevel:     "info",
		Defaults: DefaultsConfig{
			Width:            1280,
			Height:           720,
			FPS:              30,
			DurationInFrames: 150,
		},
		Slate: SlateConfig{
			MaxEdge: 640,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./composer.yaml",
		"./composer.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".composer", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
