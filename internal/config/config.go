package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Generator GeneratorConfig `yaml:"generator"`
	Diagrams  DiagramsConfig  `yaml:"diagrams"`
	Cache     CacheConfig     `yaml:"cache"`
	Site      SiteConfig      `yaml:"site"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Watch     WatchConfig     `yaml:"watch"`
}

// GeneratorConfig configures the external diagram generator.
type GeneratorConfig struct {
	Command string `yaml:"command,omitempty"` // defaults to "pyreverse"
	Format  string `yaml:"format,omitempty"`  // "png", "svg" or "dot"
	Timeout string `yaml:"timeout,omitempty"` // Go duration string, e.g. "2m"
}

// DiagramsConfig configures diagram placement and post-processing.
type DiagramsConfig struct {
	Dir      string `yaml:"dir,omitempty"`       // created directly under the source dir
	MaxWidth int    `yaml:"max_width,omitempty"` // images wider than this are rescaled
	NoResize bool   `yaml:"no_resize,omitempty"` // disable image post-processing entirely
}

// CacheConfig configures the diagram cache. An empty path disables caching.
type CacheConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SiteConfig configures rendered page output.
type SiteConfig struct {
	Title string `yaml:"title,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint used in watch mode.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

// WatchConfig configures continuous rebuild behavior.
type WatchConfig struct {
	Debounce        string `yaml:"debounce,omitempty"`         // Go duration string
	RebuildInterval string `yaml:"rebuild_interval,omitempty"` // optional periodic full rebuild
}

// ValidFormats lists the output formats the generator may be asked for.
var ValidFormats = []string{"png", "svg", "dot"}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		// Don't fail if .env doesn't exist, just note it
		fmt.Fprintf(os.Stderr, "Note: .env file couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Generator.Command == "" {
		c.Generator.Command = "pyreverse"
	}
	if c.Generator.Format == "" {
		c.Generator.Format = "png"
	}
	if c.Generator.Timeout == "" {
		c.Generator.Timeout = "2m"
	}
	if c.Diagrams.Dir == "" {
		c.Diagrams.Dir = "uml"
	}
	if c.Diagrams.MaxWidth == 0 {
		c.Diagrams.MaxWidth = 1000
	}
	if c.Site.Title == "" {
		c.Site.Title = "Documentation"
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = "2s"
	}
}

// Validate checks the configuration for values the build cannot work with.
func (c *Config) Validate() error {
	valid := false
	for _, f := range ValidFormats {
		if c.Generator.Format == f {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid generator format %q, expected one of %v", c.Generator.Format, ValidFormats)
	}
	if c.Diagrams.MaxWidth < 0 {
		return fmt.Errorf("diagrams.max_width must be positive, got %d", c.Diagrams.MaxWidth)
	}
	if _, err := c.GeneratorTimeout(); err != nil {
		return err
	}
	if _, err := c.WatchDebounce(); err != nil {
		return err
	}
	if _, err := c.RebuildInterval(); err != nil {
		return err
	}
	return nil
}

// GeneratorTimeout returns the parsed generator timeout.
func (c *Config) GeneratorTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Generator.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid generator.timeout %q: %w", c.Generator.Timeout, err)
	}
	return d, nil
}

// WatchDebounce returns the parsed watch debounce interval.
func (c *Config) WatchDebounce() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
	}
	return d, nil
}

// RebuildInterval returns the parsed periodic rebuild interval,
// or zero when no interval is configured.
func (c *Config) RebuildInterval() (time.Duration, error) {
	if c.Watch.RebuildInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Watch.RebuildInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid watch.rebuild_interval %q: %w", c.Watch.RebuildInterval, err)
	}
	return d, nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := `# umlgen configuration
generator:
  command: pyreverse
  format: png
  timeout: 2m

diagrams:
  dir: uml
  max_width: 1000

cache:
  path: .umlgen/cache.db

site:
  title: Documentation

metrics:
  enabled: false
  listen: ":9090"

watch:
  debounce: 2s
  # rebuild_interval: 10m
`
	if err := os.WriteFile(configPath, []byte(example), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
