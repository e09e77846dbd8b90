// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := expandEnvironmentVariables(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// envVarPattern matches ${VAR} and ${VAR:-default} references
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// expandEnvironmentVariables substitutes ${VAR} references with environment
// values, honoring ${VAR:-default} fallbacks.
func expandEnvironmentVariables(data string) string {
	return envVarPattern.ReplaceAllStringFunc(data, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(groups[1]); ok {
			return value
		}
		return groups[2]
	})
}

// applyDefaults fills unset fields with production-safe defaults.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.Scrape.NavigationTimeout <= 0 {
		cfg.Scrape.NavigationTimeout = 45 * time.Second
	}
	if cfg.Scrape.SettleDelay <= 0 {
		cfg.Scrape.SettleDelay = 3 * time.Second
	}
	if cfg.Scrape.RequestDelay <= 0 {
		cfg.Scrape.RequestDelay = 2 * time.Second
	}
	if cfg.Scrape.MaxRetries < 0 {
		cfg.Scrape.MaxRetries = 0
	}
	if cfg.Scrape.MaxRetries == 0 {
		cfg.Scrape.MaxRetries = 2
	}
	if cfg.Scrape.RetryBaseDelay <= 0 {
		cfg.Scrape.RetryBaseDelay = 2 * time.Second
	}

	if cfg.Concurrency.Initial <= 0 {
		cfg.Concurrency.Initial = 4
	}
	if cfg.Concurrency.Max <= 0 {
		cfg.Concurrency.Max = 8
	}
	if cfg.Concurrency.Min <= 0 {
		cfg.Concurrency.Min = 2
	}
	if cfg.Concurrency.Window <= 0 {
		cfg.Concurrency.Window = 30 * time.Second
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
	if len(cfg.Output.Formats) == 0 {
		cfg.Output.Formats = []string{"json"}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	for i := range cfg.Sites {
		if cfg.Sites[i].SitemapKind == "" {
			cfg.Sites[i].SitemapKind = "auto"
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return fmt.Errorf("at least one site must be configured")
	}

	seen := make(map[string]bool, len(c.Sites))
	for i, site := range c.Sites {
		if site.ID == "" {
			return fmt.Errorf("site %d: id is required", i)
		}
		if seen[site.ID] {
			return fmt.Errorf("site %d: duplicate site id %q", i, site.ID)
		}
		seen[site.ID] = true

		if !site.Platform.IsValid() {
			return fmt.Errorf("site %q: unsupported platform %q", site.ID, site.Platform)
		}
		if site.SitemapURL == "" {
			return fmt.Errorf("site %q: sitemap_url is required", site.ID)
		}
		switch site.SitemapKind {
		case "auto", "direct", "index":
		default:
			return fmt.Errorf("site %q: invalid sitemap_kind %q", site.ID, site.SitemapKind)
		}
	}

	if c.Concurrency.Min > c.Concurrency.Max {
		return fmt.Errorf("concurrency: min (%d) exceeds max (%d)", c.Concurrency.Min, c.Concurrency.Max)
	}
	if c.Concurrency.Initial < c.Concurrency.Min || c.Concurrency.Initial > c.Concurrency.Max {
		return fmt.Errorf("concurrency: initial (%d) outside [%d, %d]",
			c.Concurrency.Initial, c.Concurrency.Min, c.Concurrency.Max)
	}

	if c.Store.Driver != "" {
		switch c.Store.Driver {
		case "postgres", "sqlite3", "mysql":
			if c.Store.DSN == "" {
				return fmt.Errorf("store: dsn is required when driver is set")
			}
		default:
			return fmt.Errorf("store: unsupported driver %q", c.Store.Driver)
		}
	}

	for _, format := range c.Output.Formats {
		switch format {
		case "json", "excel":
		default:
			return fmt.Errorf("output: unsupported format %q", format)
		}
	}

	if c.Archive.Enabled() {
		if c.Archive.Database == "" || c.Archive.Collection == "" {
			return fmt.Errorf("archive: database and collection are required when uri is set")
		}
	}

	return nil
}
