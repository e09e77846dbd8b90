// internal/config/types.go

// Package config provides configuration types and loading for pricewatch.
// It defines the settings needed to run an extraction pass: target sites,
// browser behavior, concurrency limits, selector overrides, store and
// output destinations.
package config

import (
	"time"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// Config is the top-level configuration for a run.
type Config struct {
	// Name identifies this configuration
	Name string `yaml:"name" json:"name"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Development switches the logger to console-friendly output
	Development bool `yaml:"development" json:"development"`

	// Sites lists the storefronts to scrape
	Sites []SiteConfig `yaml:"sites" json:"sites"`

	// Scrape controls per-URL navigation and retry behavior
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Concurrency controls the adaptive governor
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`

	// Browser configures the Chrome automation layer
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Store configures the persistent product store
	Store StoreConfig `yaml:"store" json:"store"`

	// Archive optionally mirrors raw records to MongoDB
	Archive ArchiveConfig `yaml:"archive,omitempty" json:"archive,omitempty"`

	// Output configures run output files
	Output OutputConfig `yaml:"output" json:"output"`

	// Metrics configures the metrics/health HTTP endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// SiteConfig describes one storefront.
type SiteConfig struct {
	// ID is the short site identifier used as the store key
	ID string `yaml:"id" json:"id"`

	// Platform is the backend family: shopify or woocommerce
	Platform types.Platform `yaml:"platform" json:"platform"`

	// SitemapURL is the discovery entry point
	SitemapURL string `yaml:"sitemap_url" json:"sitemap_url"`

	// SitemapKind selects the parse strategy: auto, direct or index.
	// Auto inspects the document root element.
	SitemapKind string `yaml:"sitemap_kind,omitempty" json:"sitemap_kind,omitempty"`

	// Selectors overrides the platform default selector table for this site
	Selectors *SelectorConfig `yaml:"selectors,omitempty" json:"selectors,omitempty"`
}

// SelectorConfig mirrors the per-site selector table. Empty entries fall
// back to the platform defaults.
type SelectorConfig struct {
	Title         string   `yaml:"title,omitempty" json:"title,omitempty"`
	Image         string   `yaml:"image,omitempty" json:"image,omitempty"`
	Price         []string `yaml:"price,omitempty" json:"price,omitempty"`
	PricePrimary  []string `yaml:"price_primary,omitempty" json:"price_primary,omitempty"`
	Stock         []string `yaml:"stock,omitempty" json:"stock,omitempty"`
	Description   []string `yaml:"description,omitempty" json:"description,omitempty"`
	SpecTable     string   `yaml:"spec_table,omitempty" json:"spec_table,omitempty"`
	SpecList      string   `yaml:"spec_list,omitempty" json:"spec_list,omitempty"`
	SKU           string   `yaml:"sku,omitempty" json:"sku,omitempty"`
	Brand         string   `yaml:"brand,omitempty" json:"brand,omitempty"`
	Presentation  string   `yaml:"presentation,omitempty" json:"presentation,omitempty"`
	StockOverride string   `yaml:"stock_override,omitempty" json:"stock_override,omitempty"`
}

// ScrapeConfig controls per-URL processing within a domain session.
type ScrapeConfig struct {
	// NavigationTimeout bounds a single page load
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`

	// SettleDelay waits for dynamic content after load
	SettleDelay time.Duration `yaml:"settle_delay" json:"settle_delay"`

	// RequestDelay is the politeness pause between URLs of one domain
	RequestDelay time.Duration `yaml:"request_delay" json:"request_delay"`

	// MaxRetries bounds retry attempts per URL (total tries = MaxRetries+1)
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// RetryBaseDelay is multiplied by the retry count for backoff
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" json:"retry_base_delay"`
}

// ConcurrencyConfig controls the adaptive concurrency governor.
type ConcurrencyConfig struct {
	Initial int `yaml:"initial" json:"initial"`
	Max     int `yaml:"max" json:"max"`
	Min     int `yaml:"min" json:"min"`

	// Window is the minimum time between governor re-evaluations
	Window time.Duration `yaml:"window" json:"window"`
}

// BrowserConfig configures the Chrome automation layer.
type BrowserConfig struct {
	Headless      bool   `yaml:"headless" json:"headless"`
	UserAgent     string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	DisableImages bool   `yaml:"disable_images" json:"disable_images"`
	ExecPath      string `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
}

// StoreConfig configures the SQL product store.
type StoreConfig struct {
	// Driver is one of postgres, sqlite3 or mysql
	Driver string `yaml:"driver" json:"driver"`

	// DSN is the driver-specific connection string; supports ${ENV} expansion
	DSN string `yaml:"dsn" json:"dsn"`
}

// ArchiveConfig optionally mirrors raw ProductRecords to MongoDB.
type ArchiveConfig struct {
	URI        string `yaml:"uri,omitempty" json:"uri,omitempty"`
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`
}

// Enabled reports whether the archive sink is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.URI != ""
}

// OutputConfig configures run output files.
type OutputConfig struct {
	// Dir is the directory receiving the per-run JSON and Excel files
	Dir string `yaml:"dir" json:"dir"`

	// Formats lists the writers to enable: json, excel
	Formats []string `yaml:"formats" json:"formats"`
}

// MetricsConfig configures the metrics/health endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
}
