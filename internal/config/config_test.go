// internal/config/config_test.go
package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
name: test
sites:
  - id: ferremax
    platform: shopify
    sitemap_url: https://ferremax.example/sitemap.xml
`

func TestLoadFromBytes_Defaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.Concurrency.Initial != 4 || cfg.Concurrency.Max != 8 || cfg.Concurrency.Min != 2 {
		t.Errorf("unexpected concurrency defaults: %+v", cfg.Concurrency)
	}
	if cfg.Concurrency.Window != 30*time.Second {
		t.Errorf("expected 30s window, got %v", cfg.Concurrency.Window)
	}
	if cfg.Scrape.MaxRetries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.Scrape.MaxRetries)
	}
	if cfg.Sites[0].SitemapKind != "auto" {
		t.Errorf("expected auto sitemap kind, got %q", cfg.Sites[0].SitemapKind)
	}
	if len(cfg.Output.Formats) != 1 || cfg.Output.Formats[0] != "json" {
		t.Errorf("expected default json output, got %v", cfg.Output.Formats)
	}
}

func TestLoadFromBytes_EnvExpansion(t *testing.T) {
	os.Setenv("PW_TEST_DSN", "postgres://scraper:secret@db/pricewatch")
	defer os.Unsetenv("PW_TEST_DSN")

	yaml := minimalYAML + `
store:
  driver: postgres
  dsn: ${PW_TEST_DSN}
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if cfg.Store.DSN != "postgres://scraper:secret@db/pricewatch" {
		t.Errorf("env expansion failed, got %q", cfg.Store.DSN)
	}
}

func TestLoadFromBytes_EnvDefault(t *testing.T) {
	yaml := minimalYAML + `
store:
  driver: sqlite3
  dsn: ${PW_MISSING_VAR:-file:pricewatch.db}
`
	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if cfg.Store.DSN != "file:pricewatch.db" {
		t.Errorf("env default failed, got %q", cfg.Store.DSN)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no sites",
			yaml: "name: empty\n",
			want: "at least one site",
		},
		{
			name: "bad platform",
			yaml: `
sites:
  - id: x
    platform: magento
    sitemap_url: https://x.example/sitemap.xml
`,
			want: "unsupported platform",
		},
		{
			name: "duplicate id",
			yaml: `
sites:
  - id: x
    platform: shopify
    sitemap_url: https://x.example/sitemap.xml
  - id: x
    platform: shopify
    sitemap_url: https://y.example/sitemap.xml
`,
			want: "duplicate site id",
		},
		{
			name: "missing sitemap",
			yaml: `
sites:
  - id: x
    platform: shopify
`,
			want: "sitemap_url is required",
		},
		{
			name: "bad driver",
			yaml: minimalYAML + `
store:
  driver: oracle
  dsn: whatever
`,
			want: "unsupported driver",
		},
		{
			name: "bad output format",
			yaml: minimalYAML + `
output:
  formats: [parquet]
`,
			want: "unsupported format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.want)
			}
		})
	}
}
