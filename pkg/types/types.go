// pkg/types/types.go
package types

import (
	"net/url"
	"strings"
	"time"
)

// Platform identifies the storefront backend family a site runs on.
type Platform string

const (
	PlatformShopify     Platform = "shopify"
	PlatformWooCommerce Platform = "woocommerce"
)

// ValidPlatforms returns all supported platform values
func ValidPlatforms() []Platform {
	return []Platform{PlatformShopify, PlatformWooCommerce}
}

// IsValid checks if the platform is a supported value
func (p Platform) IsValid() bool {
	for _, valid := range ValidPlatforms() {
		if p == valid {
			return true
		}
	}
	return false
}

// StockStatus represents product availability as persisted by the store
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockUnknown    StockStatus = "unknown"
)

// ExtractionTask is one unit of scraping work: a single candidate product URL
// discovered via a sitemap.
type ExtractionTask struct {
	URL      string   `json:"url"`
	SiteID   string   `json:"site_id"`
	Platform Platform `json:"platform"`
	Retries  int      `json:"retries"`
}

// Host returns the hostname portion of the task URL, used to group tasks
// into per-domain batches.
func (t ExtractionTask) Host() string {
	u, err := url.Parse(t.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// ProductRecord is the normalized result of processing one ExtractionTask.
// Every task produces exactly one record: a successful extraction, a
// non-product verdict, or a terminal error.
type ProductRecord struct {
	Name         string            `json:"name"`
	PriceText    string            `json:"price_text"`
	Price        *float64          `json:"price,omitempty"`
	Stock        StockStatus       `json:"stock"`
	Quantity     *int              `json:"quantity,omitempty"`
	URL          string            `json:"url"`
	ImageURL     string            `json:"image_url,omitempty"`
	SiteID       string            `json:"site_id"`
	Platform     Platform          `json:"platform"`
	SKU          string            `json:"sku,omitempty"`
	Brand        string            `json:"brand,omitempty"`
	Presentation string            `json:"presentation,omitempty"`
	Description  string            `json:"description,omitempty"`
	Specs        map[string]string `json:"specs,omitempty"`
	ScrapedAt    time.Time         `json:"scraped_at"`

	// Error is set for non-product verdicts and terminal failures; the
	// record still counts toward the run totals.
	Error string `json:"error,omitempty"`
}

// IsProduct reports whether the record holds extracted product data rather
// than a verdict or failure marker.
func (r ProductRecord) IsProduct() bool {
	return r.Error == "" && r.Name != ""
}

// ScrapeStatus is the terminal state of a per-domain batch
type ScrapeStatus string

const (
	ScrapeCompleted ScrapeStatus = "completed"
	ScrapeFailed    ScrapeStatus = "failed"
)

// ScrapeLog summarizes one domain batch within a run
type ScrapeLog struct {
	SiteID       string       `json:"site_id"`
	Status       ScrapeStatus `json:"status"`
	Processed    int          `json:"processed"`
	ErrorCount   int          `json:"error_count"`
	ErrorDetails string       `json:"error_details,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
}

// CategoryAssignment is a scored taxonomy match for a product
type CategoryAssignment struct {
	Slug  string `json:"slug"`
	Score int    `json:"score"`
}
