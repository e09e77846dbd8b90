// internal/store/store.go

// Package store persists extraction results: the product catalog, the
// append-only price history, category assignments and per-run scrape logs.
package store

import (
	"context"
	"time"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// StoredProduct is the persisted view of a product, keyed by (site_id, url).
type StoredProduct struct {
	SiteID       string
	URL          string
	Name         string
	PriceText    string
	CurrentPrice *float64
	Stock        types.StockStatus
	Quantity     *int
	ScrapedAt    time.Time
}

// Store is the persistence contract. Upsert replaces the product's current
// state; price history rows are only ever appended.
type Store interface {
	// FindByKey returns the stored product or nil when absent.
	FindByKey(ctx context.Context, siteID, url string) (*StoredProduct, error)

	// Upsert inserts or updates the product keyed by (site_id, url).
	Upsert(ctx context.Context, record types.ProductRecord) error

	// AppendPriceHistory adds one price observation.
	AppendPriceHistory(ctx context.Context, siteID, url string, price float64, at time.Time) error

	// AssignCategories replaces the product's category assignments.
	AssignCategories(ctx context.Context, siteID, url string, assignments []types.CategoryAssignment) error

	// AppendScrapeLog records one domain batch summary.
	AppendScrapeLog(ctx context.Context, log types.ScrapeLog) error

	Close() error
}
