// internal/extract/selectors.go

// Package extract turns a classified product page into a normalized
// ProductRecord. Selector tables are registered per (platform, site) with a
// generic per-platform default; adding a site is a table insertion, not a
// code branch.
package extract

import (
	"sync"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// SelectorSet is the per-site selector table. Empty fields fall back to the
// platform default at lookup time.
type SelectorSet struct {
	Title string
	Image string

	// PricePrimary holds high-confidence site-specific selectors tried
	// before the general fallback chain (covers storefront quirks such as
	// the currency symbol and value living in sibling nodes).
	PricePrimary []string

	// Price is the ordered general fallback chain.
	Price []string

	Stock       []string
	Description []string

	SpecTable string
	SpecList  string

	SKU          string
	Brand        string
	Presentation string

	// StockOverride is a labeled stock block that wins over the Stock chain.
	StockOverride string
}

// merge fills empty fields of s from def.
func (s SelectorSet) merge(def SelectorSet) SelectorSet {
	if s.Title == "" {
		s.Title = def.Title
	}
	if s.Image == "" {
		s.Image = def.Image
	}
	if len(s.PricePrimary) == 0 {
		s.PricePrimary = def.PricePrimary
	}
	if len(s.Price) == 0 {
		s.Price = def.Price
	}
	if len(s.Stock) == 0 {
		s.Stock = def.Stock
	}
	if len(s.Description) == 0 {
		s.Description = def.Description
	}
	if s.SpecTable == "" {
		s.SpecTable = def.SpecTable
	}
	if s.SpecList == "" {
		s.SpecList = def.SpecList
	}
	if s.SKU == "" {
		s.SKU = def.SKU
	}
	if s.Brand == "" {
		s.Brand = def.Brand
	}
	if s.Presentation == "" {
		s.Presentation = def.Presentation
	}
	if s.StockOverride == "" {
		s.StockOverride = def.StockOverride
	}
	return s
}

type registryKey struct {
	platform types.Platform
	siteID   string
}

// Registry resolves selector tables by (platform, site).
type Registry struct {
	mu       sync.RWMutex
	sites    map[registryKey]SelectorSet
	defaults map[types.Platform]SelectorSet
}

// NewRegistry builds a Registry preloaded with the platform defaults.
func NewRegistry() *Registry {
	return &Registry{
		sites: make(map[registryKey]SelectorSet),
		defaults: map[types.Platform]SelectorSet{
			types.PlatformShopify:     shopifyDefaults,
			types.PlatformWooCommerce: wooCommerceDefaults,
		},
	}
}

// Register installs a site-specific table. Empty fields inherit the platform
// default.
func (r *Registry) Register(platform types.Platform, siteID string, set SelectorSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[registryKey{platform, siteID}] = set
}

// Lookup returns the effective selector table for a site.
func (r *Registry) Lookup(platform types.Platform, siteID string) SelectorSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def := r.defaults[platform]
	if set, ok := r.sites[registryKey{platform, siteID}]; ok {
		return set.merge(def)
	}
	return def
}

var shopifyDefaults = SelectorSet{
	Title: "h1.product__title, h1.product-single__title, .product-title h1",
	Image: ".product__media img, .product-single__photo img, .product-gallery img",
	Price: []string{
		".price__regular .price-item",
		".product__price",
		"span.price",
		".price",
	},
	Stock: []string{
		".product__inventory",
		".product-inventory",
		".stock",
	},
	Description: []string{
		".product__description",
		".product-single__description",
		"#product-description",
	},
	SpecTable:     "table.product-specs, .product__description table",
	SpecList:      ".product__description ul",
	SKU:           ".variant-sku, .product__sku",
	Brand:         ".product__vendor, .product-vendor",
	StockOverride: "",
}

var wooCommerceDefaults = SelectorSet{
	Title: "h1.product_title",
	Image: ".woocommerce-product-gallery__image img",
	Price: []string{
		"p.price ins .woocommerce-Price-amount",
		"p.price .woocommerce-Price-amount",
		"p.price",
		".price",
	},
	Stock: []string{
		"p.stock",
		".stock",
	},
	Description: []string{
		".woocommerce-product-details__short-description",
		"#tab-description",
	},
	SpecTable:     "table.woocommerce-product-attributes, table.shop_attributes",
	SpecList:      ".woocommerce-product-details__short-description ul",
	SKU:           ".sku",
	Brand:         ".posted_in a, .product_meta .brand",
	Presentation:  ".product_meta .presentation",
	StockOverride: ".stock-label",
}
