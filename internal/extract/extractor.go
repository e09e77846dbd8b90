// internal/extract/extractor.go
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pricewatch-la/pricewatch/internal/browser"
	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// pageWideTextSelector lists the elements scanned by the last-resort
// currency heuristic.
const pageWideTextSelector = "span, div, p, b, strong, h2, h3, td"

var (
	skuPattern          = regexp.MustCompile(`(?i)\bSKU\s*:?\s*([A-Za-z0-9_-]+)`)
	brandPattern        = regexp.MustCompile(`(?i)\bMarca\s*:?\s*([\p{L}0-9][\p{L}0-9 .&-]*)`)
	presentationPattern = regexp.MustCompile(`(?i)\bPresentaci[oó]n\s*:?\s*([^\n:]+)`)

	titleCaser = cases.Title(language.Spanish)
)

// Extractor produces normalized ProductRecords from classified product
// pages. One instance serves both platform families; the differences live in
// the selector tables and the extras pass.
type Extractor struct {
	registry *Registry
	logger   *zap.Logger
	now      func() time.Time
}

// New builds an Extractor over the given selector registry.
func New(registry *Registry, logger *zap.Logger) *Extractor {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		registry: registry,
		logger:   logger.Named("extract"),
		now:      time.Now,
	}
}

// Extract builds the ProductRecord for a page. Field extraction is
// independently fault-tolerant: a failing field logs and keeps its zero
// value; it never aborts the record.
func (e *Extractor) Extract(page browser.Page, task types.ExtractionTask) types.ProductRecord {
	selectors := e.registry.Lookup(task.Platform, task.SiteID)

	record := types.ProductRecord{
		URL:       task.URL,
		SiteID:    task.SiteID,
		Platform:  task.Platform,
		Stock:     types.StockUnknown,
		ScrapedAt: e.now(),
	}

	e.capture(task.URL, "name", func() {
		record.Name = e.extractName(page, selectors, task.URL)
	})
	e.capture(task.URL, "stock", func() {
		record.Stock, record.Quantity = resolveStock(page, selectors)
	})
	e.capture(task.URL, "price", func() {
		record.PriceText, record.Price = e.extractPrice(page, selectors, record.Stock)
	})
	e.capture(task.URL, "image", func() {
		record.ImageURL = e.extractImage(page, selectors)
	})
	e.capture(task.URL, "description", func() {
		record.Description = e.extractDescription(page, selectors)
	})
	e.capture(task.URL, "specs", func() {
		record.Specs = e.extractSpecs(page, selectors)
	})
	e.capture(task.URL, "extras", func() {
		record.SKU, record.Brand, record.Presentation = e.extractExtras(page, selectors)
	})

	return record
}

// capture isolates one field extraction; a panic is downgraded to a logged
// warning and the field keeps its zero value.
func (e *Extractor) capture(url, field string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("field extraction failed",
				zap.String("url", url),
				zap.String("field", field),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}

// extractName resolves the product name through the fallback chain:
// configured title selector, first h1, document title, URL slug.
func (e *Extractor) extractName(page browser.Page, selectors SelectorSet, rawURL string) string {
	if selectors.Title != "" {
		if name := page.Text(selectors.Title); name != "" {
			return name
		}
	}
	if name := page.Text("h1"); name != "" {
		return name
	}
	if title := page.Title(); title != "" {
		return nameFromTitle(title)
	}
	return nameFromSlug(rawURL)
}

// nameFromTitle strips trailing site branding from a document title.
func nameFromTitle(title string) string {
	for _, sep := range []string{" | ", " – ", " - "} {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return strings.TrimSpace(title)
}

// nameFromSlug humanizes the last meaningful URL path segment.
func nameFromSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	slug := segments[len(segments)-1]
	if slug == "" {
		return ""
	}
	words := strings.ReplaceAll(slug, "-", " ")
	return titleCaser.String(words)
}

// extractPrice resolves raw price text and its normalized decimal. Order:
// site-specific high-confidence selectors, the general fallback chain, then
// a page-wide scan picking the shortest currency-tagged match.
func (e *Extractor) extractPrice(page browser.Page, selectors SelectorSet, stock types.StockStatus) (string, *float64) {
	raw := ""

	for _, selector := range selectors.PricePrimary {
		if text := page.Text(selector); text != "" {
			raw = text
			break
		}
	}
	if raw == "" {
		for _, selector := range selectors.Price {
			if text := page.Text(selector); text != "" {
				raw = text
				break
			}
		}
	}
	if raw == "" {
		raw = findShortestCurrencyMatch(page.Texts(pageWideTextSelector))
	}

	cleaned := CleanPrice(raw)
	if cleaned == "" {
		if stock == types.StockOutOfStock {
			return PriceUnavailable, nil
		}
		return PriceZero, nil
	}
	return cleaned, NormalizePrice(cleaned)
}

func (e *Extractor) extractImage(page browser.Page, selectors SelectorSet) string {
	if selectors.Image != "" {
		if src, ok := page.Attr(selectors.Image, "src"); ok && src != "" {
			return src
		}
		if src, ok := page.Attr(selectors.Image, "data-src"); ok && src != "" {
			return src
		}
	}
	if content, ok := page.Attr(`meta[property="og:image"]`, "content"); ok {
		return content
	}
	return ""
}

func (e *Extractor) extractDescription(page browser.Page, selectors SelectorSet) string {
	for _, selector := range selectors.Description {
		if text := page.Text(selector); text != "" {
			return text
		}
	}
	return ""
}

// extractSpecs merges key/value pairs from specification tables and
// colon-separated bullet lists. Returns nil when nothing was found.
func (e *Extractor) extractSpecs(page browser.Page, selectors SelectorSet) map[string]string {
	specs := make(map[string]string)

	if selectors.SpecTable != "" {
		for _, pair := range page.TablePairs(selectors.SpecTable) {
			specs[pair[0]] = pair[1]
		}
	}

	if selectors.SpecList != "" {
		for _, item := range page.ListItems(selectors.SpecList) {
			key, value, found := strings.Cut(item, ":")
			if !found {
				continue
			}
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			if key != "" && value != "" {
				if _, exists := specs[key]; !exists {
					specs[key] = value
				}
			}
		}
	}

	if len(specs) == 0 {
		return nil
	}
	return specs
}

// extractExtras resolves the optional SKU, brand, and presentation fields:
// targeted selectors first, page-text regular expressions as fallback.
// Absence never fails extraction.
func (e *Extractor) extractExtras(page browser.Page, selectors SelectorSet) (sku, brand, presentation string) {
	full := page.FullText()

	if selectors.SKU != "" {
		sku = page.Text(selectors.SKU)
		// Some themes render the label inside the same element.
		if m := skuPattern.FindStringSubmatch(sku); m != nil {
			sku = m[1]
		}
	}
	if sku == "" {
		if m := skuPattern.FindStringSubmatch(full); m != nil {
			sku = m[1]
		}
	}

	if selectors.Brand != "" {
		brand = page.Text(selectors.Brand)
	}
	if brand == "" {
		if m := brandPattern.FindStringSubmatch(full); m != nil {
			brand = strings.TrimSpace(m[1])
		}
	}

	if selectors.Presentation != "" {
		presentation = page.Text(selectors.Presentation)
	}
	if presentation == "" {
		if m := presentationPattern.FindStringSubmatch(full); m != nil {
			presentation = strings.TrimSpace(m[1])
		}
	}

	return sku, brand, presentation
}

// NewRecordFromError builds the terminal-error record for a task whose
// retries are exhausted.
func NewRecordFromError(task types.ExtractionTask, err error, now time.Time) types.ProductRecord {
	return types.ProductRecord{
		URL:       task.URL,
		SiteID:    task.SiteID,
		Platform:  task.Platform,
		Stock:     types.StockUnknown,
		ScrapedAt: now,
		Error:     err.Error(),
	}
}

// NewNonProductRecord builds the informational record for a URL that was
// skipped or classified as not a product page.
func NewNonProductRecord(task types.ExtractionTask, reason string, now time.Time) types.ProductRecord {
	return types.ProductRecord{
		URL:       task.URL,
		SiteID:    task.SiteID,
		Platform:  task.Platform,
		Stock:     types.StockUnknown,
		ScrapedAt: now,
		Error:     fmt.Sprintf("not a product page: %s", reason),
	}
}
