// internal/scraper/classifier.go
package scraper

import (
	"net/url"
	"strings"

	"github.com/pricewatch-la/pricewatch/internal/browser"
	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// ProductScoreThreshold is the minimum signal score for a page to count as
// a product page. The weighting deliberately favors recall: a false positive
// costs one wasted extraction, a false negative silently drops a product.
const ProductScoreThreshold = 3

// RuleSetVersion identifies the active signal weighting. Bump when weights
// or signals change so stored verdicts remain comparable.
const RuleSetVersion = "2026-02"

// Signal is one weighted product-page indicator.
type Signal struct {
	Name   string
	Weight int
	Detect func(page browser.Page, task types.ExtractionTask) bool
}

// RuleSet is the ordered signal list shared by both platform families;
// platform-specific signals parameterize on the task's platform instead of
// duplicating near-identical variants.
type RuleSet struct {
	Version string
	Signals []Signal
}

// Verdict is the classification outcome for one page.
type Verdict struct {
	Product bool
	Score   int
	Matched []string
}

// Classifier scores DOM signals to decide whether a loaded page is a
// sellable product page.
type Classifier struct {
	rules RuleSet
}

// NewClassifier builds a classifier with the default rule set.
func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRuleSet()}
}

// Classify scores the page. The score is a pure function of the page
// snapshot and URL; adding a matching signal can only increase it.
func (c *Classifier) Classify(page browser.Page, task types.ExtractionTask) Verdict {
	verdict := Verdict{}
	for _, signal := range c.rules.Signals {
		if signal.Detect(page, task) {
			verdict.Score += signal.Weight
			verdict.Matched = append(verdict.Matched, signal.Name)
		}
	}
	verdict.Product = verdict.Score >= ProductScoreThreshold
	return verdict
}

func defaultRuleSet() RuleSet {
	return RuleSet{
		Version: RuleSetVersion,
		Signals: []Signal{
			{
				Name:   "buy_control",
				Weight: 2,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					return p.Exists("button[name=add], .add-to-cart, button.single_add_to_cart_button, #AddToCart, button.product-form__submit")
				},
			},
			{
				Name:   "price_element",
				Weight: 2,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					return p.Exists(".price, .product__price, .woocommerce-Price-amount, [itemprop=price]")
				},
			},
			{
				Name:   "title_element",
				Weight: 1,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					return p.Exists("h1")
				},
			},
			{
				Name:   "media_gallery",
				Weight: 1,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					return p.Exists(".product__media, .product-gallery, .woocommerce-product-gallery, .product-single__photo")
				},
			},
			{
				Name:   "platform_product_form",
				Weight: 2,
				Detect: func(p browser.Page, t types.ExtractionTask) bool {
					switch t.Platform {
					case types.PlatformShopify:
						return p.Exists(`form[action*="/cart/add"]`)
					case types.PlatformWooCommerce:
						return p.Exists("form.cart")
					}
					return false
				},
			},
			{
				Name:   "platform_product_meta",
				Weight: 2,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					if p.Exists(`meta[property="og:type"][content="product"]`) {
						return true
					}
					return p.Exists(`[itemtype*="schema.org/Product"]`)
				},
			},
			{
				Name:   "stock_indicator",
				Weight: 1,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					return p.Exists("p.stock, .stock, .product__inventory")
				},
			},
			{
				Name:   "availability_phrases",
				Weight: 1,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					text := strings.ToLower(p.FullText())
					for _, phrase := range []string{
						"agregar al carrito", "añadir al carrito", "comprar ahora",
						"add to cart", "disponible", "agotado",
					} {
						if strings.Contains(text, phrase) {
							return true
						}
					}
					return false
				},
			},
			{
				Name:   "sku_element",
				Weight: 2,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					return p.Exists(".sku, .variant-sku, [itemprop=sku]")
				},
			},
			{
				Name:   "product_url_pattern",
				Weight: 2,
				Detect: func(_ browser.Page, t types.ExtractionTask) bool {
					path := urlPath(t.URL)
					for _, pattern := range []string{"product", "item", "/p/"} {
						if strings.Contains(path, pattern) {
							return true
						}
					}
					return false
				},
			},
			{
				Name:   "stock_comment",
				Weight: 2,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					for _, comment := range p.Comments() {
						lower := strings.ToLower(comment)
						if strings.Contains(lower, "stock") ||
							strings.Contains(lower, "agotado") ||
							strings.Contains(lower, "disponible") {
							return true
						}
					}
					return false
				},
			},
			{
				Name:   "checkout_form",
				Weight: 3,
				Detect: func(p browser.Page, _ types.ExtractionTask) bool {
					return p.Exists(`form[action*="checkout"]`)
				},
			},
			{
				Name:   "platform_url_indicator",
				Weight: 3,
				Detect: func(_ browser.Page, t types.ExtractionTask) bool {
					path := urlPath(t.URL)
					switch t.Platform {
					case types.PlatformShopify:
						return strings.Contains(path, "/products/")
					case types.PlatformWooCommerce:
						return strings.Contains(path, "/producto/")
					}
					return false
				},
			},
		},
	}
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Path)
}
