// internal/extract/stock.go
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pricewatch-la/pricewatch/internal/browser"
	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// Availability phrasing seen on the target storefronts. Out-of-stock
// signals always win over in-stock signals.
var (
	outOfStockPhrases = []string{
		"agotado",
		"sin stock",
		"no disponible",
		"producto no disponible",
		"out of stock",
		"sold out",
	}

	inStockPhrases = []string{
		"en stock",
		"in stock",
		"disponible",
		"hay stock",
		"unidades disponibles",
		"add to cart",
		"agregar al carrito",
	}

	// disabledBuyControls matches purchase buttons rendered unusable.
	disabledBuyControls = []string{
		"button[name=add][disabled]",
		"button.add-to-cart[disabled]",
		"button.single_add_to_cart_button[disabled]",
		"button[type=submit][disabled].product-form__submit",
		"#AddToCart[disabled]",
	}

	quantityPattern = regexp.MustCompile(`\b(\d{1,4})\b`)
)

const maxQuantity = 10000

// resolveStock derives stock status by strict precedence: an explicit
// sold-out signal beats an explicit in-stock signal, which beats a disabled
// purchase control, which beats the unknown default. The returned quantity
// is nil unless an in-range number appears in the matched stock text.
func resolveStock(page browser.Page, selectors SelectorSet) (types.StockStatus, *int) {
	// Platform/site labeled stock block wins over the generic chain.
	if selectors.StockOverride != "" {
		if text := page.Text(selectors.StockOverride); text != "" {
			return interpretStockText(text)
		}
	}

	for _, selector := range selectors.Stock {
		if text := page.Text(selector); text != "" {
			return interpretStockText(text)
		}
	}

	for _, selector := range disabledBuyControls {
		if page.Exists(selector) {
			return types.StockOutOfStock, nil
		}
	}

	// Stock-state markers sometimes only survive in HTML comments.
	for _, comment := range page.Comments() {
		lower := strings.ToLower(comment)
		if containsAny(lower, outOfStockPhrases) {
			return types.StockOutOfStock, nil
		}
		if containsAny(lower, inStockPhrases) {
			return types.StockInStock, nil
		}
	}

	full := strings.ToLower(page.FullText())
	if containsAny(full, outOfStockPhrases) {
		return types.StockOutOfStock, nil
	}
	if containsAny(full, inStockPhrases) {
		return types.StockInStock, nil
	}

	return types.StockUnknown, nil
}

// interpretStockText resolves status and quantity from one stock element's
// text. A sold-out phrase discards any numeric substring, and a count of
// zero means sold out even when the phrasing reads as available.
func interpretStockText(text string) (types.StockStatus, *int) {
	lower := strings.ToLower(text)

	if containsAny(lower, outOfStockPhrases) {
		return types.StockOutOfStock, nil
	}

	qty := extractQuantity(text)
	if qty != nil && *qty == 0 {
		return types.StockOutOfStock, qty
	}
	if containsAny(lower, inStockPhrases) || qty != nil {
		return types.StockInStock, qty
	}

	return types.StockUnknown, nil
}

// extractQuantity pulls a 1-4 digit count from stock text when present and
// in range.
func extractQuantity(text string) *int {
	match := quantityPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 0 || n >= maxQuantity {
		return nil
	}
	return &n
}

func containsAny(haystack string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}
