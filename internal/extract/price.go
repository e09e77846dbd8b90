// internal/extract/price.go
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Sentinel price texts. A page with no recognizable price yields the zero
// sentinel; when the product is out of stock the price is marked unavailable
// instead of pretending to be zero.
const (
	PriceZero        = "S/ 0.00"
	PriceUnavailable = "No disponible"
)

var (
	// currencyAmountPattern matches a currency-tagged amount anywhere in
	// element text. "S/" is the Peruvian sol prefix used by the target
	// storefronts; "$" covers the rest.
	currencyAmountPattern = regexp.MustCompile(`(?:S/\.?|\$)\s*\d[\d.,]*`)

	priceLabelPattern  = regexp.MustCompile(`(?i)^\s*precio(?:\s+web)?\s*:?\s*`)
	symbolSpacePattern = regexp.MustCompile(`^(S/\.?|\$)\s*`)
	numberTokenPattern = regexp.MustCompile(`\d[\d.,]*`)
)

// CleanPrice normalizes raw price text: first line only, known label
// prefixes removed, a currency symbol guaranteed, and symbol/value spacing
// collapsed to a single space. Cleaning is idempotent.
func CleanPrice(raw string) string {
	line := raw
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	line = priceLabelPattern.ReplaceAllString(line, "")
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	if m := symbolSpacePattern.FindStringSubmatch(line); m != nil {
		rest := strings.TrimSpace(line[len(m[0]):])
		if rest == "" {
			return ""
		}
		return m[1] + " " + rest
	}

	// No currency symbol in the source text: assume local currency.
	return "S/ " + line
}

// NormalizePrice parses cleaned price text into a decimal value. Returns nil
// when the text holds no usable number (sentinels included).
//
// Separator convention (canonical for the whole system): when both "," and
// "." appear, the rightmost one is the decimal separator; a lone separator
// followed by exactly three digits in every group is a thousands separator
// ("1.234" => 1234), otherwise it is the decimal separator ("249.90" =>
// 249.90). The result always uses "." as the decimal point.
func NormalizePrice(text string) *float64 {
	if text == "" || text == PriceUnavailable {
		return nil
	}

	token := numberTokenPattern.FindString(text)
	if token == "" {
		return nil
	}

	normalized := normalizeSeparators(token)
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || value < 0 {
		return nil
	}
	return &value
}

func normalizeSeparators(token string) string {
	lastComma := strings.LastIndexByte(token, ',')
	lastDot := strings.LastIndexByte(token, '.')

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Rightmost separator is decimal, the other kind is grouping.
		if lastComma > lastDot {
			token = strings.ReplaceAll(token, ".", "")
			token = strings.Replace(token, ",", ".", 1)
		} else {
			token = strings.ReplaceAll(token, ",", "")
		}
	case lastComma >= 0:
		token = resolveSingleSeparator(token, ",")
	case lastDot >= 0:
		token = resolveSingleSeparator(token, ".")
	}
	return token
}

// resolveSingleSeparator decides whether a lone separator kind is grouping
// or decimal. Groups of exactly three digits after each separator mean
// grouping; anything else means decimal.
func resolveSingleSeparator(token, sep string) string {
	parts := strings.Split(token, sep)
	grouping := len(parts) > 1
	for _, part := range parts[1:] {
		if len(part) != 3 {
			grouping = false
			break
		}
	}
	if grouping {
		return strings.Join(parts, "")
	}
	// Decimal separator: only the last occurrence counts, earlier ones are
	// malformed grouping and dropped.
	head := strings.Join(parts[:len(parts)-1], "")
	return head + "." + parts[len(parts)-1]
}

// findShortestCurrencyMatch scans candidate texts for currency-tagged
// amounts and returns the shortest match. Shorter matches are least likely
// to include surrounding noise text.
func findShortestCurrencyMatch(texts []string) string {
	best := ""
	for _, text := range texts {
		match := currencyAmountPattern.FindString(text)
		if match == "" {
			continue
		}
		if best == "" || len(match) < len(best) {
			best = match
		}
	}
	return best
}
