// internal/sitemap/denylist.go
package sitemap

import (
	"net/url"
	"strings"
)

// nonProductSections lists URL path prefixes that never lead to a product
// page. Shared by sitemap filtering and the per-URL short-circuit in the
// domain session.
var nonProductSections = []string{
	"/cart",
	"/checkout",
	"/carrito",
	"/account",
	"/login",
	"/register",
	"/mi-cuenta",
	"/search",
	"/buscar",
	"/blog",
	"/blogs",
	"/noticias",
	"/pages",
	"/policies",
	"/politicas",
	"/contact",
	"/contacto",
	"/nosotros",
	"/about",
	"/wishlist",
	"/terminos",
	"/faq",
}

// IsNonProductURL reports whether the URL is excluded by the static
// deny-list of non-product site sections. The storefront root is always
// excluded. Unparseable URLs are excluded as well; they cannot be product
// pages we know how to fetch.
func IsNonProductURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	return isNonProductPath(u.Path)
}

func isNonProductPath(path string) bool {
	if path == "" || path == "/" {
		return true
	}
	lower := strings.ToLower(path)
	for _, section := range nonProductSections {
		if lower == section || strings.HasPrefix(lower, section+"/") {
			return true
		}
	}
	return false
}

// isLikelyProductPath applies the positive heuristic used for woocommerce
// marketplace sitemaps: a path is kept when it has at least two segments,
// contains a hyphen, or contains a digit. Bare single-segment alphabetic
// paths are almost always section landings, not products.
func isLikelyProductPath(path string) bool {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return false
	}
	if strings.Count(trimmed, "/") >= 1 {
		return true
	}
	if strings.Contains(trimmed, "-") {
		return true
	}
	return strings.ContainsAny(trimmed, "0123456789")
}
