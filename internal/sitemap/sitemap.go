// internal/sitemap/sitemap.go

// Package sitemap discovers candidate product URLs from storefront XML
// sitemaps. It understands plain url-sets, sitemap indexes, and the
// filtering variant used for woocommerce marketplace sitemaps.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// Descriptor identifies one sitemap to resolve.
type Descriptor struct {
	URL      string
	SiteID   string
	Platform types.Platform

	// Kind selects the parse strategy: "direct", "index" or "auto".
	Kind string
}

// Entry is one candidate product URL discovered from a sitemap.
type Entry struct {
	URL      string
	SiteID   string
	Platform types.Platform
	LastMod  time.Time
}

// urlSet and sitemapIndex mirror the two sitemap document shapes.
type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []xmlEntry `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name   `xml:"sitemapindex"`
	Sitemaps []xmlEntry `xml:"sitemap"`
}

type xmlEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

const (
	defaultFetchTimeout = 30 * time.Second
	maxSitemapBytes     = 50 << 20
	seenCacheSize       = 100000
)

// Resolver fetches and parses sitemaps into Entry lists. A shared LRU
// seen-set de-duplicates URLs across sitemaps and sub-sitemaps of a run;
// Reset clears it between runs.
type Resolver struct {
	client *http.Client
	logger *zap.Logger
	seen   *lru.Cache[string, struct{}]
}

// NewResolver builds a Resolver. A nil client gets a default with a bounded
// timeout.
func NewResolver(client *http.Client, logger *zap.Logger) (*Resolver, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen cache: %w", err)
	}

	return &Resolver{
		client: client,
		logger: logger.Named("sitemap"),
		seen:   seen,
	}, nil
}

// Reset clears the seen-set so the next run re-discovers every URL. Call it
// at the start of each scheduled run; within a run the seen-set still
// de-duplicates URLs repeated across sitemaps and sub-sitemaps.
func (r *Resolver) Reset() {
	r.seen.Purge()
}

// Resolve fetches the descriptor's sitemap and returns candidate product
// entries. Fetch or parse failures are logged and yield an empty list; they
// never abort the run.
func (r *Resolver) Resolve(ctx context.Context, desc Descriptor) []Entry {
	body, err := r.fetch(ctx, desc.URL)
	if err != nil {
		r.logger.Warn("sitemap fetch failed",
			zap.String("site", desc.SiteID),
			zap.String("url", desc.URL),
			zap.Error(err),
		)
		return nil
	}

	kind := desc.Kind
	if kind == "" || kind == "auto" {
		kind = detectKind(body)
	}

	var entries []Entry
	switch kind {
	case "index":
		entries = r.resolveIndex(ctx, desc, body)
	default:
		entries = r.resolveDirect(desc, body)
	}

	r.logger.Info("sitemap resolved",
		zap.String("site", desc.SiteID),
		zap.String("kind", kind),
		zap.Int("entries", len(entries)),
	)
	return entries
}

// resolveIndex enumerates sub-sitemaps whose path mentions products and
// collects their leaf entries. A failing sub-sitemap contributes nothing.
func (r *Resolver) resolveIndex(ctx context.Context, desc Descriptor, body []byte) []Entry {
	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil {
		r.logger.Warn("sitemap index parse failed",
			zap.String("site", desc.SiteID),
			zap.String("url", desc.URL),
			zap.Error(err),
		)
		return nil
	}

	var entries []Entry
	for _, sub := range index.Sitemaps {
		loc := strings.TrimSpace(sub.Loc)
		if loc == "" || !pathContainsProduct(loc) {
			continue
		}

		subBody, err := r.fetch(ctx, loc)
		if err != nil {
			r.logger.Warn("sub-sitemap fetch failed",
				zap.String("site", desc.SiteID),
				zap.String("url", loc),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, r.resolveDirect(Descriptor{
			URL:      loc,
			SiteID:   desc.SiteID,
			Platform: desc.Platform,
		}, subBody)...)
	}
	return entries
}

// resolveDirect extracts leaf URL entries, applying the deny-list and, for
// woocommerce, the positive product-path heuristic.
func (r *Resolver) resolveDirect(desc Descriptor, body []byte) []Entry {
	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		r.logger.Warn("sitemap parse failed",
			zap.String("site", desc.SiteID),
			zap.String("url", desc.URL),
			zap.Error(err),
		)
		return nil
	}

	entries := make([]Entry, 0, len(set.URLs))
	for _, item := range set.URLs {
		loc := strings.TrimSpace(item.Loc)
		if loc == "" {
			continue
		}
		if !r.accept(desc.Platform, loc) {
			continue
		}
		if _, dup := r.seen.Get(loc); dup {
			continue
		}
		r.seen.Add(loc, struct{}{})

		entry := Entry{
			URL:      loc,
			SiteID:   desc.SiteID,
			Platform: desc.Platform,
		}
		if item.LastMod != "" {
			if ts, err := parseLastMod(item.LastMod); err == nil {
				entry.LastMod = ts
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// accept applies the platform-appropriate URL filter.
func (r *Resolver) accept(platform types.Platform, loc string) bool {
	if IsNonProductURL(loc) {
		return false
	}
	if platform == types.PlatformWooCommerce {
		u, err := url.Parse(loc)
		if err != nil {
			return false
		}
		return isLikelyProductPath(u.Path)
	}
	return true
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}

// detectKind inspects the document root element to distinguish a sitemap
// index from a plain url-set.
func detectKind(body []byte) string {
	decoder := xml.NewDecoder(strings.NewReader(string(body)))
	for {
		token, err := decoder.Token()
		if err != nil {
			return "direct"
		}
		if start, ok := token.(xml.StartElement); ok {
			if start.Name.Local == "sitemapindex" {
				return "index"
			}
			return "direct"
		}
	}
}

func pathContainsProduct(loc string) bool {
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Path), "product")
}

// parseLastMod accepts the date formats commonly seen in sitemap lastmod
// fields.
func parseLastMod(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized lastmod format: %q", value)
}
