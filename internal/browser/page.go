// internal/browser/page.go

// Package browser provides page access for the extraction engine: a
// chromedp-backed session per target domain, and a DOM snapshot type that
// classifier and extractors inspect. The snapshot is plain parsed HTML, so
// tests can build one from a fixture without a browser.
package browser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is the inspection surface the classifier and field extractors work
// against. It is deliberately engine-independent: the production path fills
// it from a Chrome render, tests from static fixtures.
type Page interface {
	// URL returns the address the page was loaded from.
	URL() string

	// Exists reports whether any element matches the selector.
	Exists(selector string) bool

	// Count returns the number of elements matching the selector.
	Count(selector string) int

	// Text returns the trimmed text of the first match, or "".
	Text(selector string) string

	// Texts returns the trimmed text of every match.
	Texts(selector string) []string

	// Attr returns the named attribute of the first match.
	Attr(selector, name string) (string, bool)

	// Title returns the document title.
	Title() string

	// FullText returns the visible text of the whole body.
	FullText() string

	// Comments returns the contents of HTML comments in the document.
	Comments() []string

	// TablePairs returns (key, value) pairs from two-cell rows of tables
	// matching the selector.
	TablePairs(selector string) [][2]string

	// ListItems returns the trimmed text of list items under the selector.
	ListItems(selector string) []string
}

// DOM is a Page backed by a parsed HTML snapshot.
type DOM struct {
	url string
	raw string
	doc *goquery.Document
}

var commentPattern = regexp.MustCompile(`<!--([\s\S]*?)-->`)

// NewDOM parses an HTML snapshot into a DOM.
func NewDOM(html, url string) (*DOM, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	return &DOM{url: url, raw: html, doc: doc}, nil
}

// URL returns the address the page was loaded from.
func (d *DOM) URL() string { return d.url }

// Exists reports whether any element matches the selector.
func (d *DOM) Exists(selector string) bool {
	return d.doc.Find(selector).Length() > 0
}

// Count returns the number of elements matching the selector.
func (d *DOM) Count(selector string) int {
	return d.doc.Find(selector).Length()
}

// Text returns the trimmed text of the first match.
func (d *DOM) Text(selector string) string {
	return strings.TrimSpace(d.doc.Find(selector).First().Text())
}

// Texts returns the trimmed text of every match.
func (d *DOM) Texts(selector string) []string {
	var out []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// Attr returns the named attribute of the first match.
func (d *DOM) Attr(selector, name string) (string, bool) {
	return d.doc.Find(selector).First().Attr(name)
}

// Title returns the document title.
func (d *DOM) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// FullText returns the visible text of the body.
func (d *DOM) FullText() string {
	return strings.TrimSpace(d.doc.Find("body").Text())
}

// Comments returns the contents of HTML comments. Stock-state markers on
// some storefronts only appear here.
func (d *DOM) Comments() []string {
	matches := commentPattern.FindAllStringSubmatch(d.raw, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// TablePairs extracts (key, value) pairs from two-cell rows of matched
// tables. Rows with fewer than two cells are skipped.
func (d *DOM) TablePairs(selector string) [][2]string {
	var pairs [][2]string
	d.doc.Find(selector).Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("th, td")
			if cells.Length() < 2 {
				return
			}
			key := strings.TrimSpace(cells.Eq(0).Text())
			value := strings.TrimSpace(cells.Eq(1).Text())
			if key != "" && value != "" {
				pairs = append(pairs, [2]string{key, value})
			}
		})
	})
	return pairs
}

// ListItems returns the trimmed text of <li> items under the selector,
// falling back to the matched elements themselves when they contain no list.
func (d *DOM) ListItems(selector string) []string {
	var items []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		list := s.Find("li")
		if list.Length() == 0 {
			if text := strings.TrimSpace(s.Text()); text != "" {
				items = append(items, text)
			}
			return
		}
		list.Each(func(_ int, li *goquery.Selection) {
			if text := strings.TrimSpace(li.Text()); text != "" {
				items = append(items, text)
			}
		})
	})
	return items
}
