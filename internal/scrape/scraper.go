// Package scrape fetches company web pages for extraction. Scrapers are
// chained: the free local HTTP fetcher runs first and the Jina reader picks
// up pages it cannot handle.
package scrape

import "context"

// Page is one fetched page reduced to plaintext.
type Page struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	StatusCode int    `json:"status_code"`
}

// Result holds a scraped page with the scraper that produced it.
type Result struct {
	Page   Page
	Source string // e.g. "local_http", "jina"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
