package scraper

import (
	"context"
	"time"
)

// DefaultTimeout is the per-page fetch timeout used when none is given.
const DefaultTimeout = 30 * time.Second

// Tag selects the kind of item to search for.
type Tag string

const (
	// TagStory selects stories.
	TagStory Tag = "story"

	// TagComment selects comments.
	TagComment Tag = "comment"
)

// RawItem is one hit as delivered by the endpoint.
type RawItem map[string]any

// RawPage is a single page of hits plus the pagination metadata reported by
// the endpoint.
type RawPage struct {
	Hits        []RawItem
	NbHits      int
	NbPages     int
	HitsPerPage int
}

// Reachable returns the number of hits the endpoint lets us page through.
func (p *RawPage) Reachable() int {
	return p.NbPages * p.HitsPerPage
}

// Truncated reports whether the endpoint knows about more hits than it can page
// through.
func (p *RawPage) Truncated() bool {
	return p.NbHits > p.Reachable()
}

// FieldMapping maps output keys to source keys. A nil mapping passes raw items
// through untouched.
type FieldMapping map[string]string

// Clone returns a copy of the mapping. Cloning nil yields nil.
func (f FieldMapping) Clone() FieldMapping {
	if f == nil {
		return nil
	}
	c := make(FieldMapping, len(f))
	for out, src := range f {
		c[out] = src
	}
	return c
}

// Item is a translated hit.
type Item map[string]any

// PageRequest identifies one page of a query window.
type PageRequest struct {
	Tag   Tag
	Since int64
	// Until is the optional upper bound of the window.
	Until   *int64
	Page    int
	Timeout time.Duration
}

// PageFetcher performs one network call per page.
type PageFetcher interface {
	// FetchPage returns the requested page. Implementations must fail rather
	// than return an empty page when the response cannot be decoded.
	FetchPage(ctx context.Context, req PageRequest) (*RawPage, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc func(ctx context.Context, req PageRequest) (*RawPage, error)

// FetchPage calls f(ctx, req).
func (f PageFetcherFunc) FetchPage(ctx context.Context, req PageRequest) (*RawPage, error) {
	return f(ctx, req)
}

// Query describes one scrape.
type Query struct {
	Tag   Tag
	Since int64
	Until *int64

	// Fields renames hits. Nil returns hits exactly as the endpoint sent them.
	Fields FieldMapping

	// Timeout bounds each page fetch, not the whole scrape. Zero selects the
	// scraper's default.
	Timeout time.Duration
}

// Timestamp returns a pointer to ts, for use as Query.Until.
func Timestamp(ts int64) *int64 {
	return &ts
}
