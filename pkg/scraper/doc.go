// Package scraper walks time-windowed result pages of the Hacker News search API
// and yields translated stories and comments one at a time.
//
// A Scraper drives a PageFetcher page by page until the endpoint returns a page
// without hits. Each hit is renamed according to a FieldMapping before it is
// handed to the caller. Items are produced lazily through an Iterator: nothing
// is fetched until the first call to Next, and at most one page is held in
// memory at any time.
//
// # Basic Usage
//
//	fetcher, err := algolia.New(algolia.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	s, err := scraper.New(fetcher, scraper.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	it, err := scraper.NewStoryScraper(s).GetItems(1394901958, nil, 0)
//	if err != nil {
//		return err
//	}
//	defer it.Close()
//
//	for it.Next(ctx) {
//		story := it.Item()
//		fmt.Println(story["title"])
//	}
//	if err := it.Err(); err != nil {
//		return err
//	}
//
// # Pagination Limit
//
// The search endpoint only pages through a bounded number of results. When the
// final empty page reports more hits than nbPages*hitsPerPage, the iterator
// fails with a *CapacityError (matching ErrCapacityExceeded) after every
// reachable item has been yielded. Callers should retry with a narrower window.
//
// # Errors
//
// Errors returned by the PageFetcher are passed through unmodified. There are
// no retries: the first failed fetch ends the scrape.
package scraper
