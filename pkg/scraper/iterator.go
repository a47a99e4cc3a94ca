package scraper

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"
)

type iteratorState int

const (
	stateActive iteratorState = iota
	stateExhausted
	stateFailed
	stateClosed
)

// Iterator yields the items of one scrape. It is single-pass and not safe for
// concurrent use.
//
//	for it.Next(ctx) {
//		item := it.Item()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type Iterator struct {
	fetcher PageFetcher
	query   Query
	timeout time.Duration
	logger  zerolog.Logger

	page    int // next page to request
	fetches int
	emitted int

	pending []Item
	current Item

	state iteratorState
	err   error
}

// Next advances to the next item, fetching the next page when the current one
// has been consumed. It returns false once the scrape is exhausted, has failed
// or the iterator was closed.
//
// ctx bounds the fetch Next may perform; each fetch is additionally limited by
// the query timeout.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.state != stateActive {
		return false
	}

	for len(it.pending) == 0 {
		if !it.fetchPage(ctx) {
			it.current = nil
			return false
		}
	}

	it.current = it.pending[0]
	it.pending[0] = nil
	it.pending = it.pending[1:]
	it.emitted++
	itemsEmitted.WithLabelValues(string(it.query.Tag)).Inc()

	return true
}

// Item returns the item Next advanced to.
func (it *Iterator) Item() Item {
	return it.current
}

// Err returns the error that ended the scrape, or nil if it ended normally or
// is still running.
func (it *Iterator) Err() error {
	return it.err
}

// Pages returns the number of fetches performed so far, including a terminal
// empty page.
func (it *Iterator) Pages() int {
	return it.fetches
}

// Emitted returns the number of items handed out so far.
func (it *Iterator) Emitted() int {
	return it.emitted
}

// Close abandons the scrape. No further fetches are made and the buffered page
// is released. Closing a finished iterator keeps its outcome.
func (it *Iterator) Close() {
	if it.state != stateActive {
		return
	}
	it.state = stateClosed
	it.pending = nil
	it.current = nil

	it.logger.Debug().
		Int("pages", it.fetches).
		Int("items", it.emitted).
		Msg("Scrape abandoned")
}

// All returns the remaining items as a sequence for range-over-func. A failure
// is delivered as a final (nil, err) pair. Stopping the range closes the
// iterator.
func (it *Iterator) All(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		defer it.Close()

		for it.Next(ctx) {
			if !yield(it.current, nil) {
				return
			}
		}

		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// fetchPage requests the next page and buffers its translated hits. It
// returns false when the scrape ended, either normally or with an error.
func (it *Iterator) fetchPage(ctx context.Context) bool {
	tag := string(it.query.Tag)

	if err := ctx.Err(); err != nil {
		it.fail(err, "fetch")
		return false
	}

	req := PageRequest{
		Tag:     it.query.Tag,
		Since:   it.query.Since,
		Until:   it.query.Until,
		Page:    it.page,
		Timeout: it.timeout,
	}

	fetchCtx, cancel := context.WithTimeout(ctx, it.timeout)
	start := time.Now()
	raw, err := it.fetcher.FetchPage(fetchCtx, req)
	cancel()
	pageFetchDuration.WithLabelValues(tag).Observe(time.Since(start).Seconds())
	it.fetches++

	if err != nil {
		it.fail(err, "fetch")
		return false
	}
	if raw == nil {
		it.fail(fmt.Errorf("%w: page %d: empty result from fetcher", ErrMalformedResponse, it.page), "fetch")
		return false
	}

	pagesFetched.WithLabelValues(tag).Inc()

	// The terminal check looks at the raw hits: a page whose hits all lack the
	// requested fields still counts as a page with items.
	if len(raw.Hits) == 0 {
		if raw.Truncated() {
			it.fail(&CapacityError{
				Tag:         it.query.Tag,
				Page:        it.page,
				NbHits:      raw.NbHits,
				NbPages:     raw.NbPages,
				HitsPerPage: raw.HitsPerPage,
			}, "capacity")
			return false
		}

		it.state = stateExhausted
		it.logger.Debug().
			Int("pages", it.fetches).
			Int("items", it.emitted).
			Msg("Scrape complete")
		return false
	}

	it.pending = Translate(raw.Hits, it.query.Fields)

	it.logger.Debug().
		Int("page", it.page).
		Int("hits", len(raw.Hits)).
		Int("nb_hits", raw.NbHits).
		Int("nb_pages", raw.NbPages).
		Dur("duration", time.Since(start)).
		Msg("Fetched page")

	it.page++
	return true
}

func (it *Iterator) fail(err error, reason string) {
	it.state = stateFailed
	it.err = err
	it.pending = nil
	scrapeFailures.WithLabelValues(string(it.query.Tag), reason).Inc()

	event := it.logger.Warn()
	if reason == "fetch" {
		event = it.logger.Error()
	}
	event.Err(err).
		Int("page", it.page).
		Int("items", it.emitted).
		Msg("Scrape failed")
}
