package scraper

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// scriptedFetcher serves a fixed page sequence and records every request.
type scriptedFetcher struct {
	pages    []*RawPage
	failAt   int // page index that fails, -1 for none
	failErr  error
	requests []PageRequest
	deadline []bool
}

func newScriptedFetcher(pages ...*RawPage) *scriptedFetcher {
	return &scriptedFetcher{pages: pages, failAt: -1}
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, req PageRequest) (*RawPage, error) {
	f.requests = append(f.requests, req)
	_, ok := ctx.Deadline()
	f.deadline = append(f.deadline, ok)

	if req.Page == f.failAt {
		return nil, f.failErr
	}
	if req.Page >= len(f.pages) {
		return emptyPage(0, 0, 0), nil
	}
	return f.pages[req.Page], nil
}

// dataPage builds a page the way the search endpoint reports it.
func dataPage(hits []RawItem, nbPages int) *RawPage {
	return &RawPage{
		Hits:        hits,
		NbHits:      nbPages * len(hits),
		NbPages:     nbPages,
		HitsPerPage: len(hits),
	}
}

func emptyPage(nbHits, nbPages, hitsPerPage int) *RawPage {
	return &RawPage{
		Hits:        []RawItem{},
		NbHits:      nbHits,
		NbPages:     nbPages,
		HitsPerPage: hitsPerPage,
	}
}

func newTestScraper(t *testing.T, fetcher PageFetcher) *Scraper {
	t.Helper()

	logger := zerolog.Nop()
	s, err := New(fetcher, Config{Logger: &logger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func collect(t *testing.T, it *Iterator) ([]Item, error) {
	t.Helper()

	var items []Item
	for it.Next(context.Background()) {
		items = append(items, it.Item())
	}
	return items, it.Err()
}

func mustScrape(t *testing.T, s *Scraper, q Query) *Iterator {
	t.Helper()

	it, err := s.Scrape(q)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	return it
}

func TestNew_Validation(t *testing.T) {
	fetcher := newScriptedFetcher()

	tests := []struct {
		name     string
		fetcher  PageFetcher
		config   Config
		errorMsg string
	}{
		{
			name:    "default config",
			fetcher: fetcher,
			config:  DefaultConfig(),
		},
		{
			name:    "zero timeout selects default",
			fetcher: fetcher,
			config:  Config{},
		},
		{
			name:     "nil fetcher",
			fetcher:  nil,
			config:   DefaultConfig(),
			errorMsg: "page fetcher is required",
		},
		{
			name:     "negative timeout",
			fetcher:  fetcher,
			config:   Config{DefaultTimeout: -time.Second},
			errorMsg: "default_timeout must be >= 0 (got -1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.fetcher, tt.config)

			if tt.errorMsg != "" {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if s.config.DefaultTimeout != DefaultTimeout {
				t.Errorf("DefaultTimeout = %v, want %v", s.config.DefaultTimeout, DefaultTimeout)
			}
		})
	}
}

func TestScrape_Validation(t *testing.T) {
	s := newTestScraper(t, newScriptedFetcher())

	if _, err := s.Scrape(Query{Since: 42}); err == nil || err.Error() != "tag is required" {
		t.Errorf("Scrape() without tag error = %v, want %q", err, "tag is required")
	}

	if _, err := s.Scrape(Query{Tag: TagStory, Timeout: -time.Second}); err == nil {
		t.Error("Scrape() with negative timeout should fail")
	}
}

func TestScrape_SinglePage(t *testing.T) {
	hits := []RawItem{testHit(), testHit()}
	fetcher := newScriptedFetcher(dataPage(hits, 1), emptyPage(2, 1, 2))
	s := newTestScraper(t, fetcher)

	items, err := collect(t, mustScrape(t, s, Query{Tag: "test", Since: 42}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := Translate(hits, nil)
	if !reflect.DeepEqual(items, want) {
		t.Errorf("items = %v, want %v", items, want)
	}

	if len(fetcher.requests) != 2 {
		t.Errorf("fetches = %d, want 2", len(fetcher.requests))
	}
}

func TestScrape_TranslatesFields(t *testing.T) {
	hits := []RawItem{testHit(), testHit()}
	fetcher := newScriptedFetcher(dataPage(hits, 1), emptyPage(2, 1, 2))
	s := newTestScraper(t, fetcher)

	items, err := collect(t, mustScrape(t, s, Query{
		Tag:    "test",
		Since:  42,
		Fields: FieldMapping{"id": "objectID"},
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []Item{{"id": 21}, {"id": 21}}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("items = %v, want %v", items, want)
	}
}

func TestScrape_MissingFieldsYieldEmptyItems(t *testing.T) {
	hits := []RawItem{testHit()}
	page1 := []RawItem{testHit(), testHit()}
	fetcher := newScriptedFetcher(dataPage(hits, 2), dataPage(page1, 2), emptyPage(3, 2, 2))
	s := newTestScraper(t, fetcher)

	items, err := collect(t, mustScrape(t, s, Query{
		Tag:    "test",
		Since:  42,
		Fields: FieldMapping{"test": "missing"},
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Pages whose hits lack every requested field must not end the scrape.
	want := []Item{{}, {}, {}}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("items = %v, want %v", items, want)
	}
	if len(fetcher.requests) != 3 {
		t.Errorf("fetches = %d, want 3", len(fetcher.requests))
	}
}

func TestScrape_MultiplePages(t *testing.T) {
	const pages = 3

	var script []*RawPage
	var want []Item
	for p := 0; p < pages; p++ {
		hits := []RawItem{{"objectID": p*10 + 1}, {"objectID": p*10 + 2}}
		script = append(script, dataPage(hits, pages))
		want = append(want, Translate(hits, nil)...)
	}
	script = append(script, emptyPage(pages*2, pages, 2))

	fetcher := newScriptedFetcher(script...)
	s := newTestScraper(t, fetcher)

	it := mustScrape(t, s, Query{Tag: "test", Since: 42})
	items, err := collect(t, it)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !reflect.DeepEqual(items, want) {
		t.Errorf("items = %v, want %v", items, want)
	}

	for i, req := range fetcher.requests {
		if req.Page != i {
			t.Errorf("request %d page = %d, want %d", i, req.Page, i)
		}
	}

	if it.Pages() != pages+1 {
		t.Errorf("Pages() = %d, want %d", it.Pages(), pages+1)
	}
	if it.Emitted() != len(want) {
		t.Errorf("Emitted() = %d, want %d", it.Emitted(), len(want))
	}
}

func TestScrape_NoItems(t *testing.T) {
	fetcher := newScriptedFetcher(emptyPage(0, 0, 0))
	s := newTestScraper(t, fetcher)

	items, err := collect(t, mustScrape(t, s, Query{Tag: "test", Since: 42}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %v, want none", items)
	}
}

func TestScrape_CapacityExceeded(t *testing.T) {
	hits := []RawItem{testHit(), testHit()}
	fetcher := newScriptedFetcher(dataPage(hits, 1), emptyPage(3, 1, 2))
	s := newTestScraper(t, fetcher)

	it := mustScrape(t, s, Query{Tag: TagStory, Since: 42})
	items, err := collect(t, it)

	if len(items) != len(hits) {
		t.Errorf("items before failure = %d, want %d", len(items), len(hits))
	}

	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("error = %v, want ErrCapacityExceeded", err)
	}

	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("error %T is not *CapacityError", err)
	}

	want := CapacityError{Tag: TagStory, Page: 1, NbHits: 3, NbPages: 1, HitsPerPage: 2}
	if *capErr != want {
		t.Errorf("CapacityError = %+v, want %+v", *capErr, want)
	}

	if it.Next(context.Background()) {
		t.Error("Next() after failure should return false")
	}
	if len(fetcher.requests) != 2 {
		t.Errorf("fetches = %d, want 2", len(fetcher.requests))
	}
}

func TestScrape_CapacityExceededOnFirstPage(t *testing.T) {
	fetcher := newScriptedFetcher(emptyPage(3, 1, 2))
	s := newTestScraper(t, fetcher)

	items, err := collect(t, mustScrape(t, s, Query{Tag: "test", Since: 42}))
	if len(items) != 0 {
		t.Errorf("items = %v, want none", items)
	}
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("error = %v, want ErrCapacityExceeded", err)
	}
}

func TestScrape_CapacityBoundary(t *testing.T) {
	// nbHits == nbPages*hitsPerPage is a normal end.
	fetcher := newScriptedFetcher(emptyPage(100, 50, 2))
	s := newTestScraper(t, fetcher)

	if _, err := collect(t, mustScrape(t, s, Query{Tag: "test", Since: 42})); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestScrape_TransportErrorPropagates(t *testing.T) {
	transportErr := errors.New("connection reset")

	hits := []RawItem{testHit()}
	fetcher := newScriptedFetcher(dataPage(hits, 2), dataPage(hits, 2))
	fetcher.failAt = 1
	fetcher.failErr = transportErr
	s := newTestScraper(t, fetcher)

	items, err := collect(t, mustScrape(t, s, Query{Tag: "test", Since: 42}))

	if len(items) != 1 {
		t.Errorf("items before failure = %d, want 1", len(items))
	}
	if err != transportErr {
		t.Errorf("error = %v, want the fetcher's error unmodified", err)
	}
}

func TestScrape_NilPageIsMalformed(t *testing.T) {
	fetcher := PageFetcherFunc(func(ctx context.Context, req PageRequest) (*RawPage, error) {
		return nil, nil
	})
	s := newTestScraper(t, fetcher)

	_, err := collect(t, mustScrape(t, s, Query{Tag: "test", Since: 42}))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestScrape_ForwardsQuery(t *testing.T) {
	fetcher := newScriptedFetcher(dataPage([]RawItem{testHit()}, 1), emptyPage(1, 1, 1))
	s := newTestScraper(t, fetcher)

	if _, err := collect(t, mustScrape(t, s, Query{
		Tag:     TagComment,
		Since:   42,
		Until:   Timestamp(43),
		Timeout: 10 * time.Second,
	})); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for i, req := range fetcher.requests {
		if req.Tag != TagComment || req.Since != 42 {
			t.Errorf("request %d = %+v, want tag comment since 42", i, req)
		}
		if req.Until == nil || *req.Until != 43 {
			t.Errorf("request %d until = %v, want 43", i, req.Until)
		}
		if req.Timeout != 10*time.Second {
			t.Errorf("request %d timeout = %v, want 10s", i, req.Timeout)
		}
		if !fetcher.deadline[i] {
			t.Errorf("request %d context has no deadline", i)
		}
	}
}

func TestScrape_DefaultTimeout(t *testing.T) {
	fetcher := newScriptedFetcher(emptyPage(0, 0, 0))
	s := newTestScraper(t, fetcher)

	if _, err := collect(t, mustScrape(t, s, Query{Tag: "test", Since: 42})); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := fetcher.requests[0].Timeout; got != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", got, DefaultTimeout)
	}
	if fetcher.requests[0].Until != nil {
		t.Errorf("until = %v, want nil", *fetcher.requests[0].Until)
	}
}

func TestScrape_IsLazy(t *testing.T) {
	hits := []RawItem{testHit(), testHit()}
	fetcher := newScriptedFetcher(dataPage(hits, 2), dataPage(hits, 2), emptyPage(4, 2, 2))
	s := newTestScraper(t, fetcher)

	it := mustScrape(t, s, Query{Tag: "test", Since: 42})
	if len(fetcher.requests) != 0 {
		t.Fatalf("fetches before Next = %d, want 0", len(fetcher.requests))
	}

	ctx := context.Background()

	it.Next(ctx)
	it.Next(ctx)
	if len(fetcher.requests) != 1 {
		t.Errorf("fetches after two items = %d, want 1", len(fetcher.requests))
	}

	it.Next(ctx)
	if len(fetcher.requests) != 2 {
		t.Errorf("fetches after third item = %d, want 2", len(fetcher.requests))
	}
}

func TestScrape_Close(t *testing.T) {
	hits := []RawItem{testHit(), testHit()}
	fetcher := newScriptedFetcher(dataPage(hits, 2), dataPage(hits, 2), emptyPage(4, 2, 2))
	s := newTestScraper(t, fetcher)

	it := mustScrape(t, s, Query{Tag: "test", Since: 42})
	ctx := context.Background()

	if !it.Next(ctx) {
		t.Fatal("Next() = false, want true")
	}
	it.Close()

	if it.Next(ctx) {
		t.Error("Next() after Close should return false")
	}
	if it.Err() != nil {
		t.Errorf("Err() after Close = %v, want nil", it.Err())
	}
	if len(fetcher.requests) != 1 {
		t.Errorf("fetches = %d, want 1", len(fetcher.requests))
	}
}

func TestScrape_CancelledContext(t *testing.T) {
	fetcher := newScriptedFetcher(dataPage([]RawItem{testHit()}, 1), emptyPage(1, 1, 1))
	s := newTestScraper(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	it := mustScrape(t, s, Query{Tag: "test", Since: 42})
	if it.Next(ctx) {
		t.Error("Next() with cancelled context should return false")
	}
	if !errors.Is(it.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", it.Err())
	}
	if len(fetcher.requests) != 0 {
		t.Errorf("fetches = %d, want 0", len(fetcher.requests))
	}
}

func TestScrape_Idempotent(t *testing.T) {
	hits := []RawItem{testHit(), {"objectID": 22, "title": "Other"}}
	fetcher := newScriptedFetcher(dataPage(hits, 2), dataPage(hits, 2), emptyPage(4, 2, 2))
	s := newTestScraper(t, fetcher)

	q := Query{Tag: "test", Since: 42, Fields: FieldMapping{"id": "objectID", "title": "title"}}

	first, err := collect(t, mustScrape(t, s, q))
	if err != nil {
		t.Fatalf("first scrape error = %v", err)
	}
	second, err := collect(t, mustScrape(t, s, q))
	if err != nil {
		t.Fatalf("second scrape error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("scrapes differ:\n first  = %v\n second = %v", first, second)
	}
}

func TestScrape_QueryIsCopied(t *testing.T) {
	fetcher := newScriptedFetcher(dataPage([]RawItem{testHit()}, 1), emptyPage(1, 1, 1))
	s := newTestScraper(t, fetcher)

	fields := FieldMapping{"id": "objectID"}
	until := int64(43)
	it := mustScrape(t, s, Query{Tag: "test", Since: 42, Until: &until, Fields: fields})

	fields["id"] = "title"
	until = 99

	items, err := collect(t, it)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if items[0]["id"] != 21 {
		t.Errorf("id = %v, want 21", items[0]["id"])
	}
	if *fetcher.requests[0].Until != 43 {
		t.Errorf("until = %d, want 43", *fetcher.requests[0].Until)
	}
}

func TestIterator_All(t *testing.T) {
	hits := []RawItem{testHit(), testHit()}

	t.Run("complete", func(t *testing.T) {
		fetcher := newScriptedFetcher(dataPage(hits, 1), emptyPage(2, 1, 2))
		s := newTestScraper(t, fetcher)

		count := 0
		for item, err := range mustScrape(t, s, Query{Tag: "test", Since: 42}).All(context.Background()) {
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if item["objectID"] != 21 {
				t.Errorf("objectID = %v, want 21", item["objectID"])
			}
			count++
		}
		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
	})

	t.Run("failure is yielded last", func(t *testing.T) {
		fetcher := newScriptedFetcher(dataPage(hits, 1), emptyPage(3, 1, 2))
		s := newTestScraper(t, fetcher)

		var got []error
		for _, err := range mustScrape(t, s, Query{Tag: "test", Since: 42}).All(context.Background()) {
			got = append(got, err)
		}
		if len(got) != 3 || got[0] != nil || got[1] != nil || !errors.Is(got[2], ErrCapacityExceeded) {
			t.Errorf("errors = %v, want [nil nil capacity]", got)
		}
	})

	t.Run("break closes", func(t *testing.T) {
		fetcher := newScriptedFetcher(dataPage(hits, 2), dataPage(hits, 2), emptyPage(4, 2, 2))
		s := newTestScraper(t, fetcher)

		it := mustScrape(t, s, Query{Tag: "test", Since: 42})
		for range it.All(context.Background()) {
			break
		}

		if it.Next(context.Background()) {
			t.Error("Next() after break should return false")
		}
		if len(fetcher.requests) != 1 {
			t.Errorf("fetches = %d, want 1", len(fetcher.requests))
		}
	})
}

func TestRawPage_Truncated(t *testing.T) {
	tests := []struct {
		name string
		page RawPage
		want bool
	}{
		{name: "all reachable", page: RawPage{NbHits: 2, NbPages: 1, HitsPerPage: 2}, want: false},
		{name: "nothing found", page: RawPage{}, want: false},
		{name: "one beyond limit", page: RawPage{NbHits: 3, NbPages: 1, HitsPerPage: 2}, want: true},
		{name: "search cap", page: RawPage{NbHits: 5000, NbPages: 50, HitsPerPage: 20}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.Truncated(); got != tt.want {
				t.Errorf("Truncated() = %v, want %v", got, tt.want)
			}
		})
	}
}
