// Package testutil provides testing utilities for the HN scraper.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAlgolia is a configurable mock of the search_by_date endpoint. Pages are
// served by the page query parameter; requests past the scripted pages get
// the terminal response.
type MockAlgolia struct {
	server *httptest.Server
	mu     sync.RWMutex

	pages    []MockResponse
	terminal MockResponse

	// Tracking
	RequestCount      int
	Queries           []url.Values
	LastRequestHeader http.Header
}

// NewMockAlgolia creates a new mock search server whose only page is an empty
// terminal page.
func NewMockAlgolia() *MockAlgolia {
	mock := &MockAlgolia{
		terminal: NewLastPageResponse(0, 0, 0),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Queries = append(mock.Queries, r.URL.Query())
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.handle(w, r)
	}))

	return mock
}

// URL returns the search endpoint URL of the mock server.
func (m *MockAlgolia) URL() string {
	return m.server.URL + "/api/v1/search_by_date"
}

// Close shuts down the mock server.
func (m *MockAlgolia) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAlgolia) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Queries = nil
	m.LastRequestHeader = nil
}

// SetPages scripts the responses for pages 0..n-1.
func (m *MockAlgolia) SetPages(pages ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = pages
}

// SetTerminal sets the response for every page past the scripted ones.
func (m *MockAlgolia) SetTerminal(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminal = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAlgolia) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetQueries returns the query parameters of every request, in order.
func (m *MockAlgolia) GetQueries() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]url.Values(nil), m.Queries...)
}

// GetLastRequestHeader returns the headers of the latest request.
func (m *MockAlgolia) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

func (m *MockAlgolia) handle(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		http.Error(w, `{"message":"invalid page"}`, http.StatusBadRequest)
		return
	}

	m.mu.RLock()
	resp := m.terminal
	if page >= 0 && page < len(m.pages) {
		resp = m.pages[page]
	}
	m.mu.RUnlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// Hit returns the item used throughout the tests: objectID 21, created_at_i
// 42, title "Test item".
func Hit() map[string]any {
	return map[string]any{
		"objectID":     21,
		"created_at_i": 42,
		"title":        "Test item",
	}
}

// PageBody encodes a search response.
func PageBody(hits []map[string]any, nbHits, nbPages, hitsPerPage int) string {
	if hits == nil {
		hits = []map[string]any{}
	}
	body, err := json.Marshal(map[string]any{
		"hits":        hits,
		"nbHits":      nbHits,
		"nbPages":     nbPages,
		"hitsPerPage": hitsPerPage,
	})
	if err != nil {
		panic(fmt.Sprintf("encode page body: %v", err))
	}
	return string(body)
}

// NewPageResponse creates a 200 OK page of hits out of nbPages pages of the
// same size.
func NewPageResponse(hits []map[string]any, nbPages int) MockResponse {
	return newJSONResponse(http.StatusOK, PageBody(hits, nbPages*len(hits), nbPages, len(hits)))
}

// NewLastPageResponse creates the empty page that ends a scrape. With nbHits
// above nbPages*hitsPerPage it signals the pagination limit.
func NewLastPageResponse(nbHits, nbPages, hitsPerPage int) MockResponse {
	return newJSONResponse(http.StatusOK, PageBody(nil, nbHits, nbPages, hitsPerPage))
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return newJSONResponse(http.StatusInternalServerError, `{"message":"Internal server error"}`)
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse() MockResponse {
	return newJSONResponse(http.StatusBadRequest, `{"message":"Invalid numericFilters"}`)
}

// NewInvalidJSONResponse creates a 200 OK response whose body is not JSON.
func NewInvalidJSONResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       "<html>maintenance</html>",
		Headers:    map[string]string{"Content-Type": "text/html"},
	}
}

func newJSONResponse(status int, body string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
