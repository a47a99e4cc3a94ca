// Package algolia implements scraper.PageFetcher on top of the Hacker News
// search API hosted by Algolia (http://hn.algolia.com/api).
package algolia

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/hn-scraper/pkg/scraper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the search_by_date endpoint of the HN search API.
const DefaultBaseURL = "http://hn.algolia.com/api/v1/search_by_date"

// Prometheus metrics for search API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hn_requests_total",
		Help: "Total search API requests by tag and status",
	}, []string{"tag", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hn_request_duration_seconds",
		Help:    "Search API request duration in seconds by tag",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"tag"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hn_errors_total",
		Help: "Total search API errors by class",
	}, []string{"class"})
)

// Client fetches single result pages from the search API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the search_by_date endpoint.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout bounds a request whose PageRequest carries no timeout.
	Timeout time.Duration

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration pointing at the public endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "hn-scraper/0.1.0",
		Timeout:   scraper.DefaultTimeout,
	}
}

// New creates a new search API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = scraper.DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		config:     cfg,
		logger:     log.With().Str("component", "algolia-client").Logger(),
	}, nil
}

// FetchPage performs one GET request for req and decodes the page.
//
// Network failures, HTTP errors and bodies that are not JSON objects return a
// *TransportError. A JSON object lacking pagination keys returns an error
// wrapping scraper.ErrMalformedResponse. Nothing is retried.
func (c *Client) FetchPage(ctx context.Context, req scraper.PageRequest) (*scraper.RawPage, error) {
	tag := string(req.Tag)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(tag).Observe(time.Since(startTime).Seconds())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL(c.baseURL, req), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("tag", tag).
		Int("page", req.Page).
		Str("numeric_filters", NumericFilters(req.Since, req.Until)).
		Dur("timeout", timeout).
		Msg("Fetching page")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		class := classifyError(err)
		errorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(tag, string(class)).Inc()

		c.logger.Error().Err(err).
			Str("tag", tag).
			Int("page", req.Page).
			Str("error_class", string(class)).
			Msg("Search request failed")

		return nil, &TransportError{
			Class:   class,
			Tag:     tag,
			Page:    req.Page,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(tag, strconv.Itoa(resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Warn().
			Str("tag", tag).
			Int("page", req.Page).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Search API error")

		return nil, &TransportError{
			Class:      class,
			StatusCode: resp.StatusCode,
			Tag:        tag,
			Page:       req.Page,
			Message:    statusText(resp),
		}
	}

	page, err := DecodePage(resp.Body)
	if err != nil {
		if errors.Is(err, scraper.ErrMalformedResponse) {
			errorsTotal.WithLabelValues("malformed").Inc()
			return nil, fmt.Errorf("%s page %d: %w", tag, req.Page, err)
		}

		class := ErrorClassInvalidResponse
		if ctx.Err() != nil {
			class = classifyError(ctx.Err())
		}
		errorsTotal.WithLabelValues(string(class)).Inc()

		return nil, &TransportError{
			Class:   class,
			Tag:     tag,
			Page:    req.Page,
			Message: "decode response",
			Err:     err,
		}
	}

	return page, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
