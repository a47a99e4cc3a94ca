package scraper

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the scraper configuration.
type Config struct {
	// DefaultTimeout bounds a page fetch when the query sets no timeout.
	DefaultTimeout time.Duration

	// Logger overrides the component logger derived from the global logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default scraper configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: DefaultTimeout,
	}
}

// Scraper walks every page of a query window. It holds no per-scrape state, so
// one Scraper can serve any number of iterators.
type Scraper struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// New creates a scraper on top of fetcher.
func New(fetcher PageFetcher, cfg Config) (*Scraper, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}

	if cfg.DefaultTimeout < 0 {
		return nil, fmt.Errorf("default_timeout must be >= 0 (got %s)", cfg.DefaultTimeout)
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}

	logger := log.With().Str("component", "hn-scraper").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Scraper{
		fetcher: fetcher,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Scrape returns an iterator over every item of the query window.
//
// No request is made until the first call to Next. The iterator fetches page 0,
// 1, 2, ... and stops at the first page without hits. If that page reports more
// hits than the endpoint can page through, the iterator fails with a
// *CapacityError instead.
func (s *Scraper) Scrape(q Query) (*Iterator, error) {
	if q.Tag == "" {
		return nil, fmt.Errorf("tag is required")
	}

	if q.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", q.Timeout)
	}

	timeout := q.Timeout
	if timeout == 0 {
		timeout = s.config.DefaultTimeout
	}

	q.Fields = q.Fields.Clone()
	if q.Until != nil {
		until := *q.Until
		q.Until = &until
	}

	logger := s.logger.With().
		Str("tag", string(q.Tag)).
		Int64("since", q.Since).
		Logger()

	return &Iterator{
		fetcher: s.fetcher,
		query:   q,
		timeout: timeout,
		logger:  logger,
	}, nil
}
