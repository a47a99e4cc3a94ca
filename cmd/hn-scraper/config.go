package main

import (
	"fmt"
	"time"

	"github.com/Sternrassler/hn-scraper/pkg/algolia"
	"github.com/Sternrassler/hn-scraper/pkg/checkpoint"
	"github.com/Sternrassler/hn-scraper/pkg/logging"
	"github.com/Sternrassler/hn-scraper/pkg/scraper"
	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	kindStory   = "story"
	kindComment = "comment"
	kindAll     = "all"
)

// options holds all CLI configuration, from flags or environment variables.
type options struct {
	// Scrape window
	Kind    string        `long:"kind" env:"HN_KIND" default:"story" choice:"story" choice:"comment" choice:"all" description:"Kind of item to scrape"`
	Since   int64         `long:"since" env:"HN_SINCE" default:"0" description:"Only items created after this unix timestamp"`
	Until   int64         `long:"until" env:"HN_UNTIL" default:"0" description:"Only items created before this unix timestamp (0 = no upper bound)"`
	Timeout time.Duration `long:"timeout" env:"HN_TIMEOUT" default:"30s" description:"Timeout for each page request"`

	// Search API
	BaseURL   string `long:"base-url" env:"HN_BASE_URL" default:"http://hn.algolia.com/api/v1/search_by_date" description:"Search endpoint URL"`
	UserAgent string `long:"user-agent" env:"HN_USER_AGENT" default:"hn-scraper/0.1.0" description:"User agent string for search requests"`

	// Logging
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"Log level (debug, info, warn, error)"`
	LogPretty bool   `long:"log-pretty" env:"LOG_PRETTY" description:"Human-readable logs instead of JSON"`

	// Checkpoints
	RedisAddr string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for scrape checkpoints (host:port)"`
	Resume    bool   `long:"resume" env:"HN_RESUME" description:"Start after the stored checkpoint and advance it on success"`
	Namespace string `long:"namespace" env:"HN_NAMESPACE" default:"default" description:"Checkpoint namespace"`

	// Metrics
	MetricsAddr string `long:"metrics-addr" env:"METRICS_ADDR" description:"Serve Prometheus metrics on this address (e.g. :9090)"`
}

// parseOptions parses args and the environment. It returns nil options
// without error when help was requested.
func parseOptions(args []string) (*options, error) {
	var opts options

	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (o *options) validate() error {
	if o.Since < 0 {
		return fmt.Errorf("--since must be >= 0 (got %d)", o.Since)
	}
	if o.Until < 0 {
		return fmt.Errorf("--until must be >= 0 (got %d)", o.Until)
	}
	if o.Until != 0 && o.Until <= o.Since {
		return fmt.Errorf("--until (%d) must be after --since (%d)", o.Until, o.Since)
	}
	if o.Timeout < 0 {
		return fmt.Errorf("--timeout must be >= 0 (got %s)", o.Timeout)
	}
	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	if o.Resume && o.RedisAddr == "" {
		return fmt.Errorf("--resume requires --redis-addr")
	}
	return nil
}

// until returns the upper bound, or nil for an open window.
func (o *options) until() *int64 {
	if o.Until == 0 {
		return nil
	}
	return scraper.Timestamp(o.Until)
}

// kinds expands --kind into the tags to scrape, in order.
func (o *options) kinds() []scraper.Tag {
	switch o.Kind {
	case kindComment:
		return []scraper.Tag{scraper.TagComment}
	case kindAll:
		return []scraper.Tag{scraper.TagStory, scraper.TagComment}
	default:
		return []scraper.Tag{scraper.TagStory}
	}
}

func (o *options) algoliaConfig() algolia.Config {
	return algolia.Config{
		BaseURL:   o.BaseURL,
		UserAgent: o.UserAgent,
		Timeout:   o.Timeout,
	}
}

func (o *options) loggingConfig() logging.Config {
	level, _ := logging.ParseLevel(o.LogLevel)
	return logging.Config{
		Level:  level,
		Pretty: o.LogPretty,
		Fields: map[string]string{"app": "hn-scraper", "version": Version},
	}
}

func (o *options) checkpointKey(tag scraper.Tag) checkpoint.Key {
	return checkpoint.Key{Namespace: o.Namespace, Tag: tag}
}
