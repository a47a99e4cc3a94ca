// Command hn-scraper writes every Hacker News story or comment of a time
// window to stdout, one JSON object per line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/hn-scraper/pkg/algolia"
	"github.com/Sternrassler/hn-scraper/pkg/checkpoint"
	"github.com/Sternrassler/hn-scraper/pkg/logging"
	"github.com/Sternrassler/hn-scraper/pkg/metrics"
	"github.com/Sternrassler/hn-scraper/pkg/scraper"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// A missing .env file is fine, everything has defaults or flags.
	_ = godotenv.Load()

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hn-scraper: %v\n", err)
		os.Exit(2)
	}
	if opts == nil {
		// Help was shown
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "hn-scraper: %s\n", errorMessage(err))
		stop()
		os.Exit(1)
	}
}

// run scrapes every requested kind, writing items to stdout and logs to
// stderr. Kinds run one after another; the first failure stops the run.
func run(ctx context.Context, opts *options, stdout, stderr io.Writer) error {
	logCfg := opts.loggingConfig()
	logCfg.Output = stderr
	logging.Setup(logCfg)
	logger := logging.NewLogger("cli")

	if opts.MetricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(metricsCtx, opts.MetricsAddr, logger); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	client, err := algolia.New(opts.algoliaConfig())
	if err != nil {
		return fmt.Errorf("create search client: %w", err)
	}

	s, err := scraper.New(client, scraper.Config{DefaultTimeout: opts.Timeout})
	if err != nil {
		return fmt.Errorf("create scraper: %w", err)
	}

	var store *checkpoint.Store
	if opts.Resume {
		redisClient := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", opts.RedisAddr, err)
		}
		logger.Debug().Str("addr", opts.RedisAddr).Msg("Connected to Redis")
		store = checkpoint.NewStore(redisClient)
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)

	for _, tag := range opts.kinds() {
		ks := kindScraper(s, tag)
		if err := scrapeKind(ctx, ks, opts, store, enc, logger); err != nil {
			logFailure(logger, tag, err)
			return err
		}
	}
	return nil
}

func kindScraper(s *scraper.Scraper, tag scraper.Tag) *scraper.KindScraper {
	if tag == scraper.TagComment {
		return scraper.NewCommentScraper(s)
	}
	return scraper.NewStoryScraper(s)
}

// scrapeKind runs one scrape and, when resuming, advances the checkpoint to
// the newest timestamp written. The checkpoint only moves after a clean run.
func scrapeKind(ctx context.Context, ks *scraper.KindScraper, opts *options, store *checkpoint.Store, enc *json.Encoder, logger zerolog.Logger) error {
	tag := ks.Tag()
	key := opts.checkpointKey(tag)

	since := opts.Since
	if store != nil {
		resumed, err := store.Since(ctx, key, opts.Since)
		if err != nil {
			return fmt.Errorf("read checkpoint %s: %w", key, err)
		}
		if resumed != since {
			logger.Info().Str("tag", string(tag)).Int64("since", resumed).Msg("Resuming from checkpoint")
		}
		since = resumed
	}

	it, err := ks.GetItems(since, opts.until(), opts.Timeout)
	if err != nil {
		return fmt.Errorf("start %s scrape: %w", tag, err)
	}
	defer it.Close()

	watermark := checkpoint.NewWatermark(checkpoint.TimestampField)
	for it.Next(ctx) {
		item := it.Item()
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("write %s item: %w", tag, err)
		}
		watermark.Observe(item)
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("scrape %s: %w", tag, err)
	}

	logger.Info().
		Str("tag", string(tag)).
		Int64("since", since).
		Int("pages", it.Pages()).
		Int("items", it.Emitted()).
		Msg("Scrape complete")

	if store == nil {
		return nil
	}
	ts, ok := watermark.Value()
	if !ok {
		return nil
	}
	advanced, err := store.Advance(ctx, key, ts)
	if err != nil {
		return fmt.Errorf("advance checkpoint %s: %w", key, err)
	}
	if advanced {
		logger.Info().Str("tag", string(tag)).Int64("timestamp", ts).Msg("Checkpoint advanced")
	}
	return nil
}

func logFailure(logger zerolog.Logger, tag scraper.Tag, err error) {
	var capErr *scraper.CapacityError
	if errors.As(err, &capErr) {
		logger.Warn().
			Str("tag", string(tag)).
			Int("nb_hits", capErr.NbHits).
			Int("reachable", capErr.NbPages*capErr.HitsPerPage).
			Msg("Window exceeds the pagination limit")
		return
	}

	event := logger.Error().Err(err).Str("tag", string(tag))
	var transportErr *algolia.TransportError
	if errors.As(err, &transportErr) {
		event = event.Str("error_class", string(transportErr.Class))
	}
	event.Msg("Scrape failed")
}

// errorMessage renders err for the terminal.
func errorMessage(err error) string {
	var capErr *scraper.CapacityError
	if errors.As(err, &capErr) {
		return fmt.Sprintf("%v; narrow the window with --since/--until", err)
	}
	return err.Error()
}
