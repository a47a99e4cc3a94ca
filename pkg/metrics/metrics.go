// Package metrics exposes the Prometheus metrics of the HN scraper.
// All metrics are defined in their respective packages (scraper, algolia,
// checkpoint) and registered via promauto on the default registry.
//
// This package serves them over HTTP and documents the catalogue.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the default Prometheus registry used by the scraper.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// shutdownTimeout bounds how long Serve waits for in-flight scrapes.
const shutdownTimeout = 5 * time.Second

// Handler returns a mux serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// Serve runs the metrics endpoint on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	}
}

// Metrics Documentation
//
// Scrape Metrics (pkg/scraper):
//   - hn_scrape_pages_total{tag} (Counter): Pages fetched, including the terminal empty page
//   - hn_scrape_items_total{tag} (Counter): Items emitted to callers
//   - hn_scrape_page_duration_seconds{tag} (Histogram): Page fetch duration
//   - hn_scrape_failures_total{tag, reason} (Counter): Failed scrapes (fetch, capacity)
//
// Request Metrics (pkg/algolia):
//   - hn_requests_total{tag, status} (Counter): Search requests by tag and HTTP status
//   - hn_request_duration_seconds{tag} (Histogram): Search request duration
//   - hn_errors_total{class} (Counter): Errors by class (client, server, network, timeout, invalid_response, malformed)
//
// Checkpoint Metrics (pkg/checkpoint):
//   - hn_checkpoint_advances_total{tag} (Counter): Successful watermark advances
//   - hn_checkpoint_timestamp_seconds{tag} (Gauge): Current watermark
//   - hn_checkpoint_errors_total{operation} (Counter): Redis errors by operation
//
// Example Prometheus Queries:
//
//   # Items per scrape run
//   increase(hn_scrape_items_total[1h])
//
//   # Windows too wide for the pagination limit
//   rate(hn_scrape_failures_total{reason="capacity"}[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(hn_request_duration_seconds_bucket[5m]))
//
//   # Watermark lag
//   time() - hn_checkpoint_timestamp_seconds
