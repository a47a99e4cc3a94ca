package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for scrape progress.
var (
	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hn_scrape_pages_total",
		Help: "Total pages fetched by tag",
	}, []string{"tag"})

	itemsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hn_scrape_items_total",
		Help: "Total translated items handed to callers by tag",
	}, []string{"tag"})

	pageFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hn_scrape_page_duration_seconds",
		Help:    "Page fetch duration in seconds by tag",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"tag"})

	scrapeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hn_scrape_failures_total",
		Help: "Total scrapes that ended in an error by tag and reason",
	}, []string{"tag", "reason"}) // reason: "capacity", "fetch"
)
