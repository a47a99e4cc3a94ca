package checkpoint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckpointAdvances tracks watermarks moved forward by tag
	CheckpointAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_checkpoint_advances_total",
			Help: "Total number of checkpoint watermarks moved forward",
		},
		[]string{"tag"},
	)

	// CheckpointValue tracks the latest stored watermark by tag
	CheckpointValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hn_checkpoint_timestamp_seconds",
			Help: "Latest stored checkpoint watermark as a unix timestamp",
		},
		[]string{"tag"},
	)

	// CheckpointErrors tracks checkpoint operation errors
	CheckpointErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hn_checkpoint_errors_total",
			Help: "Total number of checkpoint operation errors",
		},
		[]string{"operation"}, // "get", "advance", "delete"
	)
)
