package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransfersCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "transfer_service",
			Name:      "transfers_completed_total",
			Help:      "Successfully committed transfers",
		},
		[]string{"from_currency", "to_currency"},
	)

	TransfersRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "transfer_service",
			Name:      "transfers_rejected_total",
			Help:      "Rejected or failed transfers by error code",
		},
		[]string{"code"},
	)

	TransferLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "transfer_service",
			Name:      "transfer_duration_seconds",
			Help:      "End-to-end transfer latency including the transaction",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	ConversionPreviews = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "transfer_service",
			Name:      "conversion_previews_total",
			Help:      "Read-only conversion previews served",
		},
	)
)
