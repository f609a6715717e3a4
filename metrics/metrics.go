package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)

	// HoldsCreated counts holds created since process start
	HoldsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "holds",
			Name:      "created_total",
			Help:      "The total number of ticket holds created",
		},
	)

	// HoldsReleased counts holds released since process start
	HoldsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "holds",
			Name:      "released_total",
			Help:      "The total number of ticket holds released",
		},
	)

	// LinksCreated counts purchase links created since process start
	LinksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "links",
			Name:      "created_total",
			Help:      "The total number of purchase links created",
		},
	)

	// LinksRevoked counts purchase links revoked since process start
	LinksRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "links",
			Name:      "revoked_total",
			Help:      "The total number of purchase links revoked",
		},
	)

	// PurchasesCompleted counts completed purchases since process start
	PurchasesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "purchases",
			Name:      "completed_total",
			Help:      "The total number of completed hold purchases",
		},
	)

	// PurchasedTickets counts individual ticket units sold through links
	PurchasedTickets = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "purchases",
			Name:      "tickets_total",
			Help:      "The total number of ticket units sold through purchase links",
		},
	)
)
