package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	changeFeedFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sync_service",
		Subsystem: "change_feed",
		Name:      "messages_fetched_total",
		Help:      "Total number of change-feed messages fetched.",
	})

	changeFeedMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sync_service",
		Subsystem: "change_feed",
		Name:      "messages_malformed_total",
		Help:      "Total number of change-feed messages that failed to parse or apply.",
	})

	changeFeedDLQ = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sync_service",
		Subsystem: "change_feed",
		Name:      "messages_dlq_total",
		Help:      "Total number of change-feed messages routed to the DLQ.",
	})

	changeFeedCommitErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sync_service",
		Subsystem: "change_feed",
		Name:      "commit_errors_total",
		Help:      "Total number of offset commit failures.",
	})
)
