package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync_service",
		Subsystem: "mutator",
		Name:      "mutations_applied_total",
		Help:      "Total number of optimistic mutations applied locally.",
	}, []string{"kind"})

	remoteWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync_service",
		Subsystem: "mutator",
		Name:      "remote_write_failures_total",
		Help:      "Total number of remote writes that failed after an optimistic local apply.",
	}, []string{"table"})

	changeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync_service",
		Subsystem: "ingest",
		Name:      "change_events_total",
		Help:      "Total number of change-feed events, by type and outcome.",
	}, []string{"type", "result"})

	reconcileTicks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sync_service",
		Subsystem: "reconcile",
		Name:      "ticks_total",
		Help:      "Total number of reconciliation passes.",
	})

	reconcileCorrections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync_service",
		Subsystem: "reconcile",
		Name:      "corrections_total",
		Help:      "Total number of corrective mutations issued by reconciliation.",
	}, []string{"reason"})

	divergedRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sync_service",
		Subsystem: "store",
		Name:      "diverged_records",
		Help:      "Number of mirrored records whose remote write failed and was never rolled back.",
	})
)
