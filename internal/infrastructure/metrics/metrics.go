// Package metrics registers the engine's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeRepaired  = "repaired"
	OutcomeCancelled = "cancelled"
)

var (
	ChainsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handshake_chains_created_total",
		Help: "Clearing chains inserted by discovery",
	})

	ChainReplacements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handshake_chain_replacements_total",
		Help: "Replacement searches after a decline, by outcome",
	}, []string{"outcome"})

	CyclesFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "handshake_cycles_found",
		Help:    "Cycles found per discovery run",
		Buckets: []float64{0, 1, 5, 25, 100, 1000, 10000},
	})

	NotificationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handshake_notifications_created_total",
		Help: "Help-request notifications inserted",
	})

	RecipientsResolved = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "handshake_bfs_recipients",
		Help:    "Users returned by one recipient resolution",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
	})

	ClusterComputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "handshake_cluster_compute_duration_seconds",
		Help:    "Time to load the graph and compute components",
		Buckets: []float64{0.001, 0.01, 0.1, 1, 10},
	})
)
