// Package metrics holds the Prometheus collectors for the request pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every devkit collector. It is pushed, not scraped.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// TransportRequests counts single HTTP attempts by outcome
	TransportRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devkit_transport_requests_total",
			Help: "Total number of outbound HTTP attempts",
		},
		[]string{"method", "outcome"},
	)

	// TransportDuration tracks HTTP attempt latency
	TransportDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devkit_transport_duration_seconds",
			Help:    "Outbound HTTP attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// RetryAttempts counts retry loop decisions
	RetryAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devkit_retry_attempts_total",
			Help: "Retry loop outcomes per attempt (success, retry, giveup)",
		},
		[]string{"outcome"},
	)

	// RotationSelections counts credentials handed out per group
	RotationSelections = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devkit_rotation_selections_total",
			Help: "Total number of credentials selected by the rotator",
		},
		[]string{"group"},
	)

	// DedupeDecisions counts admit/suppress results
	DedupeDecisions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devkit_dedupe_decisions_total",
			Help: "Total number of dedupe gate decisions",
		},
		[]string{"decision"},
	)

	// StateDegraded counts absorbed state I/O failures
	StateDegraded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devkit_state_degraded_total",
			Help: "State store failures absorbed in degraded mode",
		},
		[]string{"component", "op"},
	)
)
