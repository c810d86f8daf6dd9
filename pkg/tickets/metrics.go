package tickets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ticketwolf"

var (
	// TicketsCreated is the total number of tickets opened.
	TicketsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tickets_created_total",
			Help:      "Total number of tickets opened",
		},
		[]string{"type"},
	)

	// TicketsRejected is the total number of creations refused by the guard.
	TicketsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tickets_rejected_total",
			Help:      "Total number of ticket creations rejected by the guard",
		},
		[]string{"reason"},
	)

	// TicketsClaimed is the total number of tickets claimed.
	TicketsClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tickets_claimed_total",
			Help:      "Total number of tickets claimed",
		},
	)

	// TicketsClosed is the total number of tickets closed.
	TicketsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tickets_closed_total",
			Help:      "Total number of tickets closed",
		},
		[]string{"by"},
	)

	// SideEffectFailures is the total number of best effort platform calls that failed.
	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "side_effect_failures_total",
			Help:      "Total number of failed best effort platform calls",
		},
		[]string{"step"},
	)

	// SweepDuration is the duration of an auto-close sweep.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "auto_close_sweep_duration_seconds",
			Help:      "Duration of an auto-close sweep",
		},
	)
)
