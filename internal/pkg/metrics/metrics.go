package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CommandsEnqueuedTotal counts commands appended to the queue.
	CommandsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growhub_commands_enqueued_total",
			Help: "Total number of commands enqueued, by priority.",
		},
		[]string{"priority"},
	)

	// CommandsDeliveredTotal counts commands handed to a polling device.
	CommandsDeliveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "growhub_commands_delivered_total",
			Help: "Total number of commands marked Sent via the poll API.",
		},
	)

	// CommandsTerminalTotal counts commands reaching a terminal status.
	CommandsTerminalTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growhub_commands_terminal_total",
			Help: "Total number of commands reaching a terminal status (acknowledged or failed).",
		},
		[]string{"status"},
	)

	// DevicesOffline tracks how many devices currently have an offline tracker.
	DevicesOffline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "growhub_devices_offline",
			Help: "Number of devices currently considered offline.",
		},
	)

	// SweepDurationSeconds observes full liveness sweep latency.
	SweepDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "growhub_sweep_duration_seconds",
			Help:    "Duration of a full liveness sweep across all devices.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// EventsPublishedTotal counts published lifecycle and alert events.
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growhub_events_published_total",
			Help: "Total number of events published, by type.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		CommandsEnqueuedTotal,
		CommandsDeliveredTotal,
		CommandsTerminalTotal,
		DevicesOffline,
		SweepDurationSeconds,
		EventsPublishedTotal,
	)
}
