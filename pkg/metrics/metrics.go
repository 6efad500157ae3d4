// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "confbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// UpdatesTotal counts updates received from the platform.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confbot_updates_total",
			Help: "Updates received from the messaging platform",
		},
		[]string{"mode"},
	)

	// CommandsTotal counts handled commands by outcome.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confbot_commands_total",
			Help: "Commands handled, by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	// CommandDuration tracks how long a command takes end to end.
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "confbot_command_duration_seconds",
			Help:    "Command handling duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"command"},
	)

	// StoreOperationsTotal counts key-value operations by result.
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confbot_store_operations_total",
			Help: "Key-value store operations",
		},
		[]string{"op", "status"},
	)

	// PendingAckDeletions tracks acknowledgements waiting to be removed.
	PendingAckDeletions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "confbot_pending_ack_deletions",
			Help: "Acknowledgement messages scheduled for deletion",
		},
	)

	// NoteEventsPublished counts note events sent to JetStream.
	NoteEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confbot_note_events_published_total",
			Help: "Note events published to NATS",
		},
		[]string{"action", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCommand records the outcome and latency of one command.
func RecordCommand(command, outcome string, duration float64) {
	CommandsTotal.WithLabelValues(command, outcome).Inc()
	CommandDuration.WithLabelValues(command).Observe(duration)
}

// RecordStoreOp records a single key-value operation.
func RecordStoreOp(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOperationsTotal.WithLabelValues(op, status).Inc()
}
