package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handler outcomes
const (
	OutcomeOK         = "ok"
	OutcomeRetried    = "retried"
	OutcomeExhausted  = "exhausted"
	OutcomeDeadLetter = "dead_letter"
)

var (
	// EventsHandled counts trigger invocations by event and outcome.
	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialape_events_handled_total",
		Help: "Total number of lifecycle events handled by trigger and outcome",
	}, []string{"kind", "op", "handler", "outcome"})

	// HandlerDuration records trigger latency.
	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialape_event_handler_duration_seconds",
		Help:    "Trigger handler latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler"})

	// BatchChunks counts chunked commits issued by cascade and propagation.
	BatchChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialape_batch_chunks_committed_total",
		Help: "Total number of batch chunks by outcome",
	}, []string{"outcome"})

	// EventsPublished counts events handed to a bus.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialape_events_published_total",
		Help: "Total number of lifecycle events published by kind and op",
	}, []string{"kind", "op"})
)

// ObserveHandler records the latency of a handler invocation started at start.
func ObserveHandler(handler string, start time.Time) {
	HandlerDuration.WithLabelValues(handler).Observe(time.Since(start).Seconds())
}
