package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for AppointmentsTotal.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeConflict  = "conflict"
	OutcomeNotFound  = "not_found"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	AppointmentsTotal *prometheus.CounterVec
	LockWaitDuration  prometheus.Histogram

	StoreOpDuration *prometheus.HistogramVec

	EventsPublishedTotal *prometheus.CounterVec
	EventsDropped        prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewCollector registers every metric on reg. A nil reg uses the default
// registry.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Collector{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		AppointmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "appointments_total",
			Help:      "Appointment operations by operation and outcome.",
		}, []string{"operation", "outcome"}),

		LockWaitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "doctor_lock_wait_seconds",
			Help:      "Time spent waiting for a doctor's schedule lock.",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),

		StoreOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency distribution.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"operation"}),

		EventsPublishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Lifecycle events handed to the publisher, by result.",
		}, []string{"type", "result"}),

		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "buffer_dropped_total",
			Help:      "Lifecycle events dropped due to full buffer. Alert if non-zero.",
		}),

		gatherer: gatherer,
	}
}

// The helpers below are nil-safe so components built without metrics
// need no guards.

func (c *Collector) ObserveAppointment(operation, outcome string) {
	if c == nil {
		return
	}
	c.AppointmentsTotal.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) ObserveLockWait(d time.Duration) {
	if c == nil {
		return
	}
	c.LockWaitDuration.Observe(d.Seconds())
}

func (c *Collector) ObserveStoreOp(operation string, start time.Time) {
	if c == nil {
		return
	}
	c.StoreOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (c *Collector) ObserveEvent(eventType, result string) {
	if c == nil {
		return
	}
	c.EventsPublishedTotal.WithLabelValues(eventType, result).Inc()
}

func (c *Collector) EventDropped() {
	if c == nil {
		return
	}
	c.EventsDropped.Inc()
}

// Handler serves the registry the collector was registered on.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return MetricsHandler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
