package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports event-queue activity to Prometheus. It satisfies
// eventqueue.Observer.
type Metrics struct {
	registry *prometheus.Registry

	enqueued       *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	delivered      *prometheus.CounterVec
	listenerErrors *prometheus.CounterVec
	depth          prometheus.Gauge
	drain          prometheus.Histogram
}

// NewMetrics registers the queue metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fix_queue_enqueued_total",
			Help: "Messages accepted by the event queue.",
		}, []string{"msg_type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fix_queue_dropped_total",
			Help: "Messages dropped because the queue was closed.",
		}, []string{"msg_type"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fix_queue_delivered_total",
			Help: "Successful listener invocations.",
		}, []string{"msg_type"}),
		listenerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fix_queue_listener_errors_total",
			Help: "Listener invocations that returned an error or panicked.",
		}, []string{"msg_type"}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fix_queue_depth",
			Help: "Queue depth observed at the last enqueue.",
		}),
		drain: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fix_queue_drain_seconds",
			Help:    "Time spent delivering one drained batch.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	m.registry.MustRegister(
		m.enqueued,
		m.dropped,
		m.delivered,
		m.listenerErrors,
		m.depth,
		m.drain,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Enqueued(key string, depth int) {
	m.enqueued.WithLabelValues(key).Inc()
	m.depth.Set(float64(depth))
}

func (m *Metrics) Dropped(key string) {
	m.dropped.WithLabelValues(key).Inc()
}

func (m *Metrics) Delivered(key string) {
	m.delivered.WithLabelValues(key).Inc()
}

func (m *Metrics) ListenerFailed(key string) {
	m.listenerErrors.WithLabelValues(key).Inc()
}

func (m *Metrics) Drained(_ int, elapsed time.Duration) {
	m.drain.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
