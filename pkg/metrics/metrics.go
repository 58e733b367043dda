package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	ErrorTotal      *prometheus.CounterVec

	// Motion file ingestion
	Ingestions       *prometheus.CounterVec
	IngestionLatency prometheus.Histogram
	StageLatency     *prometheus.HistogramVec
	ReadingsStored   prometheus.Counter

	// Realtime
	SocketConnections prometheus.Gauge
	EventsPublished   *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "path", "status"}),
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		ErrorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		}, []string{"method", "path", "type"}),

		Ingestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "motion_files_total",
			Help:      "Motion file ingestions by outcome and failing stage",
		}, []string{"outcome", "stage"}),
		IngestionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "End to end motion file ingestion time",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each ingestion stage",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		ReadingsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "readings_stored_total",
			Help:      "Motion readings persisted",
		}),

		SocketConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Current number of websocket connections",
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Realtime events published by name",
		}, []string{"event"}),
	}
}

// ObserveStage records the time since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// IngestionDone records the outcome of one ingestion. stage is empty on
// success.
func (m *Metrics) IngestionDone(stage string, readings int, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Ingestions.WithLabelValues(outcome, stage).Inc()
	m.IngestionLatency.Observe(time.Since(start).Seconds())
	if err == nil {
		m.ReadingsStored.Add(float64(readings))
	}
}

func (m *Metrics) EventPublished(event string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(event).Inc()
}

// SocketOpened counts a live websocket. The returned func undoes it.
func (m *Metrics) SocketOpened() func() {
	if m == nil {
		return func() {}
	}
	m.SocketConnections.Inc()
	return m.SocketConnections.Dec
}
