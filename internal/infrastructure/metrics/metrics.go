package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "graylogic_devices_"

	resultSuccess = "success"
	resultError   = "error"
)

// Recorder owns the service's prometheus collectors on a private registry.
// It implements device.Recorder.
type Recorder struct {
	registry *prometheus.Registry

	persistTotal   *prometheus.CounterVec
	persistLatency *prometheus.HistogramVec
	notifyTotal    *prometheus.CounterVec
	devices        prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New creates a Recorder with every collector registered, plus the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		persistTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "persist_total",
				Help: "Device store operations by op and result",
			},
			[]string{"op", "result"},
		),
		persistLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "persist_latency_seconds",
				Help:    "Device store latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		notifyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notify_total",
				Help: "Device notifications by topic and result",
			},
			[]string{"topic", "result"},
		),
		devices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "registered",
				Help: "Devices currently held by the registry",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	r.registry.MustRegister(
		r.persistTotal,
		r.persistLatency,
		r.notifyTotal,
		r.devices,
		r.httpRequests,
		r.httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObservePersist records one store operation ("insert" or "replace").
func (r *Recorder) ObservePersist(op string, err error, elapsed time.Duration) {
	r.persistTotal.WithLabelValues(op, result(err)).Inc()
	r.persistLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveNotify records one publish attempt.
func (r *Recorder) ObserveNotify(topic string, err error) {
	r.notifyTotal.WithLabelValues(topic, result(err)).Inc()
}

// ObserveDeviceCount sets the registered-devices gauge.
func (r *Recorder) ObserveDeviceCount(n int) {
	r.devices.Set(float64(n))
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
