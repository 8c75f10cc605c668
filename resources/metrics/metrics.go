// Package metrics collects request and process metrics in a Prometheus registry.
package metrics

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

const namespace = "appgate"

type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	goroutines prometheus.Gauge
	heapBytes  prometheus.Gauge
	uptime     prometheus.Gauge
	samples    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "goroutines",
			Help:      "Goroutines at the last sample.",
		}),
		heapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "heap_alloc_bytes",
			Help:      "Allocated heap bytes at the last sample.",
		}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      "uptime_seconds",
			Help:      "Seconds since the metrics worker started.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "samples_total",
			Help:      "Samples taken by the metrics worker.",
		}),
	}

	m.registry.MustRegister(
		m.requests, m.duration,
		m.goroutines, m.heapBytes, m.uptime, m.samples,
		collectors.NewGoCollector(),
	)
	return m
}

// OtherMethod labels requests whose method is not a standard one.
const OtherMethod = "OTHER"

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-9.1
var knownMethods = map[string]struct{}{
	"GET": {}, "HEAD": {}, "POST": {}, "PUT": {}, "DELETE": {},
	"CONNECT": {}, "OPTIONS": {}, "TRACE": {}, "PATCH": {},
}

func methodLabel(method string) string {
	if _, ok := knownMethods[method]; ok {
		return method
	}
	return OtherMethod
}

// RecordRequest counts one finished HTTP request.
// route must come from a bounded set; methods outside RFC 9110 are folded into [OtherMethod].
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	method, statusLabel := methodLabel(method), strconv.Itoa(status)
	m.requests.WithLabelValues(method, route, statusLabel).Inc()
	m.duration.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

// Registry is where every collector of m is registered. More collectors may be added.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Snapshot renders every metric family in the Prometheus text format.
func (m *Metrics) Snapshot() ([]byte, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gathering metrics")
	}

	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, errors.Wrapf(err, "encoding %s", mf.GetName())
		}
	}
	return buf.Bytes(), nil
}
