package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Operations *prometheus.CounterVec
	Checkout   prometheus.Histogram
	Requests   *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cart",
		Name:      "operations_total",
		Help:      "Cart engine operations by outcome.",
	}, []string{"operation", "outcome"})
	checkout := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cart",
		Name:      "checkout_duration_ms",
		Help:      "Checkout transaction latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cart",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cart",
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(ops, checkout, requests, latency)
	return &Metrics{Operations: ops, Checkout: checkout, Requests: requests, LatencyMS: latency}
}

// ObserveOperation counts one engine call. outcome is the error kind, or
// "ok". A nil receiver is a no-op.
func (m *Metrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveCheckout(d time.Duration) {
	if m == nil {
		return
	}
	m.Checkout.Observe(float64(d.Microseconds()) / 1000)
}

func (m *Metrics) ObserveRequest(handler string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(d.Microseconds()) / 1000)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
