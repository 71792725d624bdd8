// Package metrics owns the Prometheus registry exposed at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var latencyBuckets = []float64{0.001, 0.01, 0.1, 0.3, 0.6, 1, 3, 6, 9, 20, 30}

// Metrics is safe to use through a nil pointer, in which case nothing is recorded.
type Metrics struct {
	registry *prometheus.Registry

	hotelAPIRequests *prometheus.CounterVec
	hotelAPIDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	bookingEvents    *prometheus.CounterVec
	panicsRecovered  prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		hotelAPIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_hotel_api_requests_total",
			Help: "Calls made to the hotel API by operation and outcome.",
		}, []string{"operation", "outcome"}),
		hotelAPIDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booking_hotel_api_request_duration_seconds",
			Help:    "Latency of hotel API calls.",
			Buckets: latencyBuckets,
		}, []string{"operation"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_http_requests_total",
			Help: "Requests served by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booking_http_request_duration_seconds",
			Help:    "Latency of served requests.",
			Buckets: latencyBuckets,
		}, []string{"method", "route"}),
		bookingEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_events_published_total",
			Help: "Booking events handed to the broker by type and result.",
		}, []string{"type", "result"}),
		panicsRecovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_http_panics_recovered_total",
			Help: "Requests recovered from an internal panic.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Outcome buckets a hotel API call result for the requests counter.
func Outcome(statusCode int, err error) string {
	switch {
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	case err != nil:
		return "error"
	default:
		return "success"
	}
}

func (m *Metrics) ObserveHotelAPICall(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.hotelAPIRequests.WithLabelValues(operation, outcome).Inc()
	m.hotelAPIDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTPRequest(method, route string, statusCode int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.bookingEvents.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) PanicRecovered() {
	if m == nil {
		return
	}
	m.panicsRecovered.Inc()
}
