// Package metrics holds the Prometheus collectors of the admin API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hotel_admin"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	bookingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bookings",
			Name:      "events_total",
			Help:      "Bookings created and status transitions applied.",
		},
		[]string{"event"},
	)

	installments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collections",
			Name:      "installments_total",
			Help:      "Installments recorded against loan collections.",
		},
	)

	reminders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "fired_total",
			Help:      "Inquiry reminders fired, by outcome.",
		},
		[]string{"result"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		bookingEvents,
		installments,
		reminders,
		rateLimited,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted marks a request in flight and returns the func that records
// its outcome.
func RequestStarted() func(method, route string, status int) {
	start := time.Now()
	httpInFlight.Inc()
	return func(method, route string, status int) {
		httpInFlight.Dec()
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func BookingEvent(event string) { bookingEvents.WithLabelValues(event).Inc() }

func InstallmentRecorded() { installments.Inc() }

func ReminderFired(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	reminders.WithLabelValues(result).Inc()
}

func RateLimited() { rateLimited.Inc() }
