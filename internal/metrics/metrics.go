// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "perutnina"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

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
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	transfersInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "initiated_total",
			Help:      "Transfers created, by contact method.",
		},
		[]string{"method"},
	)

	transferVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfers",
			Name:      "verifications_total",
			Help:      "Verification attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Push notifications, by result.",
		},
		[]string{"result"},
	)

	droppedTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "dropped_total",
			Help:      "Background tasks dropped because the queue was full.",
		},
		[]string{"task"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		transfersInitiated,
		transferVerifications,
		notifications,
		droppedTasks,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one handled request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// TransferInitiated counts a created transfer.
func TransferInitiated(method string) {
	transfersInitiated.WithLabelValues(method).Inc()
}

// TransferVerification counts a verification attempt. outcome is one of
// "verified", "rejected" or "error".
func TransferVerification(outcome string) {
	transferVerifications.WithLabelValues(outcome).Inc()
}

// Notification counts a notification attempt.
func Notification(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	notifications.WithLabelValues(result).Inc()
}

// TaskDropped counts a dropped background task.
func TaskDropped(task string) {
	droppedTasks.WithLabelValues(task).Inc()
}
