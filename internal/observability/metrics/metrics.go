package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activities_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "activities_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	registrationOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activities_registration_operations_total",
		Help: "Signup and unregister attempts by outcome",
	}, []string{"op", "result"})

	registrationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "activities_registration_duration_seconds",
		Help:    "Duration of signup attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	activityParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "activities_participants",
		Help: "Current participant count per activity (refreshed periodically)",
	}, []string{"activity"})

	activityCapacity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "activities_capacity",
		Help: "Configured max participants per activity",
	}, []string{"activity"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activities_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveRegistration records a signup or unregister attempt outcome.
// op is "signup" or "unregister"; result is "success" or the failure kind.
func ObserveRegistration(op, result string) {
	registrationOps.WithLabelValues(op, result).Inc()
}

// ObserveSignupDuration records how long a signup attempt took
func ObserveSignupDuration(result string, duration time.Duration) {
	registrationDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// SetActivitySeats publishes the participant count and capacity gauges
// for one activity.
func SetActivitySeats(activity string, participants, capacity int) {
	activityParticipants.WithLabelValues(activity).Set(float64(participants))
	activityCapacity.WithLabelValues(activity).Set(float64(capacity))
}

// ObserveLogin records a login attempt outcome
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}
