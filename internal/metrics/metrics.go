// Package metrics exposes Prometheus collectors for tutoring activity.
// Collectors live in a package-level registry served at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "celltutor"

var (
	registry = prometheus.NewRegistry()

	llmRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "LLM requests by purpose, model, and outcome.",
	}, []string{"purpose", "model", "outcome"})

	llmDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "LLM request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"purpose"})

	llmTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_tokens_total",
		Help:      "Tokens exchanged with the LLM, by direction.",
	}, []string{"direction"})

	agentsBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "agents_built_total",
		Help:      "Cell agents built, by detail level and visual availability.",
	}, []string{"detail", "has_visual"})

	visualFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "visual_failures_total",
		Help:      "Visual renders that produced no image.",
	})

	attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attempts_total",
		Help:      "Recorded quiz attempts by tier and correctness.",
	}, []string{"tier", "correct"})

	persistenceFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_failures_total",
		Help:      "Attempts that could not be durably recorded.",
	})

	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Session state transitions.",
	}, []string{"from", "to"})

	simplifications = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simplifications_total",
		Help:      "Simplified re-explanations generated.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP API requests by method, route pattern, and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP API latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

func init() {
	registry.MustRegister(
		llmRequests, llmDuration, llmTokens,
		agentsBuilt, visualFailures,
		attempts, persistenceFailures,
		transitions, simplifications,
		httpRequests, httpDuration,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Registry returns the registry holding all celltutor collectors.
func Registry() *prometheus.Registry {
	return registry
}

// ObserveLLMRequest records one LLM call.
func ObserveLLMRequest(purpose, model string, success bool, latency time.Duration, inputTokens, outputTokens int) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	llmRequests.WithLabelValues(purpose, model, outcome).Inc()
	llmDuration.WithLabelValues(purpose).Observe(latency.Seconds())
	if inputTokens > 0 {
		llmTokens.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		llmTokens.WithLabelValues("output").Add(float64(outputTokens))
	}
}

// AgentBuilt records a completed build.
func AgentBuilt(detail string, hasVisual bool) {
	agentsBuilt.WithLabelValues(detail, strconv.FormatBool(hasVisual)).Inc()
}

// VisualFailed records a render that produced no image.
func VisualFailed() {
	visualFailures.Inc()
}

// AttemptRecorded records a durably stored attempt.
func AttemptRecorded(tier string, correct bool) {
	attempts.WithLabelValues(tier, strconv.FormatBool(correct)).Inc()
}

// PersistenceFailed records a failed attempt write.
func PersistenceFailed() {
	persistenceFailures.Inc()
}

// Transition records a session state change.
func Transition(from, to string) {
	transitions.WithLabelValues(from, to).Inc()
}

// Simplified records a simplified re-explanation.
func Simplified() {
	simplifications.Inc()
}

// ObserveHTTPRequest records one API request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func ObserveHTTPRequest(method, route string, status int, latency time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(latency.Seconds())
}
