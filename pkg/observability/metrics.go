// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring hosted agents.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AgentBuckets defines histogram buckets suited for agent run latencies,
// ranging from 100ms to 120s.
var AgentBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antwort_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "antwort_request_duration_seconds",
			Help:    "Request duration",
			Buckets: AgentBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "antwort_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// ResponsesTotal counts finished response generations by agent, mode
	// (stream or sync) and final status.
	ResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antwort_responses_total",
			Help: "Responses by final status",
		},
		[]string{"agent", "mode", "status"},
	)

	// AgentLatency records the duration of agent runs in seconds.
	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "antwort_agent_latency_seconds",
			Help:    "Agent run latency",
			Buckets: AgentBuckets,
		},
		[]string{"agent", "mode"},
	)

	// AgentTokensTotal counts tokens reported by agents by kind
	// (input, output, cached, reasoning).
	AgentTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antwort_agent_tokens_total",
			Help: "Token count",
		},
		[]string{"agent", "kind"},
	)

	// StreamEventsTotal counts emitted stream events by event type.
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "antwort_stream_events_total",
			Help: "Stream events emitted",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		ResponsesTotal,
		AgentLatency,
		AgentTokensTotal,
		StreamEventsTotal,
	)
}

// TokenCounts is the token breakdown recorded per response.
type TokenCounts struct {
	Input     int
	Output    int
	Cached    int
	Reasoning int
}

// RecordResponse records the outcome of one response generation.
func RecordResponse(agentName, mode, status string, duration time.Duration, tokens TokenCounts) {
	ResponsesTotal.WithLabelValues(agentName, mode, status).Inc()
	AgentLatency.WithLabelValues(agentName, mode).Observe(duration.Seconds())

	for kind, n := range map[string]int{
		"input":     tokens.Input,
		"output":    tokens.Output,
		"cached":    tokens.Cached,
		"reasoning": tokens.Reasoning,
	} {
		if n > 0 {
			AgentTokensTotal.WithLabelValues(agentName, kind).Add(float64(n))
		}
	}
}
