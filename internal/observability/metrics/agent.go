// Package metrics provides Prometheus metrics for the posting agent.
// Metrics cover upstream HTTP call outcomes, retry volume, gate decisions,
// and run-level results. In daemon mode they are exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AgentMetrics provides Prometheus metrics for the posting agent.
//
// Metrics:
//   - agent_upstream_calls_total: Total upstream HTTP calls by upstream and result kind
//   - agent_upstream_retries_total: Total retry attempts by upstream
//   - agent_gate_decisions_total: Total rate gate decisions by outcome
//   - agent_posts_published_total: Total posts accepted by the platform
//   - agent_runs_total: Total agent runs by status (success/denied/failure)
//   - agent_run_duration_seconds: Duration histogram of a full run
type AgentMetrics struct {
	// UpstreamCallsTotal counts upstream HTTP calls.
	// Labels: upstream (moltbook, ollama), result (success, unauthorized,
	// rate_limited, http_error, timeout, network_error)
	UpstreamCallsTotal *prometheus.CounterVec

	// UpstreamRetriesTotal counts retry attempts beyond the first try.
	// Labels: upstream (moltbook, ollama)
	UpstreamRetriesTotal *prometheus.CounterVec

	// GateDecisionsTotal counts rate gate decisions.
	// Labels: decision (allowed, denied_cap, denied_cooldown)
	GateDecisionsTotal *prometheus.CounterVec

	// PostsPublishedTotal counts posts confirmed by the platform.
	PostsPublishedTotal prometheus.Counter

	// RunsTotal counts complete agent runs.
	// Labels: status (published, skipped, failed)
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures the duration of a full agent run.
	// Buckets span quick denials up to a slow model inference.
	RunDurationSeconds prometheus.Histogram
}

// NewAgentMetrics creates an AgentMetrics instance registered on the given
// registerer. Tests pass a fresh prometheus.NewRegistry() to avoid
// cross-test collisions; cmd/agent passes the default registerer.
func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	factory := promauto.With(reg)

	return &AgentMetrics{
		UpstreamCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_upstream_calls_total",
			Help: "Total upstream HTTP calls by upstream and result kind",
		}, []string{"upstream", "result"}),

		UpstreamRetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_upstream_retries_total",
			Help: "Total retry attempts beyond the first try, by upstream",
		}, []string{"upstream"}),

		GateDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_gate_decisions_total",
			Help: "Total rate gate decisions by outcome",
		}, []string{"decision"}),

		PostsPublishedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "agent_posts_published_total",
			Help: "Total posts confirmed by the platform",
		}),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_runs_total",
			Help: "Total agent runs by status (published/skipped/failed)",
		}, []string{"status"}),

		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_run_duration_seconds",
			Help:    "Duration of a full agent run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 180, 300},
		}),
	}
}

// RecordUpstreamCall increments the upstream call counter for the given
// upstream name and result kind.
func (m *AgentMetrics) RecordUpstreamCall(upstream, result string) {
	m.UpstreamCallsTotal.WithLabelValues(upstream, result).Inc()
}

// RecordUpstreamRetry increments the retry counter for the given upstream.
func (m *AgentMetrics) RecordUpstreamRetry(upstream string) {
	m.UpstreamRetriesTotal.WithLabelValues(upstream).Inc()
}

// RecordGateDecision increments the gate decision counter.
func (m *AgentMetrics) RecordGateDecision(decision string) {
	m.GateDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordRun increments the run counter and observes the run duration.
func (m *AgentMetrics) RecordRun(status string, seconds float64) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDurationSeconds.Observe(seconds)
}
