// Package metrics provides Prometheus instrumentation for the comment
// moderation service. It exposes counters for verdicts and cooldown
// escalations, histograms for abuse scores and evaluation latency, and a
// gauge for admin feed connections.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommentsTotal counts evaluated comments, labeled by verdict:
	// "allow", "allow_masked", "apply_cooldown", "shadow_ban",
	// "shadow_ban_auto_ban", plus "rejected" for banned authors.
	CommentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_evaluated_total",
		Help: "Total number of comments evaluated, by verdict",
	}, []string{"verdict"})

	// AbuseScore records the distribution of per-comment abuse scores.
	AbuseScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "comments_abuse_score",
		Help:    "Distribution of abuse scores",
		Buckets: []float64{0, 1, 3, 5, 10, 15, 20, 30, 50},
	})

	// EvalLatency records full pipeline evaluation latency in seconds.
	EvalLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "comments_eval_latency_seconds",
		Help:    "Comment evaluation latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// CooldownTransitions counts cooldown state changes, labeled
	// "escalate" or "decay".
	CooldownTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_cooldown_transitions_total",
		Help: "Total cooldown escalations and decays",
	}, []string{"transition"})

	// ReportsTotal counts reader reports, labeled by reason.
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comments_reports_total",
		Help: "Total reader reports filed, by reason",
	}, []string{"reason"})

	// FeedConnections tracks the current number of admin feed WebSocket
	// connections.
	FeedConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "comments_feed_connections",
		Help: "Current number of admin feed WebSocket connections",
	})
)

func init() {
	prometheus.MustRegister(
		CommentsTotal,
		AbuseScore,
		EvalLatency,
		CooldownTransitions,
		ReportsTotal,
		FeedConnections,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
