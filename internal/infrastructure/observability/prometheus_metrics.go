// Package observability provides metrics instrumentation for the reward
// pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/codequest-hub/gamification-engine/internal/application/reward"
	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
)

// PrometheusMetrics implements reward.Metrics using Prometheus. All
// metric vectors are registered in the global registry on construction.
type PrometheusMetrics struct {
	eventsProcessed *prometheus.CounterVec
	eventLatency    *prometheus.HistogramVec
	pointsAwarded   *prometheus.CounterVec
	badgesAwarded   *prometheus.CounterVec
}

// NewPrometheusMetrics creates and registers the reward pipeline
// metrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		eventsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reward_events_processed_total",
				Help: "Total number of reward events processed.",
			},
			[]string{"kind", "status"},
		),
		eventLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reward_event_duration_seconds",
				Help:    "End-to-end processing time of reward events.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		pointsAwarded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reward_points_awarded_total",
				Help: "Total points granted, by event kind.",
			},
			[]string{"kind"},
		),
		badgesAwarded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reward_badges_awarded_total",
				Help: "Total badges awarded, by rarity and ledger verification outcome.",
			},
			[]string{"rarity", "verified"},
		),
	}
}

// EventProcessed implements reward.Metrics.
func (pm *PrometheusMetrics) EventProcessed(kind reward.EventKind, succeeded bool, duration time.Duration) {
	status := "success"
	if !succeeded {
		status = "failure"
	}
	pm.eventsProcessed.WithLabelValues(string(kind), status).Inc()
	pm.eventLatency.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

// PointsAwarded implements reward.Metrics.
func (pm *PrometheusMetrics) PointsAwarded(kind reward.EventKind, total int) {
	pm.pointsAwarded.WithLabelValues(string(kind)).Add(float64(total))
}

// BadgeAwarded implements reward.Metrics.
func (pm *PrometheusMetrics) BadgeAwarded(tier badge.RarityTier, verified bool) {
	v := "false"
	if verified {
		v = "true"
	}
	pm.badgesAwarded.WithLabelValues(tier.String(), v).Inc()
}

// Compile-time verification that PrometheusMetrics implements reward.Metrics.
var _ reward.Metrics = (*PrometheusMetrics)(nil)
