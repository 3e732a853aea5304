// Package metrics exposes Prometheus counters for player rendering.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderDecisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelhouse_render_decision_total",
		Help: "Total number of player renders by chosen state and content kind.",
	}, []string{"state", "kind"})

	embedResolutionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelhouse_embed_resolution_total",
		Help: "Total number of video URLs classified, by embed provider.",
	}, []string{"provider"})

	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelhouse_rate_limited_total",
		Help: "Total number of requests rejected by a rate limiter.",
	}, []string{"limiter"})
)

// RecordRenderDecision records one player render outcome.
func RecordRenderDecision(state, kind string) {
	renderDecisionTotal.WithLabelValues(normalizeStateLabel(state), normalizeKindLabel(kind)).Inc()
}

// RecordEmbedResolution records one URL classification.
func RecordEmbedResolution(provider string) {
	embedResolutionTotal.WithLabelValues(normalizeProviderLabel(provider)).Inc()
}

// RecordRateLimited records one rejected request.
func RecordRateLimited(limiter string) {
	if limiter == "" {
		limiter = "default"
	}
	rateLimitedTotal.WithLabelValues(limiter).Inc()
}

func normalizeStateLabel(state string) string {
	switch s := strings.ToLower(strings.TrimSpace(state)); s {
	case "show_trailer", "show_embedded_main", "show_native_main", "empty":
		return s
	default:
		return "unknown"
	}
}

func normalizeKindLabel(kind string) string {
	switch k := strings.ToLower(strings.TrimSpace(kind)); k {
	case "movie", "web_series", "show":
		return k
	default:
		return "unknown"
	}
}

func normalizeProviderLabel(provider string) string {
	switch p := strings.ToLower(strings.TrimSpace(provider)); p {
	case "youtube", "vimeo", "dailymotion", "none":
		return p
	default:
		return "unknown"
	}
}
