package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ComposerUploads counts individual media uploads by result.
	ComposerUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adda_composer_uploads_total",
		Help: "Total number of composer media uploads by result",
	}, []string{"result"})

	// ComposerSubmissions counts post submissions by type and result.
	ComposerSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adda_composer_submissions_total",
		Help: "Total number of composer submissions by post type and result",
	}, []string{"post_type", "result"})

	// ComposerFallbackPosts counts submissions resolved with a synthesized post.
	ComposerFallbackPosts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adda_composer_fallback_posts_total",
		Help: "Total number of successful submissions whose response carried no usable post",
	})

	// ComposerTransitions counts tab transitions by post type and outcome.
	ComposerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adda_composer_transitions_total",
		Help: "Total number of composer tab transitions by post type and outcome",
	}, []string{"post_type", "outcome"})

	// APIRequestDuration records backend request latency by endpoint.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adda_api_request_duration_seconds",
		Help:    "Backend API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// TrackRequest returns a function that records request latency when called (e.g. defer).
func TrackRequest(endpoint string) func() {
	start := time.Now()
	return func() {
		APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
