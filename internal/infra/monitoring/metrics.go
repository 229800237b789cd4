// Package monitoring exposes the subsystem's Prometheus collectors. Metrics
// are registered on the default registry and served on /metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "persona_posts_published_total",
		Help: "Community posts successfully published by personas",
	})

	PostsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "persona_posts_failed_total",
		Help: "Publishing attempts that ended in failure",
	})

	TokensConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "persona_tokens_consumed_total",
		Help: "Posting tokens consumed by successful publishes",
	})

	TokensAllocated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "persona_tokens_allocated_total",
		Help: "Posting tokens handed out by daily resets",
	})

	Interactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_interactions_total",
		Help: "Interaction attempts by type and outcome",
	}, []string{"type", "outcome"})

	ArbiterRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persona_arbiter_rejections_total",
		Help: "Arbiter rejections by reason",
	}, []string{"reason"})
)
