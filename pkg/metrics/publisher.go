package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records outbox publishing activity.
type PublisherMetrics struct {
	duration  *prometheus.HistogramVec
	published prometheus.Counter
	failed    prometheus.Counter
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events successfully published.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox events that failed to publish.",
	})
	reg.MustRegister(duration, published, failed)
	return &PublisherMetrics{
		duration:  duration,
		published: published,
		failed:    failed,
	}
}

// ObserveBatch records the duration of one publish batch.
func (p *PublisherMetrics) ObserveBatch(topic string, elapsed time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(topic)).Observe(elapsed.Seconds())
}

// AddPublished bumps the published counter by n.
func (p *PublisherMetrics) AddPublished(n int) {
	if p == nil || p.published == nil {
		return
	}
	p.published.Add(float64(n))
}

// AddFailed bumps the failure counter by n.
func (p *PublisherMetrics) AddFailed(n int) {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.Add(float64(n))
}
