// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
	apperrors "github.com/killallgit/spectrogram-api/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeSuccess labels requests that produced an image
const OutcomeSuccess = "success"

// Collector holds the pipeline metrics on a private registry
type Collector struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	queueDepth    prometheus.GaugeFunc
}

// NewCollector registers the pipeline metrics. queueDepth is sampled at
// scrape time and may be nil.
func NewCollector(queueDepth func() int) *Collector {
	if queueDepth == nil {
		queueDepth = func() int { return 0 }
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spectrogram_requests_total",
			Help: "Spectrogram requests by outcome (success or error code).",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spectrogram_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		queueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "spectrogram_pool_queue_depth",
			Help: "Requests waiting for a worker.",
		}, func() float64 { return float64(queueDepth()) }),
	}

	c.registry.MustRegister(
		c.requests,
		c.stageDuration,
		c.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveStage implements pipeline.Observer
func (c *Collector) ObserveStage(stage pipeline.Stage, d time.Duration) {
	c.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// RecordOutcome counts one finished request
func (c *Collector) RecordOutcome(err error) {
	c.requests.WithLabelValues(Outcome(err)).Inc()
}

// Outcome returns the label for a request result
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return strings.ToLower(string(apperrors.GetCode(err)))
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
