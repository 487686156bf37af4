package insight

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRecorder abstracts metrics recording for insight
// generation: generation duration, parse-failure rate, and a
// per-provider counter.
type MetricsRecorder interface {
	RecordDuration(duration time.Duration)
	RecordParseFailure()
	RecordGeneration(provider string)
}

// PrometheusMetrics implements MetricsRecorder with Prometheus metrics.
type PrometheusMetrics struct {
	durationHistogram  prometheus.Histogram
	parseFailureCount  prometheus.Counter
	generationCounter  *prometheus.CounterVec
}

var (
	prometheusMetricsInstance *PrometheusMetrics
	prometheusMetricsOnce     sync.Once
)

func getOrCreateHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
		return promauto.NewHistogram(opts)
	}
	return h
}

func getOrCreateCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter)
		}
		return promauto.NewCounter(opts)
	}
	return c
}

func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// NewPrometheusMetrics builds the singleton Prometheus recorder.
func NewPrometheusMetrics() *PrometheusMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusMetrics{
			durationHistogram: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "insight_generation_duration_seconds",
				Help:    "Time taken to generate a structured insights payload via the LLM oracle",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}),
			parseFailureCount: getOrCreateCounter(prometheus.CounterOpts{
				Name: "insight_generation_parse_failures_total",
				Help: "Total number of insight responses that failed JSON parsing entirely",
			}),
			generationCounter: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "insight_generation_total",
				Help: "Total number of insight generations, labeled by provider",
			}, []string{"provider"}),
		}
	})
	return prometheusMetricsInstance
}

func (p *PrometheusMetrics) RecordDuration(duration time.Duration) {
	p.durationHistogram.Observe(duration.Seconds())
}

func (p *PrometheusMetrics) RecordParseFailure() {
	p.parseFailureCount.Inc()
}

func (p *PrometheusMetrics) RecordGeneration(provider string) {
	p.generationCounter.WithLabelValues(provider).Inc()
}
