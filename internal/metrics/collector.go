package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records pipeline, capability, and cache metrics. Its stage
// methods satisfy the workflow observer contract.
type Collector struct {
	// Job metrics
	jobsSubmitted  prometheus.Counter
	jobsCompleted  *prometheus.CounterVec
	jobDuration    prometheus.Histogram
	revisionRounds prometheus.Histogram

	// Stage metrics
	stageTransitions *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	stageAttempts    *prometheus.CounterVec

	// Capability metrics
	capabilityRequests *prometheus.CounterVec
	capabilityDuration *prometheus.HistogramVec

	// Report cache metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers the pipeline metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh
// registry to keep registrations isolated.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.jobsSubmitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_submitted_total",
		Help:      "Total number of research jobs submitted",
	})

	c.jobsCompleted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of research jobs finished",
		},
		[]string{"status", "degraded"},
	)

	c.jobDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Research job duration in seconds",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
	})

	c.revisionRounds = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "revision_rounds",
		Help:      "Audit revision rounds per job",
		Buckets:   []float64{0, 1, 2, 3, 4},
	})

	c.stageTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Total number of stage state transitions",
		},
		[]string{"stage", "from_state", "to_state"},
	)

	c.stageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage", "status"},
	)

	c.stageAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_retries_total",
			Help:      "Total number of stage retry attempts",
		},
		[]string{"stage"},
	)

	c.capabilityRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_requests_total",
			Help:      "Total number of capability client requests",
		},
		[]string{"capability", "status"},
	)

	c.capabilityDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_request_duration_seconds",
			Help:      "Capability request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"capability"},
	)

	c.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_cache_hits_total",
		Help:      "Total number of report cache hits",
	})

	c.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_cache_misses_total",
		Help:      "Total number of report cache misses",
	})

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordJobSubmitted counts one submission.
func (c *Collector) RecordJobSubmitted() {
	c.jobsSubmitted.Inc()
}

// RecordJobFinished counts one terminal job.
func (c *Collector) RecordJobFinished(status string, degraded bool, duration time.Duration, rounds int) {
	deg := "false"
	if degraded {
		deg = "true"
	}
	c.jobsCompleted.WithLabelValues(status, deg).Inc()
	c.jobDuration.Observe(duration.Seconds())
	c.revisionRounds.Observe(float64(rounds))
}

// StageTransition implements the workflow observer.
func (c *Collector) StageTransition(_, stageID, from, to string) {
	c.stageTransitions.WithLabelValues(stageID, from, to).Inc()
	if to == "retrying" {
		c.stageAttempts.WithLabelValues(stageID).Inc()
	}
}

// StageDuration implements the workflow observer.
func (c *Collector) StageDuration(_, stageID string, status string, d time.Duration) {
	c.stageDuration.WithLabelValues(stageID, status).Observe(d.Seconds())
}

// RecordCapabilityRequest counts one capability client call.
func (c *Collector) RecordCapabilityRequest(capability, status string, duration time.Duration) {
	c.capabilityRequests.WithLabelValues(capability, status).Inc()
	c.capabilityDuration.WithLabelValues(capability).Observe(duration.Seconds())
}

// RecordCacheHit counts a report cache hit.
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss counts a report cache miss.
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}
