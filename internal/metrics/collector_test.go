package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCollector() *Collector {
	return NewCollector("test", prometheus.NewRegistry(), zap.NewNop())
}

func TestNewCollector(t *testing.T) {
	c := newTestCollector()

	assert.NotNil(t, c.jobsSubmitted)
	assert.NotNil(t, c.jobsCompleted)
	assert.NotNil(t, c.stageTransitions)
	assert.NotNil(t, c.stageDuration)
	assert.NotNil(t, c.capabilityRequests)
	assert.NotNil(t, c.cacheHits)
}

func TestCollector_RecordJobFinished(t *testing.T) {
	c := newTestCollector()

	c.RecordJobSubmitted()
	c.RecordJobFinished("completed", true, 42*time.Second, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobsSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobsCompleted.WithLabelValues("completed", "true")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.jobsCompleted.WithLabelValues("failed", "false")))
}

func TestCollector_StageTransitionCountsRetries(t *testing.T) {
	c := newTestCollector()

	c.StageTransition("job-1", "literature", "pending", "ready")
	c.StageTransition("job-1", "literature", "running", "retrying")
	c.StageTransition("job-1", "literature", "running", "retrying")

	assert.Equal(t, 2.0, testutil.ToFloat64(
		c.stageTransitions.WithLabelValues("literature", "running", "retrying")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.stageAttempts.WithLabelValues("literature")))
}

func TestCollector_RecordCapabilityRequest(t *testing.T) {
	c := newTestCollector()

	c.RecordCapabilityRequest("pubmed", "ok", 200*time.Millisecond)
	c.RecordCapabilityRequest("pubmed", "error", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.capabilityRequests.WithLabelValues("pubmed", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.capabilityRequests.WithLabelValues("pubmed", "error")))
}

func TestCollector_CacheCounters(t *testing.T) {
	c := newTestCollector()

	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheMiss()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses))
}
