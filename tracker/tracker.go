package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
	"github.com/epigenicai/genagent/workflow"
)

// PipelineFactory builds a fresh graph for one job. The tracker owns the
// runner it wraps around the graph.
type PipelineFactory func(gene string, prefs types.Preferences) (*workflow.Graph, workflow.FinalizeFunc, error)

// Metrics receives job-level and cache-level events. A nil Metrics
// disables recording.
type Metrics interface {
	RecordJobSubmitted()
	RecordJobFinished(status string, degraded bool, duration time.Duration, rounds int)
	RecordCacheHit()
	RecordCacheMiss()
}

// JobView is the externally visible state of one job, assembled from the
// runner snapshot at poll time.
type JobView struct {
	ID        string                   `json:"id"`
	Gene      string                   `json:"gene"`
	Status    workflow.JobStatus       `json:"status"`
	Stages    []workflow.StageSnapshot `json:"stages,omitempty"`
	Report    *types.Report            `json:"report,omitempty"`
	ReportURI string                   `json:"report_uri,omitempty"`
	Degraded  bool                     `json:"degraded,omitempty"`
	Reasons   []string                 `json:"reasons,omitempty"`
	Error     string                   `json:"error,omitempty"`
	CacheHit  bool                     `json:"cache_hit,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
}

type job struct {
	id        string
	gene      string
	createdAt time.Time
	cacheHit  bool

	// nil for cache-hit jobs, which are born completed.
	runner *workflow.Runner
	cached *types.Report

	done chan struct{}
}

// Tracker is the job table: it submits pipelines, answers status polls,
// and cancels running jobs.
type Tracker struct {
	factory  PipelineFactory
	cache    ReportCache
	cfg      workflow.Config
	policy   workflow.RevisionPolicy
	observer workflow.Observer
	metrics  Metrics
	logger   *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*job
}

// New creates a tracker. A nil cache disables report caching.
func New(factory PipelineFactory, cache ReportCache, cfg workflow.Config, observer workflow.Observer, metrics Metrics, logger *zap.Logger) *Tracker {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Tracker{
		factory:  factory,
		cache:    cache,
		cfg:      cfg,
		policy:   workflow.DefaultPolicy(),
		observer: observer,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "job_tracker")),
		jobs:     make(map[string]*job),
	}
}

// Submit starts a research job for a gene and returns its id immediately.
// A fresh cached report completes the job without running the pipeline.
func (t *Tracker) Submit(ctx context.Context, gene string, prefs types.Preferences) (string, error) {
	if gene == "" {
		return "", types.NewError(types.ErrInvalidInput, "gene symbol is required")
	}

	id := uuid.New().String()
	j := &job{
		id:        id,
		gene:      gene,
		createdAt: time.Now(),
		done:      make(chan struct{}),
	}

	if t.metrics != nil {
		t.metrics.RecordJobSubmitted()
	}

	if cached, hit, err := t.cache.Get(ctx, gene); err != nil {
		t.logger.Warn("report cache unavailable, running pipeline",
			zap.String("gene", gene), zap.Error(err))
	} else if hit {
		if t.metrics != nil {
			t.metrics.RecordCacheHit()
		}
		j.cacheHit = true
		j.cached = cached
		close(j.done)
		t.register(j)
		t.logger.Info("job served from report cache",
			zap.String("job_id", id), zap.String("gene", gene))
		return id, nil
	} else if t.metrics != nil {
		t.metrics.RecordCacheMiss()
	}

	g, finalize, err := t.factory(gene, prefs)
	if err != nil {
		return "", err
	}
	runner, err := workflow.NewRunner(id, g, t.cfg, t.policy, finalize, t.observer, t.logger)
	if err != nil {
		return "", err
	}
	j.runner = runner
	t.register(j)

	go func() {
		defer close(j.done)
		// The job outlives the submission request; only job-level
		// timeouts and Cancel stop it.
		result := runner.Run(context.Background())
		if t.metrics != nil {
			status, _, _ := runner.Snapshot()
			t.metrics.RecordJobFinished(string(status), result.Degraded,
				time.Since(j.createdAt), runner.Round())
		}
		if result.Err == nil && result.Report != nil && !result.Degraded {
			if err := t.cache.Put(context.Background(), gene, result.Report); err != nil {
				t.logger.Warn("failed to cache report",
					zap.String("gene", gene), zap.Error(err))
			}
		}
	}()

	t.logger.Info("job submitted", zap.String("job_id", id), zap.String("gene", gene))
	return id, nil
}

// Status returns the current view of a job.
func (t *Tracker) Status(jobID string) (JobView, error) {
	t.mu.RLock()
	j, ok := t.jobs[jobID]
	t.mu.RUnlock()
	if !ok {
		return JobView{}, types.Errorf(types.ErrNotFound, "unknown job %q", jobID)
	}

	view := JobView{
		ID:        j.id,
		Gene:      j.gene,
		CacheHit:  j.cacheHit,
		CreatedAt: j.createdAt,
	}
	if j.cacheHit {
		view.Status = workflow.JobCompleted
		view.Report = j.cached
		return view, nil
	}

	status, stages, result := j.runner.Snapshot()
	view.Status = status
	view.Stages = stages
	if status == workflow.JobCompleted {
		view.Report = result.Report
		view.ReportURI = result.ReportURI
		view.Degraded = result.Degraded
		view.Reasons = result.Reasons
	}
	if status == workflow.JobFailed && result.Err != nil {
		view.Error = result.Err.Error()
		view.Reasons = result.Reasons
	}
	return view, nil
}

// Cancel requests cancellation of a running job. Cancelling a finished or
// cache-hit job is a no-op.
func (t *Tracker) Cancel(jobID string) error {
	t.mu.RLock()
	j, ok := t.jobs[jobID]
	t.mu.RUnlock()
	if !ok {
		return types.Errorf(types.ErrNotFound, "unknown job %q", jobID)
	}
	if j.runner != nil {
		j.runner.Cancel()
	}
	return nil
}

// Wait blocks until a job reaches a terminal state or the context expires.
func (t *Tracker) Wait(ctx context.Context, jobID string) (JobView, error) {
	t.mu.RLock()
	j, ok := t.jobs[jobID]
	t.mu.RUnlock()
	if !ok {
		return JobView{}, types.Errorf(types.ErrNotFound, "unknown job %q", jobID)
	}
	select {
	case <-j.done:
		return t.Status(jobID)
	case <-ctx.Done():
		return JobView{}, types.NewError(types.ErrTimeout, "wait interrupted").WithCause(ctx.Err())
	}
}

// Jobs returns the ids of all known jobs in no particular order.
func (t *Tracker) Jobs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.jobs))
	for id := range t.jobs {
		ids = append(ids, id)
	}
	return ids
}

func (t *Tracker) register(j *job) {
	t.mu.Lock()
	t.jobs[j.id] = j
	t.mu.Unlock()
}
