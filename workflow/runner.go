package workflow

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

// JobStatus is the lifecycle state of one job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Config tunes one runner. Zero values fall back to defaults.
type Config struct {
	// MaxAttempts caps attempts per stage, including the first.
	MaxAttempts int `yaml:"max_attempts"`
	// MaxRevisionRounds bounds the report-revision cycle.
	MaxRevisionRounds int `yaml:"max_revision_rounds"`
	// StageTimeout bounds a single stage attempt.
	StageTimeout time.Duration `yaml:"stage_timeout"`
	// GlobalTimeout bounds the whole job.
	GlobalTimeout time.Duration `yaml:"global_timeout"`
	// RetryInitialDelay is the backoff base between stage attempts.
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay"`
	// RetryMaxDelay caps the backoff between stage attempts.
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		MaxRevisionRounds: 2,
		StageTimeout:      5 * time.Minute,
		GlobalTimeout:     30 * time.Minute,
		RetryInitialDelay: 500 * time.Millisecond,
		RetryMaxDelay:     10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.MaxRevisionRounds < 0 {
		c.MaxRevisionRounds = d.MaxRevisionRounds
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = d.StageTimeout
	}
	if c.GlobalTimeout <= 0 {
		c.GlobalTimeout = d.GlobalTimeout
	}
	if c.RetryInitialDelay <= 0 {
		c.RetryInitialDelay = d.RetryInitialDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = d.RetryMaxDelay
	}
	return c
}

// RevisionPolicy names the stages of the audit-revision cycle. The cycle is
// an explicit bounded loop with a round counter, never recursion, so
// termination is immediate from MaxRevisionRounds.
type RevisionPolicy struct {
	ReportStage string
	AuditStages []string
	FinalStage  string
}

// FinalizeFunc turns the accepted draft into the job artifact and returns
// its URI. It runs at most once per job.
type FinalizeFunc func(ctx context.Context, report *types.Report, degraded bool) (string, error)

// Result is the terminal outcome of one job.
type Result struct {
	Report    *types.Report
	ReportURI string
	Degraded  bool
	Reasons   []string
	Err       error
}

// Observer receives stage lifecycle events; implementations must be safe
// for concurrent use. A nil observer disables observation.
type Observer interface {
	StageTransition(jobID, stageID, from, to string)
	StageDuration(jobID, stageID string, status string, d time.Duration)
}

// Runner executes one job's graph. It owns all Stage mutation; external
// readers go through Snapshot.
type Runner struct {
	jobID    string
	graph    *Graph
	cfg      Config
	policy   RevisionPolicy
	finalize FinalizeFunc
	observer Observer
	logger   *zap.Logger

	mu           sync.Mutex
	status       JobStatus
	result       Result
	issues       []types.AuditIssue
	prevDraft    *types.Report
	round        int
	auditSettled bool
	reasons      []string

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRunner creates a runner for a validated graph.
func NewRunner(jobID string, graph *Graph, cfg Config, policy RevisionPolicy, finalize FinalizeFunc, observer Observer, logger *zap.Logger) (*Runner, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	if _, ok := graph.Stage(policy.FinalStage); policy.FinalStage != "" && !ok {
		return nil, types.Errorf(types.ErrInvalidInput, "unknown final stage %q", policy.FinalStage)
	}
	return &Runner{
		jobID:    jobID,
		graph:    graph,
		cfg:      cfg.withDefaults(),
		policy:   policy,
		finalize: finalize,
		observer: observer,
		logger:   logger.With(zap.String("component", "graph_runner"), zap.String("job_id", jobID)),
		status:   JobPending,
		stop:     make(chan struct{}),
	}, nil
}

type stageDone struct {
	id  string
	out any
	err error
}

// Run drives the graph to a terminal state and returns the job result.
// The loop recomputes readiness from committed state after every stage
// completion, so sibling completion order never matters.
func (r *Runner) Run(ctx context.Context) Result {
	ctx, timeoutCancel := context.WithTimeout(ctx, r.cfg.GlobalTimeout)
	defer timeoutCancel()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	r.mu.Lock()
	r.status = JobRunning
	r.mu.Unlock()

	r.logger.Info("job started", zap.Int("stages", len(r.graph.Stages())))

	// Buffered so late completions after a timeout never block their goroutines.
	done := make(chan stageDone, len(r.graph.Stages()))
	running := 0

	for {
		r.routeRevision()

		for _, st := range r.dispatchable() {
			running++
			go func(st *Stage) {
				start := time.Now()
				out, err := r.executeStage(ctx, st)
				if r.observer != nil {
					status := StageSucceeded
					if err != nil {
						status = StageFailed
					}
					r.observer.StageDuration(r.jobID, st.ID, string(status), time.Since(start))
				}
				done <- stageDone{id: st.ID, out: out, err: err}
			}(st)
		}

		if running == 0 {
			break
		}

		select {
		case res := <-done:
			running--
			r.commit(res)
		case <-ctx.Done():
			return r.finishTimeout(ctx.Err())
		}
	}
	return r.finishTerminal()
}

// Cancel requests best-effort cooperative cancellation. In-flight stages
// stop at their next suspension point; succeeded stages stand. Cancelling
// before Run makes the job fail immediately on start.
func (r *Runner) Cancel() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// dispatchable promotes pending stages whose dependencies are settled:
// failed hard dependencies propagate failure without running the stage,
// satisfied dependencies promote to ready, and every ready stage moves to
// running before its goroutine starts so readiness is never recomputed
// from arrival order.
func (r *Runner) dispatchable() []*Stage {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Failure propagation runs to a fixpoint so chains of dependents
	// settle in one pass whatever the insertion order.
	for changed := true; changed; {
		changed = false
		for _, id := range r.graph.order {
			st := r.graph.stages[id]
			if st.status != StagePending {
				continue
			}
			for _, dep := range st.DependsOn {
				if r.graph.stages[dep].status == StageFailed {
					st.err = types.Errorf(types.ErrInternal, "dependency %q failed", dep).WithStage(st.ID)
					r.transitionLocked(st, StageFailed)
					changed = true
					break
				}
			}
		}
	}

	var out []*Stage
	for _, id := range r.graph.order {
		st := r.graph.stages[id]
		if st.status != StagePending {
			continue
		}
		satisfied := true
		for _, dep := range st.DependsOn {
			switch r.graph.stages[dep].status {
			case StageSucceeded, StageSkipped:
			default:
				satisfied = false
			}
			if !satisfied {
				break
			}
		}
		if !satisfied {
			continue
		}
		r.transitionLocked(st, StageReady)
		r.transitionLocked(st, StageRunning)
		out = append(out, st)
	}
	return out
}

// executeStage runs one stage's attempts sequentially with exponential
// backoff between retryable failures.
func (r *Runner) executeStage(ctx context.Context, st *Stage) (any, error) {
	if st.Agent == nil {
		return r.runFinalize(ctx)
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		r.beginAttempt(st, attempt)

		input, err := r.buildInput(st)
		if err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.StageTimeout)
		rc := &types.RunContext{
			JobID:   r.jobID,
			StageID: st.ID,
			Attempt: attempt,
			Progress: func(percent int) {
				r.setProgress(st, percent)
			},
		}
		out, err := st.Agent.Run(attemptCtx, rc, input)
		deadlineHit := attemptCtx.Err() == context.DeadlineExceeded
		cancel()
		if err == nil {
			return out, nil
		}

		// The stage-level timeout feeds the retry path before escalating
		// to the job-level timeout.
		if deadlineHit && ctx.Err() == nil {
			err = types.NewError(types.ErrTransientIO, "stage attempt timed out").
				WithStage(st.ID).WithCause(err)
		}
		if ctx.Err() != nil {
			code := types.ErrTimeout
			if errors.Is(ctx.Err(), context.Canceled) {
				code = types.ErrCancelled
			}
			return nil, types.NewError(code, "job interrupted").
				WithStage(st.ID).WithCause(ctx.Err())
		}
		lastErr = err
		if !types.IsRetryable(err) || attempt == r.cfg.MaxAttempts {
			return nil, err
		}

		r.setStatus(st, StageRetrying)
		r.logger.Warn("stage attempt failed, retrying",
			zap.String("stage", st.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-time.After(r.retryDelay(attempt)):
		case <-ctx.Done():
			return nil, types.NewError(types.ErrTimeout, "job interrupted").
				WithStage(st.ID).WithCause(ctx.Err())
		}
	}
	return nil, lastErr
}

// retryDelay is the classic exponential backoff with +-25% jitter.
func (r *Runner) retryDelay(attempt int) time.Duration {
	delay := float64(r.cfg.RetryInitialDelay) * math.Pow(2.0, float64(attempt-1))
	if delay > float64(r.cfg.RetryMaxDelay) {
		delay = float64(r.cfg.RetryMaxDelay)
	}
	delay += (rand.Float64()*2 - 1) * delay * 0.25
	return time.Duration(delay)
}

// buildInput assembles a stage's input from committed state.
func (r *Runner) buildInput(st *Stage) (any, error) {
	if st.Input == nil {
		return nil, nil
	}
	r.mu.Lock()
	ic := InputContext{
		Outputs:  make(map[string]any, len(r.graph.stages)),
		Issues:   append([]types.AuditIssue(nil), r.issues...),
		Previous: r.prevDraft,
		Round:    r.round,
	}
	for id, other := range r.graph.stages {
		if other.status == StageSucceeded {
			ic.Outputs[id] = other.output
		}
	}
	r.mu.Unlock()
	return st.Input(ic)
}

// commit applies one stage completion to the graph under the lock.
func (r *Runner) commit(res stageDone) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.graph.stages[res.id]
	if res.err == nil {
		st.output = res.out
		st.progress = 100
		r.transitionLocked(st, StageSucceeded)
		return
	}

	st.err = res.err
	if st.Optional {
		r.transitionLocked(st, StageSkipped)
		r.reasons = append(r.reasons, "stage "+st.ID+" skipped: "+res.err.Error())
		r.logger.Warn("optional stage skipped",
			zap.String("stage", st.ID),
			zap.Error(res.err),
		)
		return
	}
	r.transitionLocked(st, StageFailed)
	r.logger.Error("stage failed",
		zap.String("stage", st.ID),
		zap.Int("attempts", st.attempts),
		zap.Error(res.err),
	)
}

// routeRevision decides, once both auditors have reported, whether the
// report goes back for another revision round or proceeds to finalize.
func (r *Runner) routeRevision() {
	if r.policy.FinalStage == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.auditSettled {
		return
	}
	fin := r.graph.stages[r.policy.FinalStage]
	if fin.status != StagePending {
		return
	}
	var issues []types.AuditIssue
	passed := true
	for _, id := range r.policy.AuditStages {
		audit := r.graph.stages[id]
		if audit.status != StageSucceeded {
			return
		}
		verdict, ok := audit.output.(types.AuditVerdict)
		if !ok {
			continue
		}
		if !verdict.Passed {
			passed = false
		}
		issues = append(issues, verdict.Issues...)
	}
	if passed {
		r.auditSettled = true
		return
	}
	if r.round >= r.cfg.MaxRevisionRounds {
		// Accept the best available draft; audit rejection never blocks
		// the job indefinitely.
		r.auditSettled = true
		r.reasons = append(r.reasons, "audit issues unresolved after max revision rounds")
		r.logger.Warn("accepting draft despite audit rejection",
			zap.Int("rounds", r.round),
			zap.Int("open_issues", len(issues)),
		)
		return
	}

	report := r.graph.stages[r.policy.ReportStage]
	if draft, ok := report.output.(*types.Report); ok {
		r.prevDraft = draft
	}
	r.issues = append(r.issues, issues...)
	r.round++
	r.logger.Info("routing report back for revision",
		zap.Int("round", r.round),
		zap.Int("issues", len(issues)),
	)
	for _, id := range append([]string{r.policy.ReportStage}, r.policy.AuditStages...) {
		r.resetStageLocked(r.graph.stages[id])
	}
}

// resetStageLocked returns a stage to pending for a fresh invocation.
func (r *Runner) resetStageLocked(st *Stage) {
	st.output = nil
	st.err = nil
	st.attempts = 0
	st.progress = 0
	r.transitionLocked(st, StagePending)
}

// runFinalize executes the finalize stage: export the accepted draft and
// publish the job result.
func (r *Runner) runFinalize(ctx context.Context) (any, error) {
	r.mu.Lock()
	report := r.acceptedDraftLocked()
	degraded := len(r.reasons) > 0
	r.mu.Unlock()

	if report == nil {
		return nil, types.NewError(types.ErrInternal, "no draft report to finalize")
	}

	uri := ""
	if r.finalize != nil {
		var err error
		uri, err = r.finalize(ctx, report, degraded)
		if err != nil {
			// Export failure degrades the job rather than discarding a
			// perfectly good summary.
			r.mu.Lock()
			r.reasons = append(r.reasons, "report export failed: "+err.Error())
			r.mu.Unlock()
			r.logger.Warn("report export failed", zap.Error(err))
		}
	}

	r.mu.Lock()
	r.result = Result{
		Report:    report,
		ReportURI: uri,
		Degraded:  len(r.reasons) > 0,
		Reasons:   append([]string(nil), r.reasons...),
	}
	r.mu.Unlock()
	return r.result, nil
}

// acceptedDraftLocked returns the freshest available draft.
func (r *Runner) acceptedDraftLocked() *types.Report {
	if st, ok := r.graph.stages[r.policy.ReportStage]; ok {
		if draft, ok := st.output.(*types.Report); ok {
			return draft
		}
	}
	return r.prevDraft
}

// finishTerminal publishes the job outcome once every stage is terminal.
func (r *Runner) finishTerminal() Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.graph.order {
		st := r.graph.stages[id]
		if !st.status.Terminal() {
			st.err = types.NewError(types.ErrInternal, "unreachable stage").WithStage(st.ID)
			r.transitionLocked(st, StageFailed)
		}
	}

	fin, hasFinal := r.graph.stages[r.policy.FinalStage]
	if hasFinal && fin.status == StageSucceeded {
		r.status = JobCompleted
		r.logger.Info("job completed",
			zap.Bool("degraded", r.result.Degraded),
			zap.Int("revision_rounds", r.round),
		)
		return r.result
	}

	var cause error
	for _, id := range r.graph.order {
		if st := r.graph.stages[id]; st.status == StageFailed && st.err != nil {
			cause = st.err
			break
		}
	}
	if cause == nil && !hasFinal {
		// Graphs without a designated final stage complete once every
		// stage settles without a hard failure.
		r.status = JobCompleted
		r.result.Degraded = len(r.reasons) > 0
		r.result.Reasons = append([]string(nil), r.reasons...)
		return r.result
	}
	if cause == nil {
		cause = types.NewError(types.ErrInternal, "job reached no terminal stage")
	}
	// A timeout during the audit or revision phase still ships the last
	// usable draft, flagged degraded.
	if types.CodeOf(cause) == types.ErrTimeout {
		if draft := r.acceptedDraftLocked(); draft != nil {
			r.reasons = append(r.reasons, "global timeout before audits settled")
			r.status = JobCompleted
			r.result = Result{
				Report:   draft,
				Degraded: true,
				Reasons:  append([]string(nil), r.reasons...),
			}
			r.logger.Warn("job timed out, completing with last draft")
			return r.result
		}
	}
	r.status = JobFailed
	r.result = Result{Err: cause, Reasons: append([]string(nil), r.reasons...)}
	r.logger.Error("job failed", zap.Error(cause))
	return r.result
}

// finishTimeout handles global-timeout expiry: a job with a usable draft
// completes degraded; a job with nothing fails with reason timeout.
func (r *Runner) finishTimeout(cause error) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := types.ErrTimeout
	reason := "global timeout"
	if errors.Is(cause, context.Canceled) {
		code = types.ErrCancelled
		reason = "job cancelled"
	}

	for _, id := range r.graph.order {
		st := r.graph.stages[id]
		if !st.status.Terminal() {
			st.err = types.NewError(code, reason).WithStage(st.ID)
			r.transitionLocked(st, StageFailed)
		}
	}

	if code == types.ErrCancelled {
		r.status = JobFailed
		r.result = Result{
			Err:     types.NewError(code, reason).WithCause(cause),
			Reasons: append([]string(nil), r.reasons...),
		}
		r.logger.Info("job cancelled")
		return r.result
	}

	if draft := r.acceptedDraftLocked(); draft != nil {
		r.reasons = append(r.reasons, "global timeout before audits settled")
		r.status = JobCompleted
		r.result = Result{
			Report:   draft,
			Degraded: true,
			Reasons:  append([]string(nil), r.reasons...),
		}
		r.logger.Warn("job timed out, completing with last draft",
			zap.Int("revision_rounds", r.round))
		return r.result
	}

	r.status = JobFailed
	r.result = Result{
		Err:     types.NewError(types.ErrTimeout, "job timed out").WithCause(cause),
		Reasons: append([]string(nil), r.reasons...),
	}
	r.logger.Error("job timed out without a draft")
	return r.result
}

// Snapshot returns a consistent copy of the job state for external pollers.
func (r *Runner) Snapshot() (JobStatus, []StageSnapshot, Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stages := make([]StageSnapshot, 0, len(r.graph.order))
	for _, id := range r.graph.order {
		st := r.graph.stages[id]
		snap := StageSnapshot{
			ID:       st.ID,
			Status:   st.status,
			Progress: st.progress,
			Attempts: st.attempts,
		}
		if st.err != nil {
			snap.Err = st.err.Error()
		}
		stages = append(stages, snap)
	}
	return r.status, stages, r.result
}

// Round returns the current revision round.
func (r *Runner) Round() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}

func (r *Runner) beginAttempt(st *Stage, attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st.attempts = attempt
	if st.status != StageRunning {
		r.transitionLocked(st, StageRunning)
	}
}

func (r *Runner) setStatus(st *Stage, status StageStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitionLocked(st, status)
}

// setProgress commits monotonically non-decreasing stage progress.
func (r *Runner) setProgress(st *Stage, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if percent > st.progress {
		st.progress = percent
	}
}

func (r *Runner) transitionLocked(st *Stage, to StageStatus) {
	from := st.status
	st.status = to
	if r.observer != nil {
		r.observer.StageTransition(r.jobID, st.ID, string(from), string(to))
	}
}
