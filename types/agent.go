package types

import "context"

// =============================================================================
// Minimal Agent Execution Contract
// =============================================================================
// These interfaces define the smallest common contract shared by all agent
// variants in the pipeline. The workflow runner dispatches every stage
// through this contract and never depends on a concrete agent type.
// =============================================================================

// Variant names one member of the closed agent set. The stage graph selects
// agents by variant rather than by open-ended dynamic dispatch.
type Variant string

const (
	VariantLiterature        Variant = "literature"
	VariantWeb               Variant = "web"
	VariantCommercial        Variant = "commercial"
	VariantReport            Variant = "report"
	VariantCitationAudit     Variant = "citation_audit"
	VariantCompletenessAudit Variant = "completeness_audit"
)

// ProgressFunc receives agent progress in the range 0-100. Implementations
// must tolerate concurrent calls; agents must report monotonically
// non-decreasing values and at least one value before returning.
type ProgressFunc func(percent int)

// RunContext carries the per-invocation identity and reporting hooks an
// agent needs beyond its typed input. Cancellation travels on the
// context.Context passed to Run.
type RunContext struct {
	JobID    string
	StageID  string
	Attempt  int
	Progress ProgressFunc
}

// ReportProgress invokes the progress callback if one is set.
func (rc *RunContext) ReportProgress(percent int) {
	if rc != nil && rc.Progress != nil {
		rc.Progress(percent)
	}
}

// Agent is the uniform run contract implemented by every pipeline variant.
//
// Run must be idempotent with respect to retries: re-invocation with the
// same input must not double-count side effects such as indexed citations.
type Agent interface {
	// Variant returns the agent's variant identity.
	Variant() Variant
	// Run executes the agent with the given typed input and returns its
	// typed output, or a *Error describing the failure.
	Run(ctx context.Context, rc *RunContext, input any) (any, error)
}
