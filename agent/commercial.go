package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/types"
)

// CommercialAgent looks up market intelligence for a gene target. The
// source having no record is a successful empty result; the source being
// unreachable surfaces CAPABILITY_UNAVAILABLE so the runner can apply the
// optional-stage policy.
type CommercialAgent struct {
	source capability.CommercialSource
	logger *zap.Logger
}

// NewCommercialAgent creates a commercial agent.
func NewCommercialAgent(source capability.CommercialSource, logger *zap.Logger) *CommercialAgent {
	return &CommercialAgent{
		source: source,
		logger: logger.With(zap.String("component", "commercial_agent")),
	}
}

// Variant implements types.Agent.
func (a *CommercialAgent) Variant() types.Variant { return types.VariantCommercial }

// Run implements types.Agent.
func (a *CommercialAgent) Run(ctx context.Context, rc *types.RunContext, input any) (any, error) {
	in, ok := input.(CommercialInput)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidInput, "commercial agent: unexpected input %T", input)
	}
	if in.Gene == "" {
		return nil, types.NewError(types.ErrInvalidInput, "commercial agent: empty gene")
	}

	rc.ReportProgress(20)
	record, err := a.source.Lookup(ctx, in.Gene)
	if err != nil {
		if types.CodeOf(err) == types.ErrNotFound {
			a.logger.Info("no commercial record for gene",
				zap.String("job_id", rc.JobID),
				zap.String("gene", in.Gene),
			)
			rc.ReportProgress(100)
			return CommercialResult{}, nil
		}
		return nil, err
	}
	if record.Disease == "" {
		record.Disease = in.Disease
	}
	rc.ReportProgress(100)

	a.logger.Info("commercial lookup complete",
		zap.String("job_id", rc.JobID),
		zap.String("gene", in.Gene),
	)
	return CommercialResult{Record: record}, nil
}
