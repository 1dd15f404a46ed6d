package workflow

import (
	"context"

	"github.com/epigenicai/genagent/agent"
	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/types"
)

// Canonical stage ids of the gene-target research pipeline.
const (
	StageLiterature        = "literature"
	StageWeb               = "web"
	StageCommercial        = "commercial"
	StageReport            = "report"
	StageCitationAudit     = "citation_audit"
	StageCompletenessAudit = "completeness_audit"
	StageFinalize          = "finalize"
)

// PipelineDeps collects the agents and the exporter a pipeline is built
// from. Each agent field carries the variant its name says.
type PipelineDeps struct {
	Literature        types.Agent
	Web               types.Agent
	Commercial        types.Agent
	Report            types.Agent
	CitationAudit     types.Agent
	CompletenessAudit types.Agent
	Exporter          capability.Exporter
}

// DefaultPolicy is the revision policy of the canonical pipeline.
func DefaultPolicy() RevisionPolicy {
	return RevisionPolicy{
		ReportStage: StageReport,
		AuditStages: []string{StageCitationAudit, StageCompletenessAudit},
		FinalStage:  StageFinalize,
	}
}

// BuildPipeline assembles the canonical research graph for one gene:
// three retrieval stages fan out, the report stage joins them, two
// auditors inspect the draft, and finalize exports the accepted report.
// The commercial stage is optional unless the preferences require it.
func BuildPipeline(gene string, prefs types.Preferences, deps PipelineDeps) (*Graph, FinalizeFunc, error) {
	if gene == "" {
		return nil, nil, types.NewError(types.ErrInvalidInput, "gene symbol is required")
	}
	prefs = prefs.Normalize()

	g := NewGraph()
	stages := []*Stage{
		{
			ID:    StageLiterature,
			Agent: deps.Literature,
			Input: func(InputContext) (any, error) {
				return agent.LiteratureInput{Gene: gene, MaxResults: prefs.MaxResults}, nil
			},
		},
		{
			ID:    StageWeb,
			Agent: deps.Web,
			Input: func(InputContext) (any, error) {
				return agent.WebInput{Gene: gene, Disease: prefs.Disease}, nil
			},
		},
		{
			ID:       StageCommercial,
			Agent:    deps.Commercial,
			Optional: !prefs.CommercialRequired,
			Input: func(InputContext) (any, error) {
				return agent.CommercialInput{Gene: gene, Disease: prefs.Disease}, nil
			},
		},
		{
			ID:        StageReport,
			Agent:     deps.Report,
			DependsOn: []string{StageLiterature, StageWeb, StageCommercial},
			Input: func(ic InputContext) (any, error) {
				in := agent.ReportInput{
					Gene:        gene,
					Preferences: prefs,
					Issues:      ic.Issues,
					Previous:    ic.Previous,
					Round:       ic.Round,
				}
				if out, ok := ic.Output(StageLiterature); ok {
					lit := out.(agent.LiteratureResult)
					in.Literature = &lit
				}
				if out, ok := ic.Output(StageWeb); ok {
					web := out.(agent.WebOutput)
					in.Web = &web
				}
				if out, ok := ic.Output(StageCommercial); ok {
					com := out.(agent.CommercialResult)
					in.Commercial = &com
				}
				return in, nil
			},
		},
		{
			ID:        StageCitationAudit,
			Agent:     deps.CitationAudit,
			DependsOn: []string{StageReport},
			Input:     auditInput(StageReport, prefs),
		},
		{
			ID:        StageCompletenessAudit,
			Agent:     deps.CompletenessAudit,
			DependsOn: []string{StageReport},
			Input:     auditInput(StageReport, prefs),
		},
		{
			ID:        StageFinalize,
			DependsOn: []string{StageCitationAudit, StageCompletenessAudit},
		},
	}
	for _, st := range stages {
		if err := g.Add(st); err != nil {
			return nil, nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}

	finalize := func(ctx context.Context, report *types.Report, degraded bool) (string, error) {
		if deps.Exporter == nil {
			return "", nil
		}
		return deps.Exporter.Export(ctx, report)
	}
	return g, finalize, nil
}

// auditInput builds the shared auditor input from the report stage output.
func auditInput(reportStage string, prefs types.Preferences) InputBuilder {
	return func(ic InputContext) (any, error) {
		out, ok := ic.Output(reportStage)
		if !ok {
			return nil, types.NewError(types.ErrInternal, "audit scheduled without a report draft")
		}
		report, ok := out.(*types.Report)
		if !ok {
			return nil, types.Errorf(types.ErrInternal, "unexpected report output type %T", out)
		}
		return agent.AuditInput{Report: report, Preferences: prefs}, nil
	}
}
