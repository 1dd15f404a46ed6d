package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/rag"
	"github.com/epigenicai/genagent/types"
)

// maxConcurrentSections bounds parallel generation calls per draft.
const maxConcurrentSections = 3

const reportSystemPrompt = `You are a biomedical research writer. Write the requested
report section for the given gene target using only the provided evidence.
Cite evidence with bracketed indices like [1] that refer to the numbered
citation list. Do not invent sources.`

// ReportAgent synthesizes the draft research report from the retrieval
// stages' combined outputs, one generation call per requested section.
// On revision passes the auditors' issues are appended to each prompt.
type ReportAgent struct {
	generator capability.Generator
	tool      *rag.Tool
	topK      int
	minScore  float64
	logger    *zap.Logger
}

// NewReportAgent creates a report agent. topK and minScore tune the
// retrieval context attached to each section prompt.
func NewReportAgent(generator capability.Generator, tool *rag.Tool, topK int, minScore float64, logger *zap.Logger) *ReportAgent {
	if topK <= 0 {
		topK = 5
	}
	return &ReportAgent{
		generator: generator,
		tool:      tool,
		topK:      topK,
		minScore:  minScore,
		logger:    logger.With(zap.String("component", "report_agent")),
	}
}

// Variant implements types.Agent.
func (a *ReportAgent) Variant() types.Variant { return types.VariantReport }

// Run implements types.Agent.
func (a *ReportAgent) Run(ctx context.Context, rc *types.RunContext, input any) (any, error) {
	in, ok := input.(ReportInput)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidInput, "report agent: unexpected input %T", input)
	}
	if in.Gene == "" {
		return nil, types.NewError(types.ErrInvalidInput, "report agent: empty gene")
	}
	prefs := in.Preferences.Normalize()

	var citations []types.Citation
	if in.Literature != nil {
		citations = in.Literature.Papers
	}

	rc.ReportProgress(5)
	sections := make([]types.Section, len(prefs.Sections))
	var progressMu sync.Mutex
	done := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSections)
	for i, name := range prefs.Sections {
		i, name := i, name
		g.Go(func() error {
			prompt, err := a.buildPrompt(gctx, in, prefs, name, citations)
			if err != nil {
				return err
			}
			body, err := a.generator.Generate(gctx, prompt, capability.GenerateOptions{
				System:      reportSystemPrompt,
				Temperature: 0.3,
			})
			if err != nil {
				return err
			}
			sections[i] = types.Section{Name: name, Body: strings.TrimSpace(body)}

			// Progress stays monotone even when sections finish out of order.
			progressMu.Lock()
			done++
			rc.ReportProgress(5 + done*95/len(prefs.Sections))
			progressMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &types.Report{
		Gene:      in.Gene,
		Sections:  sections,
		Citations: citations,
		Revision:  in.Round + 1,
		CreatedAt: time.Now(),
	}
	a.logger.Info("draft report generated",
		zap.String("job_id", rc.JobID),
		zap.String("gene", in.Gene),
		zap.Int("revision", report.Revision),
		zap.Int("sections", len(sections)),
		zap.Int("citations", len(citations)),
	)
	return report, nil
}

// buildPrompt assembles the evidence block for one section: retrieval
// passages, the citation list, source-specific context, and any audit
// issues from the previous round.
func (a *ReportAgent) buildPrompt(ctx context.Context, in ReportInput, prefs types.Preferences, section string, citations []types.Citation) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Gene target: %s\nDisease context: %s\nSection to write: %s\n\n", in.Gene, prefs.Disease, section)

	if len(citations) > 0 {
		b.WriteString("Citations:\n")
		for i, c := range citations {
			fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, c.Title, c.Snippet)
		}
		b.WriteString("\n")
	}

	matches, err := a.tool.Search(ctx, in.Gene+" "+section, a.topK, a.minScore)
	if err != nil {
		return "", err
	}
	if len(matches) > 0 {
		b.WriteString("Relevant passages:\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- %s\n", m.Document.Content)
		}
		b.WriteString("\n")
	}

	if in.Web != nil && len(in.Web.Results) > 0 {
		b.WriteString("Web findings:\n")
		for _, r := range in.Web.Results {
			fmt.Fprintf(&b, "- %s (%s)\n", r.Snippet, r.URL)
		}
		b.WriteString("\n")
	}

	if in.Commercial != nil && in.Commercial.Record != nil {
		rec := in.Commercial.Record
		fmt.Fprintf(&b, "Commercial data: market size %s; competitors %s; pipeline %s\n\n",
			rec.MarketSize, strings.Join(rec.Competitors, ", "), strings.Join(rec.Pipeline, ", "))
	}

	if len(in.Issues) > 0 {
		b.WriteString("The previous draft was rejected by the auditors. Fix these issues:\n")
		for _, issue := range in.Issues {
			fmt.Fprintf(&b, "- [%s] %s\n", issue.Severity, issue.Description)
		}
		if in.Previous != nil {
			if prev, ok := in.Previous.SectionBody(section); ok {
				fmt.Fprintf(&b, "\nPrevious draft of this section:\n%s\n", prev)
			}
		}
	}
	return b.String(), nil
}
