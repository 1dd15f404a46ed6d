package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

// citationMarker matches bracketed citation indices such as [3].
var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// CitationAuditor verifies that every citation marker in the draft resolves
// to an entry of the report's citation list, and that evidence-bearing
// sections cite at all. It produces a verdict, never end-user content.
type CitationAuditor struct {
	logger *zap.Logger
}

// NewCitationAuditor creates a citation auditor.
func NewCitationAuditor(logger *zap.Logger) *CitationAuditor {
	return &CitationAuditor{logger: logger.With(zap.String("component", "citation_auditor"))}
}

// Variant implements types.Agent.
func (a *CitationAuditor) Variant() types.Variant { return types.VariantCitationAudit }

// Run implements types.Agent.
func (a *CitationAuditor) Run(ctx context.Context, rc *types.RunContext, input any) (any, error) {
	in, ok := input.(AuditInput)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidInput, "citation auditor: unexpected input %T", input)
	}
	if in.Report == nil {
		return nil, types.NewError(types.ErrInvalidInput, "citation auditor: nil report")
	}
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.ErrCancelled, "audit cancelled").WithCause(err)
	}

	rc.ReportProgress(10)
	var issues []types.AuditIssue
	total := len(in.Report.Citations)

	for i, section := range in.Report.Sections {
		markers := citationMarker.FindAllStringSubmatch(section.Body, -1)
		for _, m := range markers {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > total {
				issues = append(issues, types.AuditIssue{
					StageID:     rc.StageID,
					Description: fmt.Sprintf("section %q cites [%s] but the report has %d citations", section.Name, m[1], total),
					Severity:    types.SeverityCritical,
				})
			}
		}
		if len(markers) == 0 && sectionNeedsCitations(section.Name) && strings.TrimSpace(section.Body) != "" {
			issues = append(issues, types.AuditIssue{
				StageID:     rc.StageID,
				Description: fmt.Sprintf("section %q makes claims without citing any source", section.Name),
				Severity:    types.SeverityWarning,
			})
		}
		rc.ReportProgress(10 + (i+1)*90/len(in.Report.Sections))
	}
	rc.ReportProgress(100)

	verdict := types.AuditVerdict{Passed: !hasBlockingIssue(issues), Issues: issues}
	a.logger.Info("citation audit complete",
		zap.String("job_id", rc.JobID),
		zap.Bool("passed", verdict.Passed),
		zap.Int("issues", len(issues)),
	)
	return verdict, nil
}

// sectionNeedsCitations reports whether a section is expected to ground its
// claims in sources. Conclusions summarize already-cited material.
func sectionNeedsCitations(name string) bool {
	return !strings.EqualFold(name, "Conclusion")
}

// hasBlockingIssue reports whether any issue should fail the verdict.
// Warnings are surfaced but do not trigger a revision round on their own.
func hasBlockingIssue(issues []types.AuditIssue) bool {
	for _, issue := range issues {
		if issue.Severity == types.SeverityCritical {
			return true
		}
	}
	return false
}

// CompletenessAuditor verifies that every requested report section is
// present and non-empty.
type CompletenessAuditor struct {
	logger *zap.Logger
}

// NewCompletenessAuditor creates a completeness auditor.
func NewCompletenessAuditor(logger *zap.Logger) *CompletenessAuditor {
	return &CompletenessAuditor{logger: logger.With(zap.String("component", "completeness_auditor"))}
}

// Variant implements types.Agent.
func (a *CompletenessAuditor) Variant() types.Variant { return types.VariantCompletenessAudit }

// Run implements types.Agent.
func (a *CompletenessAuditor) Run(ctx context.Context, rc *types.RunContext, input any) (any, error) {
	in, ok := input.(AuditInput)
	if !ok {
		return nil, types.Errorf(types.ErrInvalidInput, "completeness auditor: unexpected input %T", input)
	}
	if in.Report == nil {
		return nil, types.NewError(types.ErrInvalidInput, "completeness auditor: nil report")
	}
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.ErrCancelled, "audit cancelled").WithCause(err)
	}

	rc.ReportProgress(10)
	prefs := in.Preferences.Normalize()
	var issues []types.AuditIssue
	for _, name := range prefs.Sections {
		body, ok := in.Report.SectionBody(name)
		switch {
		case !ok:
			issues = append(issues, types.AuditIssue{
				StageID:     rc.StageID,
				Description: fmt.Sprintf("requested section %q is missing", name),
				Severity:    types.SeverityCritical,
			})
		case strings.TrimSpace(body) == "":
			issues = append(issues, types.AuditIssue{
				StageID:     rc.StageID,
				Description: fmt.Sprintf("requested section %q is empty", name),
				Severity:    types.SeverityCritical,
			})
		}
	}
	rc.ReportProgress(100)

	verdict := types.AuditVerdict{Passed: len(issues) == 0, Issues: issues}
	a.logger.Info("completeness audit complete",
		zap.String("job_id", rc.JobID),
		zap.Bool("passed", verdict.Passed),
		zap.Int("issues", len(issues)),
	)
	return verdict, nil
}
