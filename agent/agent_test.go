package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/rag"
	"github.com/epigenicai/genagent/testutil"
	"github.com/epigenicai/genagent/types"
)

// progressRecorder captures progress reports and checks monotonicity.
type progressRecorder struct {
	mu     sync.Mutex
	values []int
}

func (p *progressRecorder) fn(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, percent)
}

func (p *progressRecorder) assertMonotonic(t *testing.T) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.values, "agent must report progress at least once")
	for i := 1; i < len(p.values); i++ {
		assert.GreaterOrEqual(t, p.values[i], p.values[i-1], "progress must be non-decreasing")
	}
	assert.Equal(t, 100, p.values[len(p.values)-1])
}

func runContext(progress types.ProgressFunc) *types.RunContext {
	return &types.RunContext{JobID: "job-1", StageID: "stage-1", Attempt: 1, Progress: progress}
}

func newTool() *rag.Tool {
	return rag.NewTool(rag.NewHashEmbedder(64), zap.NewNop())
}

func TestLiteratureAgentIndexesPapers(t *testing.T) {
	tool := newTool()
	lit := &testutil.FakeLiterature{Papers: testutil.Citations("BRCA1", 3)}
	a := NewLiteratureAgent(lit, tool, zap.NewNop())

	rec := &progressRecorder{}
	out, err := a.Run(context.Background(), runContext(rec.fn), LiteratureInput{Gene: "BRCA1", MaxResults: 10})
	require.NoError(t, err)
	result := out.(LiteratureResult)
	assert.Len(t, result.Papers, 3)
	assert.Equal(t, 3, tool.Size())
	rec.assertMonotonic(t)
}

func TestLiteratureAgentIdempotentUnderRetry(t *testing.T) {
	tool := newTool()
	lit := &testutil.FakeLiterature{Papers: testutil.Citations("BRCA1", 4)}
	a := NewLiteratureAgent(lit, tool, zap.NewNop())

	first, err := a.Run(context.Background(), runContext(nil), LiteratureInput{Gene: "BRCA1", MaxResults: 10})
	require.NoError(t, err)
	second, err := a.Run(context.Background(), runContext(nil), LiteratureInput{Gene: "BRCA1", MaxResults: 10})
	require.NoError(t, err)

	// Same citation set, no duplicate index entries.
	assert.Equal(t, first.(LiteratureResult).Papers, second.(LiteratureResult).Papers)
	assert.Equal(t, 4, tool.Size())
}

func TestLiteratureAgentRejectsBadInput(t *testing.T) {
	a := NewLiteratureAgent(&testutil.FakeLiterature{}, newTool(), zap.NewNop())

	_, err := a.Run(context.Background(), runContext(nil), LiteratureInput{})
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))

	_, err = a.Run(context.Background(), runContext(nil), "wrong type")
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}

func TestWebAgentIndexesResults(t *testing.T) {
	tool := newTool()
	web := &testutil.FakeWeb{Results: []capability.WebResult{
		{URL: "https://news.example/a", Title: "BRCA1 trial", Snippet: "New BRCA1 inhibitor trial."},
		{URL: "https://news.example/b", Title: "No snippet", Snippet: ""},
	}}
	a := NewWebAgent(web, tool, zap.NewNop())

	rec := &progressRecorder{}
	out, err := a.Run(context.Background(), runContext(rec.fn), WebInput{Gene: "BRCA1", Disease: "oncology"})
	require.NoError(t, err)
	assert.Len(t, out.(WebOutput).Results, 2)
	// Snippet-less results are returned but not indexed.
	assert.Equal(t, 1, tool.Size())
	rec.assertMonotonic(t)
}

func TestCommercialAgentNotFoundIsSuccess(t *testing.T) {
	a := NewCommercialAgent(&testutil.FakeCommercial{}, zap.NewNop())

	rec := &progressRecorder{}
	out, err := a.Run(context.Background(), runContext(rec.fn), CommercialInput{Gene: "OBSCURE1"})
	require.NoError(t, err)
	assert.Nil(t, out.(CommercialResult).Record)
	rec.assertMonotonic(t)
}

func TestCommercialAgentPropagatesUnavailable(t *testing.T) {
	a := NewCommercialAgent(&testutil.FakeCommercial{
		Err: types.NewError(types.ErrCapabilityUnavailable, "source down"),
	}, zap.NewNop())

	_, err := a.Run(context.Background(), runContext(nil), CommercialInput{Gene: "BRCA1"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCapabilityUnavailable, types.CodeOf(err))
}

func TestReportAgentGeneratesRequestedSections(t *testing.T) {
	tool := newTool()
	gen := &testutil.FakeGenerator{}
	a := NewReportAgent(gen, tool, 5, 0.0, zap.NewNop())

	prefs := types.Preferences{Sections: []string{"Literature Review", "Conclusion"}}
	rec := &progressRecorder{}
	out, err := a.Run(context.Background(), runContext(rec.fn), ReportInput{
		Gene:        "BRCA1",
		Preferences: prefs,
		Literature:  &LiteratureResult{Papers: testutil.Citations("BRCA1", 2)},
	})
	require.NoError(t, err)

	report := out.(*types.Report)
	assert.Equal(t, "BRCA1", report.Gene)
	assert.Equal(t, 1, report.Revision)
	require.Len(t, report.Sections, 2)
	assert.Equal(t, "Literature Review", report.Sections[0].Name)
	assert.Len(t, report.Citations, 2)
	assert.Equal(t, 2, gen.Calls(), "one generation call per section")
	rec.assertMonotonic(t)
}

func TestReportAgentRevisionPromptCarriesIssues(t *testing.T) {
	gen := &testutil.FakeGenerator{}
	a := NewReportAgent(gen, newTool(), 5, 0.0, zap.NewNop())

	issues := []types.AuditIssue{
		{StageID: "citation_audit", Description: "section cites [9] but the report has 2 citations", Severity: types.SeverityCritical},
	}
	prev := &types.Report{Gene: "BRCA1", Sections: []types.Section{{Name: "Literature Review", Body: "old body [9]"}}}
	out, err := a.Run(context.Background(), runContext(nil), ReportInput{
		Gene:        "BRCA1",
		Preferences: types.Preferences{Sections: []string{"Literature Review"}},
		Literature:  &LiteratureResult{Papers: testutil.Citations("BRCA1", 2)},
		Issues:      issues,
		Previous:    prev,
		Round:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.(*types.Report).Revision)
	require.NotEmpty(t, gen.Prompts)
	assert.Contains(t, gen.Prompts[0], "rejected by the auditors")
	assert.Contains(t, gen.Prompts[0], "cites [9]")
	assert.Contains(t, gen.Prompts[0], "old body [9]")
}

func TestCitationAuditorFlagsOutOfRangeMarkers(t *testing.T) {
	a := NewCitationAuditor(zap.NewNop())

	report := &types.Report{
		Gene: "BRCA1",
		Sections: []types.Section{
			{Name: "Literature Review", Body: "Valid claim [1]. Invalid claim [7]."},
		},
		Citations: testutil.Citations("BRCA1", 2),
	}
	out, err := a.Run(context.Background(), runContext(nil), AuditInput{Report: report})
	require.NoError(t, err)

	verdict := out.(types.AuditVerdict)
	assert.False(t, verdict.Passed)
	require.Len(t, verdict.Issues, 1)
	assert.Equal(t, types.SeverityCritical, verdict.Issues[0].Severity)
	assert.Contains(t, verdict.Issues[0].Description, "[7]")
}

func TestCitationAuditorPassesCleanDraft(t *testing.T) {
	a := NewCitationAuditor(zap.NewNop())

	report := &types.Report{
		Gene: "BRCA1",
		Sections: []types.Section{
			{Name: "Literature Review", Body: "Claim [1]. Another claim [2]."},
			{Name: "Conclusion", Body: "Summary without markers."},
		},
		Citations: testutil.Citations("BRCA1", 2),
	}
	out, err := a.Run(context.Background(), runContext(nil), AuditInput{Report: report})
	require.NoError(t, err)
	assert.True(t, out.(types.AuditVerdict).Passed)
}

func TestCitationAuditorWarnsOnUncitedSection(t *testing.T) {
	a := NewCitationAuditor(zap.NewNop())

	report := &types.Report{
		Gene: "BRCA1",
		Sections: []types.Section{
			{Name: "Literature Review", Body: "Bold uncited claims."},
		},
		Citations: testutil.Citations("BRCA1", 2),
	}
	out, err := a.Run(context.Background(), runContext(nil), AuditInput{Report: report})
	require.NoError(t, err)

	verdict := out.(types.AuditVerdict)
	// A warning alone does not fail the verdict.
	assert.True(t, verdict.Passed)
	require.Len(t, verdict.Issues, 1)
	assert.Equal(t, types.SeverityWarning, verdict.Issues[0].Severity)
}

func TestCompletenessAuditorFlagsMissingAndEmptySections(t *testing.T) {
	a := NewCompletenessAuditor(zap.NewNop())

	report := &types.Report{
		Gene: "BRCA1",
		Sections: []types.Section{
			{Name: "Literature Review", Body: "Present [1]."},
			{Name: "Clinical Landscape", Body: "   "},
		},
	}
	out, err := a.Run(context.Background(), runContext(nil), AuditInput{
		Report: report,
		Preferences: types.Preferences{
			Sections: []string{"Literature Review", "Clinical Landscape", "Conclusion"},
		},
	})
	require.NoError(t, err)

	verdict := out.(types.AuditVerdict)
	assert.False(t, verdict.Passed)
	assert.Len(t, verdict.Issues, 2)
}

func TestCompletenessAuditorPassesFullReport(t *testing.T) {
	a := NewCompletenessAuditor(zap.NewNop())

	report := &types.Report{
		Gene: "BRCA1",
		Sections: []types.Section{
			{Name: "Literature Review", Body: "Present [1]."},
			{Name: "Conclusion", Body: "Done."},
		},
	}
	out, err := a.Run(context.Background(), runContext(nil), AuditInput{
		Report:      report,
		Preferences: types.Preferences{Sections: []string{"Literature Review", "Conclusion"}},
	})
	require.NoError(t, err)
	assert.True(t, out.(types.AuditVerdict).Passed)
}
