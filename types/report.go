package types

import "time"

// Citation identifies one source passage backing a claim in the report.
// A Citation is immutable once produced by a retrieval agent.
type Citation struct {
	SourceID       string  `json:"source_id"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevance_score"`
}

// CommercialRecord is the structured result of a commercial-data lookup.
type CommercialRecord struct {
	Gene        string   `json:"gene"`
	Disease     string   `json:"disease,omitempty"`
	MarketSize  string   `json:"market_size,omitempty"`
	Competitors []string `json:"competitors,omitempty"`
	Pipeline    []string `json:"pipeline,omitempty"`
	Summary     string   `json:"summary,omitempty"`
}

// Section is one named block of the research report.
type Section struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Report is the draft produced by the report agent and refined by the
// revision loop. Revision counts report-agent invocations, starting at 1.
type Report struct {
	Gene      string     `json:"gene"`
	Sections  []Section  `json:"sections"`
	Citations []Citation `json:"citations"`
	Revision  int        `json:"revision"`
	CreatedAt time.Time  `json:"created_at"`
}

// SectionBody returns the body of the named section, if present.
func (r *Report) SectionBody(name string) (string, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s.Body, true
		}
	}
	return "", false
}

// Text renders the report as plain text, one heading per section.
func (r *Report) Text() string {
	out := ""
	for _, s := range r.Sections {
		out += "## " + s.Name + "\n\n" + s.Body + "\n\n"
	}
	return out
}

// IssueSeverity grades an audit issue.
type IssueSeverity string

const (
	SeverityInfo     IssueSeverity = "info"
	SeverityWarning  IssueSeverity = "warning"
	SeverityCritical IssueSeverity = "critical"
)

// AuditIssue is one problem an auditor found in a draft report.
type AuditIssue struct {
	StageID     string        `json:"stage_id"`
	Description string        `json:"description"`
	Severity    IssueSeverity `json:"severity"`
}

// AuditVerdict is the pass/fail outcome of an auditor stage.
type AuditVerdict struct {
	Passed bool         `json:"passed"`
	Issues []AuditIssue `json:"issues,omitempty"`
}

// DefaultSections are the report sections requested when the caller
// supplies no explicit preference.
var DefaultSections = []string{
	"Literature Review",
	"Clinical Landscape",
	"Commercial Assessment",
	"Conclusion",
}

// Preferences carries the per-job user options supplied at submission.
type Preferences struct {
	// Sections lists the report sections to generate; empty means DefaultSections.
	Sections []string `json:"sections,omitempty" yaml:"sections"`
	// MaxResults caps literature search results per query.
	MaxResults int `json:"max_results,omitempty" yaml:"max_results"`
	// Disease scopes the commercial assessment to a disease area.
	Disease string `json:"disease,omitempty" yaml:"disease"`
	// CommercialRequired makes the commercial stage a hard dependency.
	// When false the stage may be skipped-degraded if its capability is down.
	CommercialRequired bool `json:"commercial_required,omitempty" yaml:"commercial_required"`
}

// Normalize fills unset preference fields with defaults.
func (p Preferences) Normalize() Preferences {
	if len(p.Sections) == 0 {
		p.Sections = append([]string(nil), DefaultSections...)
	}
	if p.MaxResults <= 0 {
		p.MaxResults = 10
	}
	if p.Disease == "" {
		p.Disease = "metabolic disease"
	}
	return p
}
