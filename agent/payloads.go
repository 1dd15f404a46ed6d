package agent

import (
	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/types"
)

// LiteratureInput asks the literature agent for papers about a gene.
type LiteratureInput struct {
	Gene       string
	MaxResults int
}

// LiteratureResult carries the papers the literature agent found, in
// relevance order.
type LiteratureResult struct {
	Papers []types.Citation
}

// WebInput asks the web agent for recent open-web context on a gene.
type WebInput struct {
	Gene    string
	Disease string
}

// WebOutput carries the web agent's findings.
type WebOutput struct {
	Results []capability.WebResult
}

// CommercialInput asks the commercial agent for market intelligence.
type CommercialInput struct {
	Gene    string
	Disease string
}

// CommercialResult carries the commercial lookup outcome. Record is nil
// when the source had no data for the gene.
type CommercialResult struct {
	Record *types.CommercialRecord
}

// ReportInput is everything the report agent synthesizes a draft from.
// Issues and Previous are set only on revision passes.
type ReportInput struct {
	Gene        string
	Preferences types.Preferences
	Literature  *LiteratureResult
	Web         *WebOutput
	Commercial  *CommercialResult
	Issues      []types.AuditIssue
	Previous    *types.Report
	Round       int
}

// AuditInput is what both auditors inspect.
type AuditInput struct {
	Report      *types.Report
	Preferences types.Preferences
}
