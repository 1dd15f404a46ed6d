package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/types"
)

// FakeGenerator is a scripted text-generation capability. Without a script
// it echoes a deterministic section body that cites [1] when the prompt
// carries at least one citation.
type FakeGenerator struct {
	mu      sync.Mutex
	Script  []string // responses returned in order, then the default
	Err     error    // returned on every call when set
	ErrOnce bool     // clear Err after the first failing call
	Delay   time.Duration
	calls   atomic.Int32
	Prompts []string
}

// Generate implements capability.Generator.
func (f *FakeGenerator) Generate(ctx context.Context, prompt string, opts capability.GenerateOptions) (string, error) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", types.NewError(types.ErrCancelled, "generation cancelled").WithCause(ctx.Err())
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	n := int(f.calls.Add(1))
	if f.Err != nil {
		err := f.Err
		if f.ErrOnce {
			f.Err = nil
		}
		return "", err
	}
	if n <= len(f.Script) {
		return f.Script[n-1], nil
	}
	return "Synthesized findings based on the available evidence [1].", nil
}

// Calls returns the number of Generate invocations.
func (f *FakeGenerator) Calls() int { return int(f.calls.Load()) }

// FakeLiterature is a canned literature-search capability.
type FakeLiterature struct {
	Papers []types.Citation
	Err    error
	Delay  time.Duration
	calls  atomic.Int32
}

// Search implements capability.LiteratureSearcher.
func (f *FakeLiterature) Search(ctx context.Context, gene string, maxResults int) ([]types.Citation, error) {
	f.calls.Add(1)
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, types.NewError(types.ErrCancelled, "search cancelled").WithCause(ctx.Err())
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	papers := f.Papers
	if len(papers) > maxResults {
		papers = papers[:maxResults]
	}
	return papers, nil
}

// Calls returns the number of Search invocations.
func (f *FakeLiterature) Calls() int { return int(f.calls.Load()) }

// FakeWeb is a canned web-search capability.
type FakeWeb struct {
	Results []capability.WebResult
	Err     error
	Delay   time.Duration
	calls   atomic.Int32
}

// Search implements capability.WebSearcher.
func (f *FakeWeb) Search(ctx context.Context, query string) ([]capability.WebResult, error) {
	f.calls.Add(1)
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, types.NewError(types.ErrCancelled, "search cancelled").WithCause(ctx.Err())
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Results, nil
}

// Calls returns the number of Search invocations.
func (f *FakeWeb) Calls() int { return int(f.calls.Load()) }

// FakeCommercial is a canned commercial-data capability. FailAttempts makes
// the first N calls fail with Err before succeeding, for retry tests.
type FakeCommercial struct {
	Record       *types.CommercialRecord
	Err          error
	FailAttempts int
	Delay        time.Duration
	calls        atomic.Int32
}

// Lookup implements capability.CommercialSource.
func (f *FakeCommercial) Lookup(ctx context.Context, gene string) (*types.CommercialRecord, error) {
	n := int(f.calls.Add(1))
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, types.NewError(types.ErrCancelled, "lookup cancelled").WithCause(ctx.Err())
		}
	}
	if f.Err != nil && (f.FailAttempts == 0 || n <= f.FailAttempts) {
		return nil, f.Err
	}
	if f.Record == nil {
		return nil, types.NewError(types.ErrNotFound, "no record for "+gene)
	}
	return f.Record, nil
}

// Calls returns the number of Lookup invocations.
func (f *FakeCommercial) Calls() int { return int(f.calls.Load()) }

// FakeExporter records exported reports and returns fake URIs.
type FakeExporter struct {
	Err   error
	mu    sync.Mutex
	Saved []*types.Report
}

// Export implements capability.Exporter.
func (f *FakeExporter) Export(ctx context.Context, report *types.Report) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Saved = append(f.Saved, report)
	return fmt.Sprintf("fake://reports/%s/%d", report.Gene, len(f.Saved)), nil
}

// Citations returns n canned citations for a gene.
func Citations(gene string, n int) []types.Citation {
	out := make([]types.Citation, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, types.Citation{
			SourceID:       fmt.Sprintf("%s-%d", gene, i),
			Title:          fmt.Sprintf("%s study %d", gene, i),
			URL:            fmt.Sprintf("https://pubmed.example/%s/%d", gene, i),
			Snippet:        fmt.Sprintf("Findings about %s, part %d.", gene, i),
			RelevanceScore: 1.0 - float64(i)*0.05,
		})
	}
	return out
}
