package capability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

// Exporter turns a final report into a durable artifact and returns its
// location.
type Exporter interface {
	Export(ctx context.Context, report *types.Report) (uri string, err error)
}

// FileExporter writes report artifacts to a local directory and returns
// file:// URIs. The surrounding application may swap in an object-store
// exporter behind the same interface.
type FileExporter struct {
	dir    string
	logger *zap.Logger
}

// NewFileExporter creates a file-based exporter rooted at dir.
func NewFileExporter(dir string, logger *zap.Logger) *FileExporter {
	return &FileExporter{
		dir:    dir,
		logger: logger.With(zap.String("component", "exporter")),
	}
}

// Export implements Exporter. Artifacts are named <gene>_report_<timestamp>.md.
func (e *FileExporter) Export(ctx context.Context, report *types.Report) (string, error) {
	if report == nil || report.Gene == "" {
		return "", types.NewError(types.ErrInvalidInput, "report missing gene")
	}
	if err := ctx.Err(); err != nil {
		return "", types.NewError(types.ErrCancelled, "export cancelled").WithCause(err)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", types.NewError(types.ErrCapabilityUnavailable, "create export dir").WithCause(err)
	}

	name := fmt.Sprintf("%s_report_%s.md", report.Gene, time.Now().Format("20060102_150405"))
	path := filepath.Join(e.dir, name)

	body := fmt.Sprintf("# %s Research Report\n\n%s", report.Gene, report.Text())
	if len(report.Citations) > 0 {
		body += "## References\n\n"
		for i, c := range report.Citations {
			body += fmt.Sprintf("%d. %s (%s)\n", i+1, c.Title, c.URL)
		}
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", types.NewError(types.ErrCapabilityUnavailable, "write report artifact").WithCause(err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	uri := "file://" + abs
	e.logger.Info("report exported",
		zap.String("gene", report.Gene),
		zap.String("uri", uri),
		zap.Int("bytes", len(body)),
	)
	return uri, nil
}
