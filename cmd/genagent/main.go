// Command genagent runs the gene-target research service.
//
// Usage:
//
//	genagent serve                       # start the HTTP service
//	genagent serve --config config.yaml  # with a config file
//	genagent run --gene BRCA1            # one-shot research run
//	genagent version                     # show version information
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/epigenicai/genagent/config"
	"github.com/epigenicai/genagent/types"
	"github.com/epigenicai/genagent/workflow"
)

// Build-time injected.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "run":
		runOnce(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func loadConfig(configPath string) *config.Config {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting genagent",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	srv, err := NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
	srv.WaitForShutdown()
	logger.Info("genagent stopped")
}

// runOnce submits a single job, waits for it, and prints the outcome.
func runOnce(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	gene := fs.String("gene", "", "Gene symbol to research (required)")
	disease := fs.String("disease", "", "Disease area for commercial assessment")
	sections := fs.String("sections", "", "Comma-separated report sections")
	commercialRequired := fs.Bool("commercial-required", false, "Fail instead of degrading when commercial data is unavailable")
	fs.Parse(args)

	if *gene == "" {
		fmt.Fprintln(os.Stderr, "run: --gene is required")
		fs.Usage()
		os.Exit(2)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	srv, err := NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build pipeline", zap.Error(err))
	}

	prefs := types.Preferences{
		Disease:            *disease,
		CommercialRequired: *commercialRequired,
	}
	if *sections != "" {
		for _, s := range strings.Split(*sections, ",") {
			if s = strings.TrimSpace(s); s != "" {
				prefs.Sections = append(prefs.Sections, s)
			}
		}
	}

	ctx := context.Background()
	id, err := srv.Tracker().Submit(ctx, *gene, prefs)
	if err != nil {
		logger.Fatal("failed to submit job", zap.Error(err))
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Pipeline.GlobalTimeout+time.Minute)
	defer cancel()
	view, err := srv.Tracker().Wait(waitCtx, id)
	if err != nil {
		logger.Fatal("job did not finish", zap.String("job_id", id), zap.Error(err))
	}

	switch view.Status {
	case workflow.JobCompleted:
		fmt.Printf("Report for %s", view.Gene)
		if view.Degraded {
			fmt.Printf(" (degraded: %s)", strings.Join(view.Reasons, "; "))
		}
		fmt.Println()
		if view.ReportURI != "" {
			fmt.Printf("Saved to %s\n", view.ReportURI)
		} else if view.Report != nil {
			fmt.Println(view.Report.Text())
		}
	default:
		fmt.Fprintf(os.Stderr, "Job failed: %s\n", view.Error)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("genagent %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`genagent - gene-target research pipeline

Usage:
  genagent <command> [options]

Commands:
  serve     Start the research HTTP service
  run       Run one research job and wait for the report
  version   Show version information
  help      Show this help message

Options for 'serve':
  --config <path>       Path to configuration file (YAML)

Options for 'run':
  --config <path>       Path to configuration file (YAML)
  --gene <symbol>       Gene symbol to research (required)
  --disease <area>      Disease area for the commercial assessment
  --sections <a,b,c>    Report sections to generate
  --commercial-required Fail instead of degrading without commercial data

Examples:
  genagent serve --config /etc/genagent/config.yaml
  genagent run --gene BRCA1 --disease "metabolic disease"`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
