package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/epigenicai/genagent/agent"
	"github.com/epigenicai/genagent/api"
	"github.com/epigenicai/genagent/capability"
	"github.com/epigenicai/genagent/config"
	"github.com/epigenicai/genagent/internal/metrics"
	"github.com/epigenicai/genagent/internal/server"
	"github.com/epigenicai/genagent/rag"
	"github.com/epigenicai/genagent/tracker"
	"github.com/epigenicai/genagent/types"
	"github.com/epigenicai/genagent/workflow"
)

// Server wires configuration into capability clients, the job tracker, and
// the HTTP listeners.
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	tracker *tracker.Tracker

	apiServer     *server.Manager
	metricsServer *server.Manager
}

// NewServer assembles all components from the loaded configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector("genagent", prometheus.DefaultRegisterer, logger)
	}

	// Capability clients are shared across jobs.
	genCfg, litCfg, webCfg, comCfg := cfg.Generation.ClientConfig, cfg.Literature, cfg.Web, cfg.Commercial
	if collector != nil {
		genCfg.Recorder = collector
		litCfg.Recorder = collector
		webCfg.Recorder = collector
		comCfg.Recorder = collector
	}
	generator := capability.NewHTTPGenerator(genCfg, cfg.Generation.Model, logger)
	literature := capability.NewPubMedClient(litCfg, logger)
	web := capability.NewWebSearchClient(webCfg, logger)
	commercial := capability.NewCommercialClient(comCfg, logger)
	exporter := capability.NewFileExporter(cfg.Export.Dir, logger)

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	// Each job gets its own retrieval index; the agents around it are
	// cheap wrappers over the shared clients.
	factory := func(gene string, prefs types.Preferences) (*workflow.Graph, workflow.FinalizeFunc, error) {
		tool := rag.NewTool(embedder, logger)
		deps := workflow.PipelineDeps{
			Literature:        agent.NewLiteratureAgent(literature, tool, logger),
			Web:               agent.NewWebAgent(web, tool, logger),
			Commercial:        agent.NewCommercialAgent(commercial, logger),
			Report:            agent.NewReportAgent(generator, tool, cfg.Retrieval.TopK, cfg.Retrieval.MinScore, logger),
			CitationAudit:     agent.NewCitationAuditor(logger),
			CompletenessAudit: agent.NewCompletenessAuditor(logger),
			Exporter:          exporter,
		}
		return workflow.BuildPipeline(gene, prefs, deps)
	}

	var cache tracker.ReportCache
	if cfg.Cache.Enabled {
		redisCache, err := tracker.NewRedisCache(cfg.Cache.RedisCacheConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect report cache: %w", err)
		}
		cache = redisCache
	}

	var observer workflow.Observer
	var jobMetrics tracker.Metrics
	if collector != nil {
		observer = collector
		jobMetrics = collector
	}
	tr := tracker.New(factory, cache, cfg.Pipeline, observer, jobMetrics, logger)

	mux := http.NewServeMux()
	api.NewJobHandler(tr, logger).Register(mux)
	handler := Chain(mux, RequestID(), Recovery(logger), RequestLogger(logger))

	s := &Server{
		config:    cfg,
		logger:    logger,
		tracker:   tr,
		apiServer: server.NewManager(handler, cfg.Server, logger),
	}
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsCfg := server.DefaultConfig()
		metricsCfg.Addr = cfg.Metrics.Addr
		s.metricsServer = server.NewManager(metricsMux, metricsCfg, logger)
	}
	return s, nil
}

func newEmbedder(cfg config.EmbeddingConfig) (rag.Embedder, error) {
	switch cfg.Provider {
	case "http":
		return rag.NewHTTPEmbedder(cfg.EmbedderConfig), nil
	case "hash":
		return rag.NewHashEmbedder(cfg.Dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Tracker exposes the job tracker for one-shot runs.
func (s *Server) Tracker() *tracker.Tracker {
	return s.tracker
}

// Start brings up the API listener and, when enabled, the metrics listener.
func (s *Server) Start() error {
	if err := s.apiServer.Start(); err != nil {
		return err
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Start(); err != nil {
			s.apiServer.Shutdown(context.Background())
			return err
		}
		s.logger.Info("metrics endpoint up", zap.String("addr", s.config.Metrics.Addr))
	}
	s.logger.Info("api endpoint up", zap.String("addr", s.config.Server.Addr))
	return nil
}

// WaitForShutdown blocks until a signal or serve error, then drains both
// listeners.
func (s *Server) WaitForShutdown() {
	s.apiServer.WaitForShutdown()
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(context.Background()); err != nil {
			s.logger.Error("metrics server shutdown failed", zap.Error(err))
		}
	}
}
