package app

import (
	"context"
	"log/slog"

	"NewsForge/internal/artifact"
	"NewsForge/internal/collector"
	"NewsForge/internal/config"
	"NewsForge/internal/infrastructure/chart"
	"NewsForge/internal/infrastructure/llm"
	"NewsForge/internal/infrastructure/microblog"
	"NewsForge/internal/infrastructure/photofeed"
	"NewsForge/internal/infrastructure/portal"
	"NewsForge/internal/infrastructure/storage"
	"NewsForge/internal/logging"
	"NewsForge/internal/ports"
	"NewsForge/internal/usecase"
)

// Application wires configs to the pipeline and owns adapter lifecycles.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	ledger   ports.GenerationLedger
	logger   *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := collector.NewRegistry()
	registry.Register(portal.NewScanner(nil))
	registry.Register(microblog.NewClient(config.MicroblogToken(), nil))
	registry.Register(photofeed.NewScraper(nil))

	store := artifact.NewStore(cfg.DataDir)

	ledger, err := storage.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}

	backend := llm.NewOllamaClient(cfg.Ollama)

	var renderer ports.ChartRenderer
	if cfg.Insights.Charts {
		renderer = chart.NewRenderer(store.VisualizationDir())
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:    registry,
		Sources:     cfg.Collect.Sources,
		Concurrency: cfg.Collect.Concurrency,
		Store:       store,
		Processor:   usecase.NewProcessor(cfg.Process, baseLogger.With("component", "processor")),
		Insights:    usecase.NewInsightGenerator(cfg.Insights, renderer, baseLogger.With("component", "insights")),
		Generator:   usecase.NewContentGenerator(cfg.Generate, backend, ledger, store, baseLogger.With("component", "generator")),
		Backend:     backend,
		Logger:      baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, pipeline: pipeline, ledger: ledger, logger: baseLogger}, nil
}

// Run executes one pipeline invocation.
func (a *Application) Run(ctx context.Context, req usecase.Request) error {
	report, err := a.pipeline.Run(ctx, req)
	for _, stage := range report.Stages {
		for _, failure := range stage.Failures {
			a.logger.Warn("contained failure", "stage", stage.Stage, "unit", failure.Unit, "reason", failure.Reason)
		}
	}
	return err
}

// Close releases held resources.
func (a *Application) Close() error {
	return a.ledger.Close()
}
