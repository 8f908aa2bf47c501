package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsForge/internal/artifact"
	"NewsForge/internal/collector"
	"NewsForge/internal/config"
	"NewsForge/internal/domain"
	"NewsForge/internal/ports"
)

// PipelineDeps wires the stage components and driven adapters into the
// orchestrator.
type PipelineDeps struct {
	Registry    *collector.Registry
	Sources     []config.SourceConfig
	Concurrency int
	Store       *artifact.Store
	Processor   *Processor
	Insights    *InsightGenerator
	Generator   *ContentGenerator
	Backend     ports.ModelBackend
	Logger      *slog.Logger
}

// Pipeline sequences the collect, process, insights, and generate stages,
// persisting each stage's artifact and isolating per-unit failures so one
// bad input cannot abort the run.
type Pipeline struct {
	registry    *collector.Registry
	sources     []config.SourceConfig
	concurrency int
	store       *artifact.Store
	processor   *Processor
	insights    *InsightGenerator
	generator   *ContentGenerator
	backend     ports.ModelBackend
	logger      *slog.Logger
}

// Request selects what a single invocation runs.
type Request struct {
	// Step restricts the run to one named stage; empty runs the full chain.
	Step string
	// Agent restricts collect to a single named source.
	Agent string
	// Force regenerates clusters whose valid article already exists.
	Force bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		registry:    deps.Registry,
		sources:     deps.Sources,
		concurrency: concurrency,
		store:       deps.Store,
		processor:   deps.Processor,
		insights:    deps.Insights,
		generator:   deps.Generator,
		backend:     deps.Backend,
		logger:      deps.Logger,
	}
}

// Run executes the requested stage or the full chain. A stage that fully
// fails stops the run, leaves its previous artifact untouched, and surfaces
// a structured report alongside the error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*domain.RunReport, error) {
	run := &domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	defer func() { run.FinishedAt = time.Now().UTC() }()

	steps, err := p.selectSteps(req.Step)
	if err != nil {
		return run, err
	}

	if req.Force {
		p.generator.SetForce(true)
		defer p.generator.SetForce(false)
	}

	for _, stage := range steps {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		report, err := p.runStage(ctx, stage, req)
		run.Stages = append(run.Stages, report)
		p.logStage(report)
		if err != nil {
			return run, fmt.Errorf("stage %s: %w", stage, err)
		}
	}

	return run, nil
}

func (p *Pipeline) selectSteps(step string) ([]domain.Stage, error) {
	if step == "" {
		return domain.Stages(), nil
	}
	for _, stage := range domain.Stages() {
		if string(stage) == step {
			return []domain.Stage{stage}, nil
		}
	}
	return nil, fmt.Errorf("unknown step %q", step)
}

func (p *Pipeline) runStage(ctx context.Context, stage domain.Stage, req Request) (*domain.StageReport, error) {
	switch stage {
	case domain.StageCollect:
		return p.runCollect(ctx, req.Agent)
	case domain.StageProcess:
		return p.runProcess(ctx)
	case domain.StageInsights:
		return p.runInsights(ctx)
	case domain.StageGenerate:
		return p.runGenerate(ctx)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}

// runCollect fans out over the configured sources under the concurrency
// limit. Per-source failures are isolated: the stage is partial when at
// least one source produced output, failed only when none did.
func (p *Pipeline) runCollect(ctx context.Context, agent string) (*domain.StageReport, error) {
	report := domain.NewStageReport(domain.StageCollect)

	sources := p.sources
	if agent != "" {
		sources = nil
		for _, src := range p.sources {
			if src.Name == agent {
				sources = []config.SourceConfig{src}
				break
			}
		}
		if len(sources) == 0 {
			report.Status = domain.StatusFailed
			return report, fmt.Errorf("source %q is not configured", agent)
		}
	}

	var mu sync.Mutex
	grp := new(errgroup.Group)
	grp.SetLimit(p.concurrency)

	for _, src := range sources {
		src := src
		grp.Go(func() error {
			items, err := p.collectOne(ctx, src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A failing source is contained; a failing artifact write is not.
				var writeErr *domain.ArtifactWriteError
				if errors.As(err, &writeErr) {
					return err
				}
				report.Fail(src.Name, err.Error())
				p.logger.Warn("source collection failed", "source", src.Name, "error", err)
				return nil
			}
			report.Succeeded++
			p.logger.Info("source collected", "source", src.Name, "items", len(items))
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		report.Status = domain.StatusFailed
		return report, err
	}

	switch {
	case report.Succeeded == 0:
		report.Status = domain.StatusFailed
		return report, fmt.Errorf("all %d sources failed: %w", len(sources), domain.ErrSourceUnavailable)
	case len(report.Failures) > 0:
		report.Status = domain.StatusPartial
	default:
		report.Status = domain.StatusDone
	}
	return report, nil
}

func (p *Pipeline) collectOne(ctx context.Context, src config.SourceConfig) ([]domain.RawItem, error) {
	strategy, err := p.registry.Resolve(src.Kind)
	if err != nil {
		return nil, err
	}

	items, err := strategy.Collect(ctx, collector.Request{SourceName: src.Name, Options: src.Options})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("source %s produced no items: %w", src.Name, domain.ErrSourceUnavailable)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Ref() < items[j].Ref() })
	if err := p.store.WriteJSON(p.store.RawPath(src.Name), items); err != nil {
		return nil, err
	}
	return items, nil
}

// runProcess reads every available raw artifact, consolidates, and publishes
// the normalized dataset.
func (p *Pipeline) runProcess(ctx context.Context) (*domain.StageReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.NewStageReport(domain.StageProcess), err
	}

	var items []domain.RawItem
	found := false
	for _, src := range p.sources {
		path := p.store.RawPath(src.Name)
		var batch []domain.RawItem
		if err := p.store.ReadJSON(path, &batch); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			report := domain.NewStageReport(domain.StageProcess)
			report.Status = domain.StatusFailed
			return report, err
		}
		found = true
		items = append(items, batch...)
	}

	if !found {
		report := domain.NewStageReport(domain.StageProcess)
		report.Status = domain.StatusFailed
		return report, &domain.MissingArtifactError{Stage: domain.StageCollect, Path: p.store.RawPath("<source>")}
	}

	records, report, err := p.processor.Process(items)
	if err != nil {
		return report, err
	}

	path := p.store.ConsolidatedPath()
	if err := p.store.WriteJSON(path, records); err != nil {
		report.Status = domain.StatusFailed
		return report, err
	}
	report.ArtifactPath = path
	return report, nil
}

// runInsights regenerates the insight bundle wholesale from the normalized
// dataset.
func (p *Pipeline) runInsights(ctx context.Context) (*domain.StageReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.NewStageReport(domain.StageInsights), err
	}

	records, err := p.readConsolidated()
	if err != nil {
		report := domain.NewStageReport(domain.StageInsights)
		report.Status = domain.StatusFailed
		return report, err
	}

	bundle, report, err := p.insights.Summarize(records)
	if err != nil {
		return report, err
	}

	path := p.store.InsightsPath()
	if err := p.store.WriteJSON(path, bundle); err != nil {
		report.Status = domain.StatusFailed
		return report, err
	}
	report.ArtifactPath = path
	return report, nil
}

// runGenerate synthesizes articles from the normalized dataset, optionally
// enriched by the insight bundle when one is available.
func (p *Pipeline) runGenerate(ctx context.Context) (*domain.StageReport, error) {
	records, err := p.readConsolidated()
	if err != nil {
		report := domain.NewStageReport(domain.StageGenerate)
		report.Status = domain.StatusFailed
		return report, err
	}

	var bundle *domain.InsightBundle
	if err := p.store.ReadJSON(p.store.InsightsPath(), &bundle); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			report := domain.NewStageReport(domain.StageGenerate)
			report.Status = domain.StatusFailed
			return report, err
		}
		p.logger.Warn("insight bundle absent, generating without it")
		bundle = nil
	}

	if p.backend != nil {
		if _, err := p.backend.ListModels(ctx); err != nil {
			report := domain.NewStageReport(domain.StageGenerate)
			report.Status = domain.StatusFailed
			return report, fmt.Errorf("model backend preflight: %w", err)
		}
	}

	_, report, err := p.generator.Generate(ctx, records, bundle)
	if err != nil {
		return report, err
	}
	report.ArtifactPath = p.store.ArticleDir()
	return report, nil
}

func (p *Pipeline) readConsolidated() ([]domain.NormalizedRecord, error) {
	var records []domain.NormalizedRecord
	path := p.store.ConsolidatedPath()
	if err := p.store.ReadJSON(path, &records); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &domain.MissingArtifactError{Stage: domain.StageProcess, Path: path}
		}
		return nil, err
	}
	return records, nil
}

func (p *Pipeline) logStage(report *domain.StageReport) {
	p.logger.Info("stage finished",
		"stage", report.Stage,
		"status", report.Status,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failures", len(report.Failures),
	)
}
