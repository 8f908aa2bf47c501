package usecase

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"NewsForge/internal/config"
	"NewsForge/internal/domain"
	"NewsForge/internal/ports"
)

// InsightGenerator computes aggregate metrics over the normalized dataset.
// Metric values are deterministic for a fixed input set and configuration;
// only the generated_at stamp depends on the wall clock.
type InsightGenerator struct {
	cfg      config.InsightsConfig
	renderer ports.ChartRenderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewInsightGenerator builds the stage; renderer may be nil to skip charts.
func NewInsightGenerator(cfg config.InsightsConfig, renderer ports.ChartRenderer, logger *slog.Logger) *InsightGenerator {
	return &InsightGenerator{cfg: cfg, renderer: renderer, logger: logger, now: time.Now}
}

// Summarize computes category distribution, keyword frequency, temporal
// trend buckets, source-contribution ratios, and per-source engagement
// totals. Visualization rendering is best-effort: a render failure is
// recorded as a warning, never a stage failure.
func (g *InsightGenerator) Summarize(records []domain.NormalizedRecord) (*domain.InsightBundle, *domain.StageReport, error) {
	report := domain.NewStageReport(domain.StageInsights)

	if len(records) == 0 {
		report.Status = domain.StatusFailed
		return nil, report, fmt.Errorf("no normalized records to summarize")
	}

	metrics := map[string]float64{
		"records_total": float64(len(records)),
	}

	categories := map[string]float64{}
	sources := map[string]float64{}
	engagement := map[string]float64{}
	trend := map[string]float64{}
	keywordCounts := map[string]int{}
	totalRefs := 0

	interval := g.cfg.TrendInterval()
	for _, rec := range records {
		categories[rec.Category]++

		for _, ref := range rec.SourceRefs {
			source, _, ok := strings.Cut(ref, ":")
			if !ok {
				source = "desconhecido"
			}
			sources[source]++
			totalRefs++
		}

		// Engagement is attributed to the record's primary source, the
		// first of its sorted refs.
		if rec.Engagement > 0 && len(rec.SourceRefs) > 0 {
			source, _, ok := strings.Cut(rec.SourceRefs[0], ":")
			if !ok {
				source = "desconhecido"
			}
			engagement[source] += float64(rec.Engagement)
		}

		bucket := rec.FetchedAt.UTC().Truncate(interval).Format(time.RFC3339)
		trend[bucket]++

		for _, kw := range rec.Keywords {
			keywordCounts[kw]++
		}
	}

	for cat, count := range categories {
		metrics["category."+cat] = count
	}
	for source, count := range sources {
		metrics["source."+source] = count
		if totalRefs > 0 {
			metrics["source_ratio."+source] = count / float64(totalRefs)
		}
	}
	for source, total := range engagement {
		metrics["engagement."+source] = total
		if count := sources[source]; count > 0 {
			metrics["engagement_avg."+source] = total / count
		}
	}
	for bucket, count := range trend {
		metrics["trend."+bucket] = count
	}

	bundle := &domain.InsightBundle{
		GeneratedAt: g.now().UTC(),
		Metrics:     metrics,
		TopKeywords: rankKeywords(keywordCounts, g.cfg.TopKeywords),
	}

	if g.cfg.Charts && g.renderer != nil {
		bundle.VisualizationRefs = g.renderCharts(categories, sources, report)
	}

	report.Succeeded = len(records)
	report.Status = domain.StatusDone
	return bundle, report, nil
}

// renderCharts draws the category and source distributions. Failures are
// downgraded to warnings so the insights data still commits.
func (g *InsightGenerator) renderCharts(categories, sources map[string]float64, report *domain.StageReport) []string {
	var refs []string

	charts := []struct {
		name   string
		title  string
		values map[string]float64
	}{
		{"category_distribution", "Distribuição de Conteúdo por Categoria", categories},
		{"source_distribution", "Distribuição de Conteúdo por Fonte", sources},
	}

	for _, c := range charts {
		path, err := g.renderer.RenderBars(c.name, c.title, c.values)
		if err != nil {
			g.warn("chart rendering failed", "chart", c.name, "error", err)
			report.Fail("chart:"+c.name, err.Error())
			continue
		}
		refs = append(refs, path)
	}
	return refs
}

func (g *InsightGenerator) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}

// rankKeywords orders keywords by descending count, ties alphabetical, and
// keeps the top k.
func rankKeywords(counts map[string]int, k int) []domain.KeywordCount {
	ranked := make([]domain.KeywordCount, 0, len(counts))
	for kw, count := range counts {
		ranked = append(ranked, domain.KeywordCount{Keyword: kw, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Keyword < ranked[j].Keyword
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
