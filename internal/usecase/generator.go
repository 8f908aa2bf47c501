package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"NewsForge/internal/artifact"
	"NewsForge/internal/config"
	"NewsForge/internal/domain"
	"NewsForge/internal/ports"
)

var defaultEditorias = []string{
	"Política", "Economia", "Entretenimento", "Tecnologia",
	"Esportes", "Saúde", "Educação", "Mundo",
}

// ContentGenerator drives the language model to synthesize structured
// articles from normalized records, validating and repairing output. Each
// topic cluster is an independent unit of work: exhausted retries downgrade
// to a recorded skip, never a run-wide failure.
type ContentGenerator struct {
	cfg     config.GenerateConfig
	backend ports.ModelBackend
	ledger  ports.GenerationLedger
	store   *artifact.Store
	logger  *slog.Logger
	force   bool
}

// NewContentGenerator builds the stage; ledger may be nil, in which case
// idempotency falls back to article-file existence alone.
func NewContentGenerator(cfg config.GenerateConfig, backend ports.ModelBackend, ledger ports.GenerationLedger, store *artifact.Store, logger *slog.Logger) *ContentGenerator {
	return &ContentGenerator{cfg: cfg, backend: backend, ledger: ledger, store: store, logger: logger}
}

// SetForce overrides idempotent cluster skipping for the next Generate call.
func (g *ContentGenerator) SetForce(force bool) {
	g.force = force
}

// Generate builds topic clusters, invokes the model per cluster under the
// configured concurrency limit, and persists each accepted article as an
// independent artifact keyed by the cluster id. The insight bundle, when
// present, enriches the prompts with trending keywords.
func (g *ContentGenerator) Generate(ctx context.Context, records []domain.NormalizedRecord, bundle *domain.InsightBundle) ([]domain.GeneratedArticle, *domain.StageReport, error) {
	report := domain.NewStageReport(domain.StageGenerate)

	clusters := BuildClusters(records)
	if len(clusters) > g.cfg.MaxArticles {
		clusters = clusters[:g.cfg.MaxArticles]
	}
	if len(clusters) == 0 {
		report.Status = domain.StatusFailed
		return nil, report, fmt.Errorf("no topic clusters to generate from")
	}

	done, err := g.alreadyGenerated(ctx, clusters)
	if err != nil {
		g.warn("ledger lookup failed, regenerating all clusters", "error", err)
		done = map[string]bool{}
	}

	var (
		mu       sync.Mutex
		accepted []domain.GeneratedArticle
	)

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(g.cfg.Concurrency)

	for _, cluster := range clusters {
		// Without a ledger, the published article file alone marks a cluster done.
		if !g.force && (done[cluster.ID] || g.ledger == nil) && g.store.Exists(g.store.ArticlePath(cluster.ID)) {
			mu.Lock()
			report.Skipped++
			mu.Unlock()
			g.debug("cluster already generated, skipping", "cluster", cluster.ID)
			continue
		}

		cluster := cluster
		grp.Go(func() error {
			article, genErr := g.generateOne(grpCtx, cluster, bundle)

			mu.Lock()
			defer mu.Unlock()
			if genErr != nil {
				report.Fail(cluster.ID, genErr.Error())
				g.recordOutcome(grpCtx, domain.LedgerEntry{
					ClusterID: cluster.ID,
					Status:    domain.LedgerRejected,
					Reason:    genErr.Error(),
				})
				return nil
			}

			if err := g.store.WriteJSON(g.store.ArticlePath(cluster.ID), article); err != nil {
				return err
			}
			g.recordOutcome(grpCtx, domain.LedgerEntry{
				ClusterID: cluster.ID,
				Titulo:    article.Titulo,
				Status:    domain.LedgerAccepted,
				WordCount: wordCount(article.Materia),
			})
			accepted = append(accepted, *article)
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		report.Status = domain.StatusFailed
		return nil, report, err
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].ClusterID < accepted[j].ClusterID })

	report.Succeeded = len(accepted)
	report.Status = domain.StatusDone
	if len(report.Failures) > 0 {
		report.Status = domain.StatusPartial
		if len(accepted) == 0 && report.Skipped == 0 {
			report.Status = domain.StatusFailed
		}
	}
	return accepted, report, nil
}

// generateOne runs the bounded draft-validate-repair loop for a single
// cluster: each rejected draft re-prompts with the rejection reason until
// the retry budget runs out.
func (g *ContentGenerator) generateOne(ctx context.Context, cluster domain.TopicCluster, bundle *domain.InsightBundle) (*domain.GeneratedArticle, error) {
	prompt := g.buildPrompt(cluster, bundle)

	var lastErr error
	for attempt := 0; attempt <= g.cfg.Retries; attempt++ {
		raw, err := g.backend.Complete(ctx, prompt, domain.CompletionOptions{
			Temperature: g.cfg.Temperature,
			MaxTokens:   g.cfg.MaxTokens,
		})
		if err != nil {
			// Backend exhaustion is not repairable by prompting again.
			return nil, fmt.Errorf("cluster %s: %w", cluster.ID, err)
		}

		article, parseErr := parseArticle(raw)
		if parseErr == nil {
			g.fillDefaults(article, cluster)
			parseErr = g.validate(article)
		}
		if parseErr == nil {
			article.ClusterID = cluster.ID
			article.SourceRecordIDs = cluster.RecordIDs()
			g.debug("article accepted", "cluster", cluster.ID, "attempt", attempt+1, "words", wordCount(article.Materia))
			return article, nil
		}

		lastErr = parseErr
		g.debug("draft rejected", "cluster", cluster.ID, "attempt", attempt+1, "reason", parseErr)
		prompt = g.buildPrompt(cluster, bundle) + correctiveSuffix(parseErr)
	}

	return nil, fmt.Errorf("cluster %s: retries exhausted: %w", cluster.ID, lastErr)
}

func (g *ContentGenerator) buildPrompt(cluster domain.TopicCluster, bundle *domain.InsightBundle) string {
	var facts []string
	for _, rec := range cluster.Records {
		if len(rec.KeyFacts) > 0 {
			facts = append(facts, rec.KeyFacts...)
			continue
		}
		facts = append(facts, truncateWords(rec.CanonicalText, 80))
	}
	if len(facts) > 12 {
		facts = facts[:12]
	}

	keywords := clusterKeywords(cluster, 8)
	if bundle != nil {
		for _, kc := range bundle.TopKeywords {
			if len(keywords) >= 10 {
				break
			}
			keywords = appendUnique(keywords, kc.Keyword)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Crie uma matéria jornalística completa sobre o seguinte tópico: %s\n\n", cluster.Topic)
	b.WriteString("Fatos importantes:\n")
	for _, fact := range facts {
		fmt.Fprintf(&b, "- %s\n", fact)
	}
	fmt.Fprintf(&b, "\nPalavras-chave sugeridas: %s\n", strings.Join(keywords, ", "))
	fmt.Fprintf(&b, `
Regras:
- Seja objetivo, até %d parágrafos
- Mínimo de %d palavras no corpo da matéria
- Não use aspas
- Use foco no fato principal

Responda somente com um objeto JSON exatamente neste formato:
{"materia": "corpo completo da matéria", "editoria": "editoria", "subtitulo": "subtítulo", "titulo": "título", "keywords": ["palavra1", "palavra2"]}
`, g.cfg.MaxParagraphs, g.cfg.MinWords)

	return b.String()
}

// fillDefaults substitutes cluster-derived values for optional fields the
// model tends to omit before the hard contract is enforced.
func (g *ContentGenerator) fillDefaults(article *domain.GeneratedArticle, cluster domain.TopicCluster) {
	if strings.TrimSpace(article.Editoria) == "" {
		article.Editoria = editoriaFor(cluster.Category)
	}
	if len(article.Keywords) == 0 {
		article.Keywords = clusterKeywords(cluster, 5)
	}
}

// validate enforces the hard post-generation contract.
func (g *ContentGenerator) validate(article *domain.GeneratedArticle) error {
	switch {
	case strings.TrimSpace(article.Titulo) == "":
		return fmt.Errorf("empty titulo: %w", domain.ErrModelOutputInvalid)
	case strings.TrimSpace(article.Subtitulo) == "":
		return fmt.Errorf("empty subtitulo: %w", domain.ErrModelOutputInvalid)
	case strings.TrimSpace(article.Editoria) == "":
		return fmt.Errorf("empty editoria: %w", domain.ErrModelOutputInvalid)
	case strings.TrimSpace(article.Materia) == "":
		return fmt.Errorf("empty materia: %w", domain.ErrModelOutputInvalid)
	case len(article.Keywords) == 0:
		return fmt.Errorf("empty keywords: %w", domain.ErrModelOutputInvalid)
	}

	if words := wordCount(article.Materia); words < g.cfg.MinWords {
		return fmt.Errorf("materia has %d words, minimum is %d: %w", words, g.cfg.MinWords, domain.ErrModelOutputInvalid)
	}
	if g.cfg.MaxParagraphs > 0 {
		if paragraphs := len(strings.Split(strings.TrimSpace(article.Materia), "\n\n")); paragraphs > g.cfg.MaxParagraphs {
			return fmt.Errorf("materia has %d paragraphs, maximum is %d: %w", paragraphs, g.cfg.MaxParagraphs, domain.ErrModelOutputInvalid)
		}
	}
	return nil
}

func (g *ContentGenerator) alreadyGenerated(ctx context.Context, clusters []domain.TopicCluster) (map[string]bool, error) {
	if g.ledger == nil || g.force {
		return map[string]bool{}, nil
	}
	ids := make([]string, len(clusters))
	for i, c := range clusters {
		ids[i] = c.ID
	}
	return g.ledger.AlreadyGenerated(ctx, ids)
}

func (g *ContentGenerator) recordOutcome(ctx context.Context, entry domain.LedgerEntry) {
	if g.ledger == nil {
		return
	}
	if err := g.ledger.RecordResult(ctx, entry); err != nil {
		g.warn("ledger write failed", "cluster", entry.ClusterID, "error", err)
	}
}

func (g *ContentGenerator) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}

func (g *ContentGenerator) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}

// BuildClusters groups related records by category into topic clusters. The
// cluster id is a stable hash over the member record ids so reruns address
// the same output artifact.
func BuildClusters(records []domain.NormalizedRecord) []domain.TopicCluster {
	byCategory := map[string][]domain.NormalizedRecord{}
	for _, rec := range records {
		byCategory[rec.Category] = append(byCategory[rec.Category], rec)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	clusters := make([]domain.TopicCluster, 0, len(categories))
	for _, cat := range categories {
		members := byCategory[cat]
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

		cluster := domain.TopicCluster{
			Category: cat,
			Records:  members,
		}
		cluster.ID = clusterID(cat, cluster.RecordIDs())
		cluster.Topic = clusterTopic(cluster)
		clusters = append(clusters, cluster)
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })
	return clusters
}

func clusterID(category string, recordIDs []string) string {
	sum := sha256.Sum256([]byte(category + "|" + strings.Join(recordIDs, ",")))
	return hex.EncodeToString(sum[:8])
}

// clusterTopic picks the most frequent keyword across members, falling back
// to the category name.
func clusterTopic(cluster domain.TopicCluster) string {
	counts := map[string]int{}
	for _, rec := range cluster.Records {
		for _, kw := range rec.Keywords {
			counts[kw]++
		}
	}

	topic := ""
	best := 0
	for kw, count := range counts {
		if count > best || (count == best && kw < topic) {
			topic, best = kw, count
		}
	}
	if topic == "" {
		return cluster.Category
	}
	return fmt.Sprintf("%s (%s)", topic, cluster.Category)
}

func clusterKeywords(cluster domain.TopicCluster, max int) []string {
	counts := map[string]int{}
	for _, rec := range cluster.Records {
		for _, kw := range rec.Keywords {
			counts[kw]++
		}
	}
	ranked := rankKeywords(counts, max)
	out := make([]string, len(ranked))
	for i, kc := range ranked {
		out[i] = kc.Keyword
	}
	return out
}

func editoriaFor(category string) string {
	for _, ed := range defaultEditorias {
		if strings.EqualFold(ed, category) {
			return ed
		}
	}
	if category == "" || category == "geral" {
		return "Geral"
	}
	return strings.ToUpper(category[:1]) + category[1:]
}

// parseArticle extracts the JSON object from raw model output, tolerating
// prose around it.
func parseArticle(raw string) (*domain.GeneratedArticle, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output: %w", domain.ErrModelOutputInvalid)
	}

	var article domain.GeneratedArticle
	if err := json.Unmarshal([]byte(raw[start:end+1]), &article); err != nil {
		return nil, fmt.Errorf("parse model output: %v: %w", err, domain.ErrModelOutputInvalid)
	}

	article.Titulo = strings.TrimSpace(article.Titulo)
	article.Subtitulo = strings.TrimSpace(article.Subtitulo)
	article.Editoria = strings.TrimSpace(article.Editoria)
	article.Materia = strings.TrimSpace(article.Materia)
	article.Keywords = trimNonEmpty(article.Keywords)
	return &article, nil
}

func correctiveSuffix(cause error) string {
	return fmt.Sprintf(`

A resposta anterior foi rejeitada pelo seguinte motivo: %s.
Corrija e responda novamente somente com o objeto JSON no formato exigido.`, rejectionHint(cause))
}

func rejectionHint(cause error) string {
	if errors.Is(cause, domain.ErrModelOutputInvalid) {
		return strings.TrimSuffix(cause.Error(), ": "+domain.ErrModelOutputInvalid.Error())
	}
	return cause.Error()
}

func truncateWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ") + "…"
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

func trimNonEmpty(list []string) []string {
	out := list[:0]
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
