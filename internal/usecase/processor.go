package usecase

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"NewsForge/internal/config"
	"NewsForge/internal/domain"
)

// Processor consolidates, deduplicates, and filters raw items into the
// normalized dataset. It is pure over its inputs: the same items and
// configuration always yield the same records, regardless of input order.
type Processor struct {
	cfg    config.ProcessConfig
	logger *slog.Logger
}

// NewProcessor builds the stage from configuration.
func NewProcessor(cfg config.ProcessConfig, logger *slog.Logger) *Processor {
	return &Processor{cfg: cfg, logger: logger}
}

// Process runs the full consolidation: per-source dedup, cross-source
// near-duplicate linking, filtering, and redaction. Malformed items are
// skipped and reported; the stage fails only when every input is invalid.
func (p *Processor) Process(items []domain.RawItem) ([]domain.NormalizedRecord, *domain.StageReport, error) {
	report := domain.NewStageReport(domain.StageProcess)

	valid := make([]domain.RawItem, 0, len(items))
	for _, item := range items {
		if !item.Valid() {
			report.Fail(item.Ref(), "missing source, source_id, or fetched_at")
			report.Skipped++
			continue
		}
		valid = append(valid, item)
	}

	if len(valid) == 0 {
		report.Status = domain.StatusFailed
		if len(items) > 0 {
			return nil, report, fmt.Errorf("all %d input items invalid: %w", len(items), domain.ErrMalformedInput)
		}
		return nil, report, fmt.Errorf("empty input: %w", domain.ErrMalformedInput)
	}

	records := p.normalize(p.dedupe(valid))
	records = p.consolidate(records)
	records = p.filterByEngagement(records, report)
	records = p.filter(records, report)

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	report.Succeeded = len(records)
	report.Status = domain.StatusDone
	if len(report.Failures) > 0 {
		report.Status = domain.StatusPartial
	}

	p.debug("processing done", "in", len(items), "out", len(records), "skipped", report.Skipped)
	return records, report, nil
}

// dedupe groups items by (source, source_id) and collapses each group into a
// single item: latest fetched_at wins the metadata, while distinct text
// fragments from older duplicates are concatenated instead of discarded.
func (p *Processor) dedupe(items []domain.RawItem) []domain.RawItem {
	groups := map[string][]domain.RawItem{}
	for _, item := range items {
		key := item.Ref()
		groups[key] = append(groups[key], item)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]domain.RawItem, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool {
			if !group[i].FetchedAt.Equal(group[j].FetchedAt) {
				return group[i].FetchedAt.After(group[j].FetchedAt)
			}
			return group[i].Text < group[j].Text
		})

		kept := group[0]
		keptTokens := contentTokens(kept.Text)
		for _, dup := range group[1:] {
			if dup.Text == "" || dup.Text == kept.Text {
				continue
			}
			if jaccard(keptTokens, contentTokens(dup.Text)) >= p.cfg.SimilarityThreshold {
				continue
			}
			kept.Text = strings.TrimSpace(kept.Text + "\n\n" + dup.Text)
			keptTokens = contentTokens(kept.Text)
		}
		out = append(out, kept)
	}
	return out
}

// normalize converts deduplicated items into records with cleaned text,
// category, keywords, and grounding facts.
func (p *Processor) normalize(items []domain.RawItem) []domain.NormalizedRecord {
	records := make([]domain.NormalizedRecord, 0, len(items))
	for _, item := range items {
		text := p.redact(cleanText(item.Text))
		keywords := topKeywords(text, p.cfg.MaxKeywords)

		records = append(records, domain.NormalizedRecord{
			ID:            domain.RecordID(item.Source, item.SourceID),
			CanonicalText: text,
			Category:      categoryOf(item),
			Keywords:      keywords,
			KeyFacts:      keyFacts(text, keywords, p.cfg.MaxKeyFacts),
			SourceRefs:    []string{item.Ref()},
			Engagement:    engagementOf(item),
			FetchedAt:     item.FetchedAt.UTC(),
		})
	}
	return records
}

// consolidate links cross-source near-duplicates: records from different
// sources whose canonical text similarity meets the threshold share one
// record, with the merged source_refs preserving provenance. Records are
// visited in id order so the result does not depend on input ordering; the
// representative is the record with the smallest id.
func (p *Processor) consolidate(records []domain.NormalizedRecord) []domain.NormalizedRecord {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	type kept struct {
		rec    *domain.NormalizedRecord
		tokens map[string]struct{}
	}
	var reps []kept

	for i := range records {
		rec := records[i]
		tokens := contentTokens(rec.CanonicalText)

		merged := false
		for _, rep := range reps {
			if sameSourceOnly(rep.rec.SourceRefs, rec.SourceRefs) {
				continue
			}
			if jaccard(rep.tokens, tokens) >= p.cfg.SimilarityThreshold {
				rep.rec.SourceRefs = mergeRefs(rep.rec.SourceRefs, rec.SourceRefs)
				rep.rec.Keywords = mergeKeywords(rep.rec.Keywords, rec.Keywords, p.cfg.MaxKeywords)
				rep.rec.Engagement += rec.Engagement
				if rec.FetchedAt.After(rep.rec.FetchedAt) {
					rep.rec.FetchedAt = rec.FetchedAt
				}
				p.debug("linked cross-source duplicate", "kept", rep.rec.ID, "merged", rec.ID)
				merged = true
				break
			}
		}
		if !merged {
			reps = append(reps, kept{rec: &records[i], tokens: tokens})
		}
	}

	out := make([]domain.NormalizedRecord, 0, len(reps))
	for _, rep := range reps {
		out = append(out, *rep.rec)
	}
	return out
}

// filterByEngagement drops records whose engagement falls below the
// configured percentile of the dataset. Disabled when the percentile is zero;
// with mostly zero-engagement datasets the threshold collapses to zero and
// nothing is dropped.
func (p *Processor) filterByEngagement(records []domain.NormalizedRecord, report *domain.StageReport) []domain.NormalizedRecord {
	if p.cfg.EngagementPercentile <= 0 || len(records) < 2 {
		return records
	}

	values := make([]int, len(records))
	for i, rec := range records {
		values[i] = rec.Engagement
	}
	sort.Ints(values)
	threshold := values[int(p.cfg.EngagementPercentile*float64(len(values)-1))]

	out := records[:0]
	for _, rec := range records {
		if rec.Engagement < threshold {
			report.Skipped++
			p.debug("dropped low-engagement record", "id", rec.ID, "engagement", rec.Engagement)
			continue
		}
		out = append(out, rec)
	}
	return out
}

// filter drops records below the minimum text length and records outside the
// category allow-list.
func (p *Processor) filter(records []domain.NormalizedRecord, report *domain.StageReport) []domain.NormalizedRecord {
	allowed := map[string]struct{}{}
	for _, cat := range p.cfg.Categories {
		allowed[strings.ToLower(cat)] = struct{}{}
	}

	out := records[:0]
	for _, rec := range records {
		if wordCount(rec.CanonicalText) < p.cfg.MinTextWords {
			report.Skipped++
			p.debug("dropped short record", "id", rec.ID, "words", wordCount(rec.CanonicalText))
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[strings.ToLower(rec.Category)]; !ok {
				report.Skipped++
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// redact masks configured stop-terms in canonical text.
func (p *Processor) redact(text string) string {
	for _, term := range p.cfg.StopTerms {
		if term == "" {
			continue
		}
		expr := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
		text = expr.ReplaceAllString(text, strings.Repeat("*", len([]rune(term))))
	}
	return text
}

func (p *Processor) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func categoryOf(item domain.RawItem) string {
	if cat, ok := item.Metadata["category"]; ok && cat != "" {
		return strings.ToLower(cat)
	}
	return "geral"
}

// engagementOf sums the interaction counters collectors attach per source
// (retweets/favorites for microblogs, likes/comments for photo feeds).
// Sources without such counters score zero.
func engagementOf(item domain.RawItem) int {
	total := 0
	for _, key := range []string{"retweets", "favorites", "likes", "comments"} {
		if n, err := strconv.Atoi(item.Metadata[key]); err == nil && n > 0 {
			total += n
		}
	}
	return total
}

// sameSourceOnly reports whether both ref sets come from one identical source,
// in which case they stay independent records.
func sameSourceOnly(a, b []string) bool {
	return soleSource(a) != "" && soleSource(a) == soleSource(b)
}

func soleSource(refs []string) string {
	source := ""
	for _, ref := range refs {
		prefix, _, ok := strings.Cut(ref, ":")
		if !ok {
			return ""
		}
		if source == "" {
			source = prefix
		} else if source != prefix {
			return ""
		}
	}
	return source
}

func mergeRefs(a, b []string) []string {
	set := map[string]struct{}{}
	for _, ref := range a {
		set[ref] = struct{}{}
	}
	for _, ref := range b {
		set[ref] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for ref := range set {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

func mergeKeywords(a, b []string, max int) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(a)+len(b))
	for _, kw := range append(append([]string{}, a...), b...) {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}
