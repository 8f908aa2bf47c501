package usecase

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsForge/internal/config"
	"NewsForge/internal/domain"
)

func testProcessConfig() config.ProcessConfig {
	return config.ProcessConfig{
		MinTextWords:        3,
		SimilarityThreshold: 0.8,
		MaxKeywords:         8,
		MaxKeyFacts:         5,
	}
}

func TestProcessLatestDuplicateWinsAndKeepsFragments(t *testing.T) {
	t.Parallel()

	older := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "noticia-1",
		FetchedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Text:      "presidente viaja amanhã para reunião internacional sobre clima global",
	}
	newer := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "noticia-1",
		FetchedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Text:      "governo anuncia pacote econômico robusto com medidas fiscais inéditas",
	}

	p := NewProcessor(testProcessConfig(), nil)

	for name, items := range map[string][]domain.RawItem{
		"older first": {older, newer},
		"newer first": {newer, older},
	} {
		records, report, err := p.Process(items)
		require.NoError(t, err, name)
		require.Len(t, records, 1, name)

		rec := records[0]
		assert.Equal(t, domain.RecordID(domain.SourcePortal, "noticia-1"), rec.ID, name)
		assert.Contains(t, rec.CanonicalText, "governo anuncia pacote", name)
		assert.Contains(t, rec.CanonicalText, "presidente viaja amanhã", name)
		assert.True(t, rec.FetchedAt.Equal(newer.FetchedAt), name)
		assert.Equal(t, domain.StatusDone, report.Status, name)
	}
}

func TestProcessDiscardsNearIdenticalDuplicateText(t *testing.T) {
	t.Parallel()

	base := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "noticia-2",
		FetchedAt: time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
		Text:      "ministério confirma novos investimentos bilionários em infraestrutura rodoviária nacional",
	}
	older := base
	older.FetchedAt = base.FetchedAt.Add(-time.Hour)

	records, _, err := NewProcessor(testProcessConfig(), nil).Process([]domain.RawItem{base, older})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, cleanText(base.Text), records[0].CanonicalText)
}

func TestProcessMergesCrossSourceNearDuplicates(t *testing.T) {
	t.Parallel()

	text := "congresso aprova reforma tributária após longa votação madrugada adentro nesta quarta"
	portal := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "reforma",
		FetchedAt: time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC),
		Text:      text,
	}
	microblog := domain.RawItem{
		Source:    domain.SourceMicroblog,
		SourceID:  "555",
		FetchedAt: time.Date(2026, 5, 3, 11, 0, 0, 0, time.UTC),
		Text:      text,
	}

	p := NewProcessor(testProcessConfig(), nil)

	forward, _, err := p.Process([]domain.RawItem{portal, microblog})
	require.NoError(t, err)
	reversed, _, err := p.Process([]domain.RawItem{microblog, portal})
	require.NoError(t, err)

	require.Len(t, forward, 1)
	assert.Equal(t, []string{"microblog:555", "portal:reforma"}, forward[0].SourceRefs)
	assert.True(t, forward[0].FetchedAt.Equal(microblog.FetchedAt))

	// The representative id must not depend on input order.
	assert.Equal(t, forward, reversed)
}

func TestProcessNeverMergesDistinctItemsOfOneSource(t *testing.T) {
	t.Parallel()

	text := "prefeitura inaugura hospital municipal novo equipado com tecnologia avançada importada"
	a := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "hospital-a",
		FetchedAt: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		Text:      text,
	}
	b := a
	b.SourceID = "hospital-b"

	records, _, err := NewProcessor(testProcessConfig(), nil).Process([]domain.RawItem{a, b})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestProcessFiltersShortAndOffCategoryRecords(t *testing.T) {
	t.Parallel()

	cfg := testProcessConfig()
	cfg.MinTextWords = 6
	cfg.Categories = []string{"politica"}

	keep := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "mantida",
		FetchedAt: time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC),
		Text:      "senado debate projeto orçamentário durante sessão extraordinária convocada ontem",
		Metadata:  map[string]string{"category": "politica"},
	}
	tooShort := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "curta",
		FetchedAt: keep.FetchedAt,
		Text:      "nota curta demais",
		Metadata:  map[string]string{"category": "politica"},
	}
	offCategory := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "esporte",
		FetchedAt: keep.FetchedAt,
		Text:      "time local vence clássico regional com placar elástico surpreendente ontem",
		Metadata:  map[string]string{"category": "esportes"},
	}

	records, report, err := NewProcessor(cfg, nil).Process([]domain.RawItem{keep, tooShort, offCategory})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "politica", records[0].Category)
	assert.Equal(t, 2, report.Skipped)
}

func TestProcessSkipsMalformedItems(t *testing.T) {
	t.Parallel()

	good := domain.RawItem{
		Source:    domain.SourceMicroblog,
		SourceID:  "777",
		FetchedAt: time.Date(2026, 5, 6, 9, 0, 0, 0, time.UTC),
		Text:      "eleitores comparecem massivamente às urnas neste domingo ensolarado em todo país",
	}
	missingID := domain.RawItem{Source: domain.SourceMicroblog, FetchedAt: good.FetchedAt, Text: "sem id"}

	records, report, err := NewProcessor(testProcessConfig(), nil).Process([]domain.RawItem{good, missingID})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, domain.StatusPartial, report.Status)
	require.Len(t, report.Failures, 1)
}

func TestProcessFailsWhenEveryItemIsMalformed(t *testing.T) {
	t.Parallel()

	items := []domain.RawItem{
		{Source: domain.SourcePortal, Text: "sem id"},
		{SourceID: "sem-fonte", Text: "sem fonte"},
	}

	_, report, err := NewProcessor(testProcessConfig(), nil).Process(items)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInput))
	assert.Equal(t, domain.StatusFailed, report.Status)
}

func TestProcessRedactsStopTerms(t *testing.T) {
	t.Parallel()

	cfg := testProcessConfig()
	cfg.StopTerms = []string{"palavrão"}

	item := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "redigida",
		FetchedAt: time.Date(2026, 5, 7, 9, 0, 0, 0, time.UTC),
		Text:      "manifestante grita Palavrão durante protesto em frente ao congresso nacional",
	}

	records, _, err := NewProcessor(cfg, nil).Process([]domain.RawItem{item})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotContains(t, records[0].CanonicalText, "alavrão")
	assert.Contains(t, records[0].CanonicalText, "********")
}

func TestProcessComputesEngagementFromMetadata(t *testing.T) {
	t.Parallel()

	post := domain.RawItem{
		Source:    domain.SourceMicroblog,
		SourceID:  "321",
		FetchedAt: time.Date(2026, 5, 9, 9, 0, 0, 0, time.UTC),
		Text:      "mercado financeiro reage com otimismo ao novo pacote fiscal anunciado",
		Metadata:  map[string]string{"retweets": "100", "favorites": "50"},
	}
	article := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "sem-metrica",
		FetchedAt: post.FetchedAt,
		Text:      "prefeitura abre inscrições para concurso público com trezentas vagas imediatas",
	}

	records, _, err := NewProcessor(testProcessConfig(), nil).Process([]domain.RawItem{post, article})
	require.NoError(t, err)
	require.Len(t, records, 2)

	byID := map[string]domain.NormalizedRecord{}
	for _, rec := range records {
		byID[rec.ID] = rec
	}
	assert.Equal(t, 150, byID[domain.RecordID(domain.SourceMicroblog, "321")].Engagement)
	assert.Equal(t, 0, byID[domain.RecordID(domain.SourcePortal, "sem-metrica")].Engagement)
}

func TestProcessEngagementPercentileFilter(t *testing.T) {
	t.Parallel()

	cfg := testProcessConfig()
	cfg.EngagementPercentile = 0.5

	fetched := time.Date(2026, 5, 9, 10, 0, 0, 0, time.UTC)
	high := domain.RawItem{
		Source:    domain.SourceMicroblog,
		SourceID:  "viral",
		FetchedAt: fetched,
		Text:      "vídeo da cerimônia de posse bate recorde de compartilhamentos nas redes",
		Metadata:  map[string]string{"retweets": "100", "favorites": "50"},
	}
	low := domain.RawItem{
		Source:    domain.SourcePhotoFeed,
		SourceID:  "perfil/post",
		FetchedAt: fetched,
		Text:      "exposição fotográfica retrata o cotidiano ribeirinho da região amazônica",
		Metadata:  map[string]string{"likes": "2", "comments": "1"},
	}
	none := domain.RawItem{
		Source:    domain.SourcePortal,
		SourceID:  "institucional",
		FetchedAt: fetched,
		Text:      "balanço trimestral da estatal aponta lucro acima das projeções iniciais",
	}

	records, report, err := NewProcessor(cfg, nil).Process([]domain.RawItem{high, low, none})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, report.Skipped)
	for _, rec := range records {
		assert.GreaterOrEqual(t, rec.Engagement, 3)
	}

	// Disabled by default: the same input survives untouched.
	records, _, err = NewProcessor(testProcessConfig(), nil).Process([]domain.RawItem{high, low, none})
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestProcessIsOrderIndependent(t *testing.T) {
	t.Parallel()

	fetched := time.Date(2026, 5, 8, 9, 0, 0, 0, time.UTC)
	items := []domain.RawItem{
		{Source: domain.SourcePortal, SourceID: "a", FetchedAt: fetched, Text: "governo federal anuncia plano nacional de vacinação contra gripe aviária"},
		{Source: domain.SourceMicroblog, SourceID: "b", FetchedAt: fetched, Text: "bolsa de valores fecha em alta recorde puxada pelo setor bancário"},
		{Source: domain.SourcePhotoFeed, SourceID: "c", FetchedAt: fetched, Text: "festival gastronômico reúne milhares de visitantes no centro histórico da cidade"},
	}
	permutations := [][]domain.RawItem{
		{items[0], items[1], items[2]},
		{items[2], items[0], items[1]},
		{items[1], items[2], items[0]},
	}

	p := NewProcessor(testProcessConfig(), nil)

	var baseline []byte
	for i, perm := range permutations {
		records, _, err := p.Process(perm)
		require.NoError(t, err)

		encoded, err := json.Marshal(records)
		require.NoError(t, err)
		if i == 0 {
			baseline = encoded
			continue
		}
		assert.JSONEq(t, string(baseline), string(encoded), "permutation %d", i)
	}
}
