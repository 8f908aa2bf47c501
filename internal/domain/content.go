package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Source identifies a collector backend.
type Source string

const (
	SourcePortal    Source = "portal"
	SourceMicroblog Source = "microblog"
	SourcePhotoFeed Source = "photo-feed"
)

// RawItem is one unit of collected content exactly as a collector delivered it.
type RawItem struct {
	Source    Source            `json:"source"`
	SourceID  string            `json:"source_id"`
	FetchedAt time.Time         `json:"fetched_at"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Ref returns the globally unique identifier of the item.
func (r RawItem) Ref() string {
	return fmt.Sprintf("%s:%s", r.Source, r.SourceID)
}

// Valid reports whether the item carries the fields every collector must set.
func (r RawItem) Valid() bool {
	return r.Source != "" && r.SourceID != "" && !r.FetchedAt.IsZero()
}

// RecordID derives the stable normalized-record id for a (source, source_id) pair.
func RecordID(source Source, sourceID string) string {
	sum := sha256.Sum256([]byte(string(source) + ":" + sourceID))
	return hex.EncodeToString(sum[:8])
}

// NormalizedRecord is a deduplicated, filtered content unit used by all
// downstream stages.
type NormalizedRecord struct {
	ID            string    `json:"id"`
	CanonicalText string    `json:"canonical_text"`
	Category      string    `json:"category"`
	Keywords      []string  `json:"keywords"`
	KeyFacts      []string  `json:"key_facts,omitempty"`
	SourceRefs    []string  `json:"source_refs"`
	Engagement    int       `json:"engagement,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// KeywordCount is one row of a keyword frequency table.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// InsightBundle holds aggregate statistics over a normalized dataset snapshot.
// It is regenerated wholesale on every insights run, never patched in place.
type InsightBundle struct {
	GeneratedAt       time.Time          `json:"generated_at"`
	Metrics           map[string]float64 `json:"metrics"`
	TopKeywords       []KeywordCount     `json:"top_keywords"`
	VisualizationRefs []string           `json:"visualization_refs,omitempty"`
}

// GeneratedArticle is the pipeline's terminal artifact. The JSON shape of the
// persisted file carries exactly the five editorial keys consumed downstream;
// provenance lives in the generation ledger.
type GeneratedArticle struct {
	Materia   string   `json:"materia"`
	Editoria  string   `json:"editoria"`
	Subtitulo string   `json:"subtitulo"`
	Titulo    string   `json:"titulo"`
	Keywords  []string `json:"keywords"`

	ClusterID       string   `json:"-"`
	SourceRecordIDs []string `json:"-"`
}

// TopicCluster groups related normalized records; it is the unit of content
// generation.
type TopicCluster struct {
	ID       string
	Topic    string
	Category string
	Records  []NormalizedRecord
}

// RecordIDs returns the ids of the cluster members in their stored order.
func (c TopicCluster) RecordIDs() []string {
	ids := make([]string, len(c.Records))
	for i, rec := range c.Records {
		ids[i] = rec.ID
	}
	return ids
}

// LedgerEntry is the persisted outcome of one topic-cluster generation.
type LedgerEntry struct {
	ClusterID string
	Titulo    string
	Status    LedgerStatus
	WordCount int
	Reason    string
}

// LedgerStatus enumerates generation outcomes kept in the ledger.
type LedgerStatus string

const (
	LedgerAccepted LedgerStatus = "accepted"
	LedgerRejected LedgerStatus = "rejected"
)

// CompletionOptions tune a single model-backend invocation.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}
