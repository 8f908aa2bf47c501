package ports

import (
	"context"

	"NewsForge/internal/domain"
)

// ModelBackend abstracts the locally hosted language model. Complete may be
// slow, may return malformed text, and may be temporarily unavailable; the
// client is expected to wrap exhaustion of its own retries in
// domain.ErrBackendUnavailable.
type ModelBackend interface {
	Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// GenerationLedger persists per-cluster generation outcomes so reruns can
// skip clusters whose valid article already exists.
type GenerationLedger interface {
	AlreadyGenerated(ctx context.Context, clusterIDs []string) (map[string]bool, error)
	RecordResult(ctx context.Context, entry domain.LedgerEntry) error
	Close() error
}

// ChartRenderer renders a named bar chart and returns the artifact path.
// Rendering is best-effort: callers downgrade failures to warnings.
type ChartRenderer interface {
	RenderBars(name, title string, values map[string]float64) (string, error)
}
