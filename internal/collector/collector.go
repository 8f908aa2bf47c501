package collector

import (
	"context"
	"fmt"

	"NewsForge/internal/domain"
)

// Request carries all parameters required to execute one collection.
type Request struct {
	SourceName string
	Options    map[string]string
}

// Collector captures a single source strategy (portal, microblog, photo-feed).
// Implementations wrap connectivity failures in domain.ErrSourceUnavailable so
// the orchestrator can isolate them per source.
type Collector interface {
	Kind() string
	Collect(ctx context.Context, req Request) ([]domain.RawItem, error)
}

// Registry keeps a mapping from collector kinds to their implementations.
type Registry struct {
	collectors map[string]Collector
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: map[string]Collector{}}
}

// Register adds or replaces a collector implementation.
func (r *Registry) Register(c Collector) {
	if r.collectors == nil {
		r.collectors = map[string]Collector{}
	}
	r.collectors[c.Kind()] = c
}

// Resolve returns a collector by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Collector, error) {
	if c, ok := r.collectors[kind]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("collector %s is not registered", kind)
}
