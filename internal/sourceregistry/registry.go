// Package sourceregistry implements the per-source whitelist described by
// spec §4.2: a closed set of account/subreddit/chat entries. Any inbound
// datum whose handle is absent — or whose entry is disabled — is discarded
// before any other processing runs. Mirrors assetregistry's
// reload-preserves-previous-on-failure shape.
package sourceregistry

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"socialcontext/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// Store loads the whitelist entries for a single source kind.
type Store interface {
	ListSourceEntries(ctx context.Context, source domain.Source) ([]domain.SourceEntry, error)
}

// Registry holds the whitelist for exactly one source (twitter, reddit, or
// telegram). The scheduler owns one Registry per source.
type Registry struct {
	source domain.Source
	store  Store
	tracer trace.Tracer
	ttl    time.Duration

	mu      sync.RWMutex
	byHandl map[string]domain.SourceEntry
	ordered []domain.SourceEntry
}

// New builds a Registry for one source kind.
func New(source domain.Source, store Store, tracer trace.Tracer, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Registry{source: source, store: store, tracer: tracer, ttl: ttl}
}

// Start loads the initial whitelist.
func (r *Registry) Start(ctx context.Context) error {
	return r.Reload(ctx)
}

// Reload refreshes the whitelist. A failed reload preserves the previous
// whitelist and logs loudly rather than failing the caller.
func (r *Registry) Reload(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "sourceregistry.reload")
	defer span.End()

	entries, err := r.store.ListSourceEntries(ctx, r.source)
	if err != nil {
		log.Printf("sourceregistry[%s]: reload failed, keeping previous whitelist: %v", r.source, err)
		return err
	}

	byHandle := make(map[string]domain.SourceEntry, len(entries))
	ordered := make([]domain.SourceEntry, 0, len(entries))
	for _, e := range entries {
		key := normalizeHandle(e.Handle)
		byHandle[key] = e
		ordered = append(ordered, e)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	r.mu.Lock()
	r.byHandl = byHandle
	r.ordered = ordered
	r.mu.Unlock()
	return nil
}

func normalizeHandle(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// IsWhitelisted reports whether handle is a known, enabled entry. Disabled
// entries behave identically to absent ones (spec §4.2).
func (r *Registry) IsWhitelisted(handle string) bool {
	e, ok := r.get(handle)
	return ok && e.Enabled
}

// Get returns the entry for handle, or nil if absent or disabled.
func (r *Registry) Get(handle string) *domain.SourceEntry {
	e, ok := r.get(handle)
	if !ok || !e.Enabled {
		return nil
	}
	return &e
}

func (r *Registry) get(handle string) (domain.SourceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byHandl[normalizeHandle(handle)]
	return e, ok
}

// EnabledSources returns every enabled entry ordered by priority descending.
func (r *Registry) EnabledSources() []domain.SourceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SourceEntry, 0, len(r.ordered))
	for _, e := range r.ordered {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// StartAutoReload launches a background reload loop until ctx is canceled.
func (r *Registry) StartAutoReload(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = r.Reload(ctx)
			}
		}
	}()
}
