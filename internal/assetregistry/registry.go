// Package assetregistry is the in-process cache of tracked crypto assets
// described by spec §4.1: priority-ordered keyword matching with periodic
// reload from storage, modeled on the original AssetConfig (reload-on-TTL,
// "keep existing config if reload fails") and the teacher's
// marketintel.ExtractSymbolsFromContent keyword-scan shape.
package assetregistry

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"socialcontext/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// Store is the storage-side read used to (re)load the asset list.
type Store interface {
	ListAssets(ctx context.Context) ([]domain.Asset, error)
}

// compiledAsset pairs an asset with its pre-built matcher so detect_asset
// never compiles a regex per call.
type compiledAsset struct {
	asset   domain.Asset
	pattern *regexp.Regexp
}

// Registry is a single-writer, many-reader cache of active assets. Reload
// replaces the snapshot atomically; a failed reload leaves the previous
// snapshot untouched.
type Registry struct {
	store  Store
	tracer trace.Tracer
	ttl    time.Duration

	mu         sync.RWMutex
	compiled   []compiledAsset // ordered by priority desc, then first-seen
	lastReload time.Time
}

// New builds a Registry. ttl defaults to 5 minutes per spec §4.1.
func New(store Store, tracer trace.Tracer, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Registry{store: store, tracer: tracer, ttl: ttl}
}

// Start loads the initial snapshot. Callers should treat a startup failure
// as fatal (spec §7 configuration errors are fatal at startup).
func (r *Registry) Start(ctx context.Context) error {
	return r.Reload(ctx)
}

// Reload refreshes the snapshot from storage. On error the previous
// snapshot is preserved and the error is logged, never propagated as a
// pipeline failure (spec §4.1 invariant).
func (r *Registry) Reload(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "assetregistry.reload")
	defer span.End()

	assets, err := r.store.ListAssets(ctx)
	if err != nil {
		log.Printf("assetregistry: reload failed, keeping previous snapshot: %v", err)
		return err
	}

	compiled := make([]compiledAsset, 0, len(assets))
	for _, a := range assets {
		if !a.Active || len(a.Keywords) == 0 {
			continue
		}
		pattern := buildPattern(a.Keywords)
		if pattern == nil {
			continue
		}
		compiled = append(compiled, compiledAsset{asset: a, pattern: pattern})
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		if compiled[i].asset.Priority != compiled[j].asset.Priority {
			return compiled[i].asset.Priority > compiled[j].asset.Priority
		}
		return compiled[i].asset.FirstSeen.Before(compiled[j].asset.FirstSeen)
	})

	r.mu.Lock()
	r.compiled = compiled
	r.lastReload = time.Now()
	r.mu.Unlock()
	return nil
}

// buildPattern compiles a single word-boundary regex over every keyword for
// an asset: a match is preceded by the string start, whitespace, `$` or
// `#`, and followed by the string end, whitespace, `.`, `,`, `!` or `?`,
// matching spec §4.1 and the original AssetConfig's
// `(?:^|[\s$#])(kw1|kw2)(?:$|[\s.,!?])` shape.
func buildPattern(keywords []string) *regexp.Regexp {
	escaped := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		escaped = append(escaped, regexp.QuoteMeta(kw))
	}
	if len(escaped) == 0 {
		return nil
	}
	pattern := `(?:^|[\s$#])(?:` + strings.Join(escaped, "|") + `)(?:$|[\s.,!?])`
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil
	}
	return re
}

// DetectAsset returns the highest-priority active asset whose keyword set
// matches text, or "" if none match. Ties are broken by priority then
// first-seen (spec §4.1).
func (r *Registry) DetectAsset(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	padded := " " + text + " "
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.compiled {
		if c.pattern.MatchString(padded) {
			return c.asset.Symbol
		}
	}
	return ""
}

// MatchAll returns every active asset whose keyword set matches text, in
// priority order, for callers needing all mentions rather than the single
// highest-priority one (internal/advisor's multi-symbol extraction).
func (r *Registry) MatchAll(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	padded := " " + text + " "
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, c := range r.compiled {
		if c.pattern.MatchString(padded) {
			out = append(out, c.asset.Symbol)
		}
	}
	return out
}

// ContainsAny reports whether text mentions any tracked active asset.
func (r *Registry) ContainsAny(text string) bool {
	return r.DetectAsset(text) != ""
}

// Snapshot returns the active assets currently cached, priority order.
func (r *Registry) Snapshot() []domain.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Asset, 0, len(r.compiled))
	for _, c := range r.compiled {
		out = append(out, c.asset)
	}
	return out
}

// StartAutoReload launches a goroutine that reloads on the configured TTL
// until ctx is canceled. Mirrors the teacher's ticker-loop idiom
// (internal/job/price_poller.go) rather than inventing a new scheduling
// primitive for this one reload.
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
