// Package timesync implements the Time-Sync Guard of spec §4.4: the sole
// authority on timestamp validity, sitting between ingestion and
// enrichment. It is deterministic and stateless except for its Event
// Tracker (latest accepted event_time per source/asset) and Dedup Store,
// both bounded. Grounded on the teacher repo's guard-shaped validation
// steps in internal/marketintel/service.go combined with spec.md §4.4,
// since original_source/time_sync_guard.py was an empty stub.
package timesync

import (
	"sync"
	"time"

	"socialcontext/internal/domain"
)

// lateThresholds is the "now - event_time" ceiling per source beyond which
// an otherwise-valid event is rejected as stale.
var lateThresholds = map[domain.Source]time.Duration{
	domain.SourceTwitter:  15 * time.Second,
	domain.SourceTelegram: 30 * time.Second,
	domain.SourceReddit:   120 * time.Second,
}

// outOfOrderTolerances bounds how far behind the tracked high-water mark an
// event's time may fall before being rejected as out of order.
var outOfOrderTolerances = map[domain.Source]time.Duration{
	domain.SourceTwitter:  5 * time.Second,
	domain.SourceTelegram: 10 * time.Second,
	domain.SourceReddit:   60 * time.Second,
}

// dedupTTLs mirrors the Dedup Store TTLs from spec §3/§4.4 step 5.
var dedupTTLs = map[domain.Source]time.Duration{
	domain.SourceTwitter:  5 * time.Minute,
	domain.SourceTelegram: 10 * time.Minute,
	domain.SourceReddit:   30 * time.Minute,
}

type trackerKey struct {
	source domain.Source
	asset  string
}

type duplicateKey struct {
	source    domain.Source
	asset     string
	eventTime time.Time
	text      string
}

// Guard implements the six-stage pipeline of spec §4.4. It never rewrites
// an accepted event's fields.
type Guard struct {
	mu       sync.Mutex
	lastSeen map[trackerKey]time.Time
	dedup    map[duplicateKey]time.Time

	metrics domain.GuardMetrics
}

// New builds an empty Guard. The Event Tracker and Dedup Store start empty
// and grow only as events are evaluated.
func New() *Guard {
	return &Guard{
		lastSeen: make(map[trackerKey]time.Time),
		dedup:    make(map[duplicateKey]time.Time),
	}
}

// Evaluate runs a candidate through all six stages and reports whether it
// is accepted. now is the guard's reference clock, passed explicitly so the
// guard stays deterministic under test.
func (g *Guard) Evaluate(candidate domain.CandidateEvent, now time.Time) (domain.DropReason, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// 1. Parse: a missing or unparseable event_time reaches the guard as the
	// zero time.Time. The zero value and any event_time with a sub-second
	// component are rejected as malformed. A time.Time does not record the
	// precision of its source, so a timestamp coarser than one second is not
	// detected here.
	if candidate.EventTime.IsZero() || candidate.EventTime.Nanosecond() != 0 {
		g.bump(domain.DropMalformed)
		return domain.DropMalformed, false
	}

	// 2. Future check.
	if candidate.EventTime.After(now) {
		g.bump(domain.DropFuture)
		return domain.DropFuture, false
	}

	// 3. Late check.
	if threshold, ok := lateThresholds[candidate.Source]; ok {
		if now.Sub(candidate.EventTime) > threshold {
			g.bump(domain.DropLate)
			return domain.DropLate, false
		}
	}

	// 4. Out-of-order check.
	tk := trackerKey{source: candidate.Source, asset: candidate.Asset}
	last, hasLast := g.lastSeen[tk]
	if hasLast {
		tolerance := outOfOrderTolerances[candidate.Source]
		if candidate.EventTime.Before(last.Add(-tolerance)) {
			g.bump(domain.DropOutOfOrder)
			return domain.DropOutOfOrder, false
		}
	}

	// 5. Duplicate check.
	dk := duplicateKey{source: candidate.Source, asset: candidate.Asset, eventTime: candidate.EventTime, text: candidate.Text}
	ttl := dedupTTLs[candidate.Source]
	if firstSeen, ok := g.dedup[dk]; ok && now.Sub(firstSeen) < ttl {
		g.bump(domain.DropDuplicate)
		return domain.DropDuplicate, false
	}

	// 6. Accept.
	if !hasLast || candidate.EventTime.After(last) {
		g.lastSeen[tk] = candidate.EventTime
	}
	g.dedup[dk] = now
	g.pruneDedupLocked(now)
	g.metrics.Passed++
	return "", true
}

func (g *Guard) bump(reason domain.DropReason) {
	switch reason {
	case domain.DropFuture:
		g.metrics.DroppedFuture++
	case domain.DropLate:
		g.metrics.DroppedLate++
	case domain.DropOutOfOrder:
		g.metrics.DroppedOutOfOrder++
	case domain.DropDuplicate:
		g.metrics.DroppedDuplicate++
	case domain.DropMalformed:
		g.metrics.DroppedMalformed++
	}
}

// pruneDedupLocked evicts dedup entries whose TTL (per their own source)
// has elapsed, bounding the Dedup Store's size. Caller must hold mu.
func (g *Guard) pruneDedupLocked(now time.Time) {
	if len(g.dedup) < 4096 {
		return
	}
	for dk, firstSeen := range g.dedup {
		if now.Sub(firstSeen) >= dedupTTLs[dk.source] {
			delete(g.dedup, dk)
		}
	}
}

// Metrics returns a snapshot of counts accumulated since the guard was
// created or last reset via ResetMetrics.
func (g *Guard) Metrics() domain.GuardMetrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.metrics
}

// ResetMetrics zeroes the accumulated counters.
func (g *Guard) ResetMetrics() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.metrics = domain.GuardMetrics{}
}
