package ingest

import (
	"sync"
	"time"
)

// DedupStore is the per-source rolling fingerprint → first-seen map from
// spec §3 ("Dedup Store"), used by each worker to drop content re-fetched
// from an upstream that has already been handed to the pipeline. This is
// distinct from the Time-Sync Guard's own duplicate check (§4.4 step 5),
// which keys on (source, asset, event_time, text) rather than fingerprint —
// the two dedup layers catch different failure modes (upstream re-delivery
// vs. a malformed/replayed event slipping past the worker) and are owned
// independently per spec §3's ownership rule.
type DedupStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

// NewDedupStore builds a store that treats a fingerprint as stale again
// after ttl has elapsed since it was first observed.
func NewDedupStore(ttl time.Duration) *DedupStore {
	return &DedupStore{ttl: ttl, seen: make(map[string]time.Time)}
}

// SeenRecently reports whether fingerprint was already observed within ttl
// of now, and records it as seen if not.
func (d *DedupStore) SeenRecently(fingerprint string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneLocked(now)
	if firstSeen, ok := d.seen[fingerprint]; ok && now.Sub(firstSeen) < d.ttl {
		return true
	}
	d.seen[fingerprint] = now
	return false
}

func (d *DedupStore) pruneLocked(now time.Time) {
	if len(d.seen) < 4096 {
		return
	}
	for fp, firstSeen := range d.seen {
		if now.Sub(firstSeen) >= d.ttl {
			delete(d.seen, fp)
		}
	}
}
