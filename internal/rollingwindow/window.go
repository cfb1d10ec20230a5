// Package rollingwindow implements the bounded timestamped ring buffer used
// throughout the pipeline: mention-velocity trackers and the Data-Quality
// Monitor's five dimensions.
// Grounded directly on original_source/data_quality_monitor.py's
// RollingWindow (add_event / _prune(cutoff) / get_count / get_events).
package rollingwindow

import (
	"sync"
	"time"
)

// Window holds event timestamps within a sliding duration, pruning entries
// older than the window on every access. Safe for concurrent use, but
// ownership is still single-writer per spec §3/§5 — each ingestion worker
// or monitor owns its own Window.
type Window struct {
	mu     sync.Mutex
	span   time.Duration
	events []time.Time
}

// New builds a Window covering the trailing span duration.
func New(span time.Duration) *Window {
	return &Window{span: span}
}

// Add records an event at ts. Events are expected in non-decreasing ts
// order: pruning only drops the leading run of expired events, so an
// expired event stored behind a newer one is kept and still counted.
func (w *Window) Add(ts time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ts)
}

// Count returns how many events fall within span of reference.
func (w *Window) Count(reference time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(reference)
	return len(w.events)
}

// CountWindow returns how many events fall within the given window
// (which may be shorter than the Window's configured span) ending at
// reference.
func (w *Window) CountWindow(reference time.Time, window time.Duration) int {
	cutoff := reference.Add(-window)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(reference)
	count := 0
	for _, ts := range w.events {
		if !ts.Before(cutoff) && !ts.After(reference) {
			count++
		}
	}
	return count
}

// pruneLocked drops events older than span relative to reference. Caller
// must hold mu.
func (w *Window) pruneLocked(reference time.Time) {
	cutoff := reference.Add(-w.span)
	i := 0
	for i < len(w.events) && w.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		w.events = w.events[i:]
	}
}

// SecondsSinceLast returns the seconds elapsed between the most recent
// event and reference, or -1 if the window is empty.
func (w *Window) SecondsSinceLast(reference time.Time) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.events) == 0 {
		return -1
	}
	last := w.events[len(w.events)-1]
	return reference.Sub(last).Seconds()
}

// Len returns the current number of retained events without pruning.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}
