package ingest

import (
	"context"
	"sort"

	"socialcontext/internal/domain"
)

// Pipeline is what a worker hands accepted candidates to: the Time-Sync
// Guard followed by the enrichment pipeline (§2's data-flow diagram). The
// worker's job ends at the handoff; it never waits for guard/enrichment
// results beyond the error they return for metrics purposes.
type Pipeline interface {
	Submit(ctx context.Context, candidate domain.CandidateEvent) error
}

// sortByEventTime reorders candidates ascending by event time, the one
// reordering point spec §4.3 permits ("out-of-order items within a batch
// are reordered at this boundary only").
func sortByEventTime(candidates []domain.CandidateEvent) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EventTime.Before(candidates[j].EventTime)
	})
}

// recordDrop bumps the counter for reason in metrics, allocating the map on
// first use.
func recordDrop(metrics *domain.WorkerMetrics, reason domain.DropReason) {
	if metrics.DroppedCounts == nil {
		metrics.DroppedCounts = make(map[domain.DropReason]int)
	}
	metrics.DroppedCounts[reason]++
}
