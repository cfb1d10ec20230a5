package dqm

import (
	"context"
	"fmt"
	"time"

	"socialcontext/internal/alerter"
	"socialcontext/internal/domain"
)

// QualityStore persists one emitted Data Quality Event, for the §6 read
// interface's aggregation query to later replay (internal/eventstore).
type QualityStore interface {
	InsertQualityEvent(ctx context.Context, q domain.DataQualityEvent) error
}

// AlertEvaluator sends one already-triggered alert, subject to its own
// dedup/rate-limit bookkeeping (internal/alerter.Alerter).
type AlertEvaluator interface {
	Evaluate(ctx context.Context, alert domain.Alert) error
}

// SchedulerAdapter wraps a Monitor into internal/scheduler.QualityUpdater:
// each tick emits one Data Quality Event, persists it, and evaluates the
// quality-trigger rules (spec §4.8) against both the aggregated event and
// each source's individual availability.
type SchedulerAdapter struct {
	monitor *Monitor
	store   QualityStore
	alerts  AlertEvaluator
}

// NewSchedulerAdapter builds a SchedulerAdapter. alerts may be nil, in
// which case quality-triggered alerts are silently skipped (e.g. no
// outbound transport configured).
func NewSchedulerAdapter(monitor *Monitor, store QualityStore, alerts AlertEvaluator) *SchedulerAdapter {
	return &SchedulerAdapter{monitor: monitor, store: store, alerts: alerts}
}

// Tick implements scheduler.QualityUpdater.
func (a *SchedulerAdapter) Tick(ctx context.Context, now time.Time) error {
	event := a.monitor.Emit(now)

	if err := a.store.InsertQualityEvent(ctx, event); err != nil {
		return fmt.Errorf("dqm: insert quality event: %w", err)
	}

	if a.alerts == nil {
		return nil
	}
	perSource := a.monitor.PerSourceAvailability(now)
	for _, alert := range alerter.QualityTriggers(event, perSource) {
		if err := a.alerts.Evaluate(ctx, alert); err != nil {
			return fmt.Errorf("dqm: evaluate quality alert: %w", err)
		}
	}
	return nil
}
