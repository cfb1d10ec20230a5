package dqm

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialcontext/internal/domain"
)

type captureQualityStore struct {
	events []domain.DataQualityEvent
	err    error
}

func (c *captureQualityStore) InsertQualityEvent(ctx context.Context, q domain.DataQualityEvent) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, q)
	return nil
}

type captureAlertEvaluator struct {
	alerts []domain.Alert
}

func (c *captureAlertEvaluator) Evaluate(ctx context.Context, alert domain.Alert) error {
	c.alerts = append(c.alerts, alert)
	return nil
}

func TestSchedulerAdapterTickPersistsEvent(t *testing.T) {
	m := newTestMonitor()
	store := &captureQualityStore{}
	adapter := NewSchedulerAdapter(m, store, nil)

	if err := adapter.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(store.events))
	}
}

func TestSchedulerAdapterTickPropagatesStoreError(t *testing.T) {
	m := newTestMonitor()
	store := &captureQualityStore{err: errors.New("db down")}
	adapter := NewSchedulerAdapter(m, store, nil)

	if err := adapter.Tick(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error from store failure")
	}
}

func TestSchedulerAdapterTickEvaluatesQualityAlertsWhenCritical(t *testing.T) {
	m := newTestMonitor()
	store := &captureQualityStore{}
	alerts := &captureAlertEvaluator{}
	adapter := NewSchedulerAdapter(m, store, alerts)

	now := time.Now()
	// never seen any source: availability down -> overall critical
	if err := adapter.Tick(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts.alerts) == 0 {
		t.Fatal("expected at least one quality alert evaluated for a critical/down state")
	}
}

func TestSchedulerAdapterTickSkipsAlertsWhenEvaluatorNil(t *testing.T) {
	m := newTestMonitor()
	store := &captureQualityStore{}
	adapter := NewSchedulerAdapter(m, store, nil)

	if err := adapter.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
