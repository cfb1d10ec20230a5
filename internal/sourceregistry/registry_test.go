package sourceregistry

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialcontext/internal/domain"

	"go.opentelemetry.io/otel/trace/noop"
)

type fakeStore struct {
	entries []domain.SourceEntry
	err     error
}

func (f *fakeStore) ListSourceEntries(ctx context.Context, source domain.Source) ([]domain.SourceEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func TestIsWhitelistedHonorsEnabled(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	store := &fakeStore{entries: []domain.SourceEntry{
		{ID: "1", Source: domain.SourceReddit, Handle: "CryptoCurrency", Enabled: true, Priority: 5},
		{ID: "2", Source: domain.SourceReddit, Handle: "SomeDisabledSub", Enabled: false, Priority: 1},
	}}
	reg := New(domain.SourceReddit, store, tracer, time.Hour)
	if err := reg.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if !reg.IsWhitelisted("cryptocurrency") {
		t.Errorf("expected whitelisted (case-insensitive)")
	}
	if reg.IsWhitelisted("SomeDisabledSub") {
		t.Errorf("disabled entry must behave as absent")
	}
	if reg.IsWhitelisted("unknown") {
		t.Errorf("unknown handle must not be whitelisted")
	}
}

func TestEnabledSourcesOrderedByPriority(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	store := &fakeStore{entries: []domain.SourceEntry{
		{ID: "1", Handle: "low", Enabled: true, Priority: 1},
		{ID: "2", Handle: "high", Enabled: true, Priority: 10},
		{ID: "3", Handle: "disabled", Enabled: false, Priority: 99},
	}}
	reg := New(domain.SourceTwitter, store, tracer, time.Hour)
	_ = reg.Start(context.Background())

	entries := reg.EnabledSources()
	if len(entries) != 2 {
		t.Fatalf("expected 2 enabled entries, got %d", len(entries))
	}
	if entries[0].Handle != "high" {
		t.Errorf("expected high priority first, got %s", entries[0].Handle)
	}
}

func TestReloadFailurePreservesWhitelist(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	store := &fakeStore{entries: []domain.SourceEntry{
		{ID: "1", Handle: "account1", Enabled: true, Priority: 1},
	}}
	reg := New(domain.SourceTwitter, store, tracer, time.Hour)
	_ = reg.Start(context.Background())

	store.err = errors.New("db down")
	if err := reg.Reload(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if !reg.IsWhitelisted("account1") {
		t.Fatalf("expected previous whitelist to survive failed reload")
	}
}
