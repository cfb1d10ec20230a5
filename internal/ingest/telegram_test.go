package ingest

import (
	"context"
	"testing"
	"time"

	"socialcontext/internal/domain"
	"socialcontext/internal/sourceregistry"

	"go.opentelemetry.io/otel/trace/noop"
)

type fakeTelegramFetcher struct{ byEntry map[string][]TelegramMessage }

func (f *fakeTelegramFetcher) FetchRecent(ctx context.Context, entry domain.SourceEntry, max int) ([]TelegramMessage, error) {
	return f.byEntry[entry.Handle], nil
}

func newTelegramTestSources(t *testing.T, handles ...string) *sourceregistry.Registry {
	t.Helper()
	tracer := noop.NewTracerProvider().Tracer("test")
	entries := make([]domain.SourceEntry, 0, len(handles))
	for i, h := range handles {
		entries = append(entries, domain.SourceEntry{ID: h, Source: domain.SourceTelegram, Handle: h, Enabled: true, Priority: len(handles) - i})
	}
	sources := sourceregistry.New(domain.SourceTelegram, &fakeSourceStore{entries: entries}, tracer, time.Hour)
	_ = sources.Start(context.Background())
	return sources
}

func TestTelegramWorkerAcceptsValidMessage(t *testing.T) {
	assets, _ := newTestRegistries(t)
	sources := newTelegramTestSources(t, "crypto_signals")
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeTelegramFetcher{byEntry: map[string][]TelegramMessage{
		"crypto_signals": {{ID: "m1", ChatHandle: "crypto_signals", Text: "bitcoin looking strong", CreatedAt: time.Now(), HasTimestamp: true}},
	}}
	w := NewTelegramWorker(sources, assets, fetcher, sink, tracer)
	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.Accepted != 1 {
		t.Fatalf("expected 1 accepted, got %d (dropped=%v)", metrics.Accepted, metrics.DroppedCounts)
	}
	if sink.submitted[0].ManipulationFlag {
		t.Errorf("single chat must not flag manipulation")
	}
}

func TestTelegramWorkerFlagsCrossChatManipulation(t *testing.T) {
	assets, _ := newTestRegistries(t)
	sources := newTelegramTestSources(t, "chat1", "chat2", "chat3")
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	base := time.Now()
	fetcher := &fakeTelegramFetcher{byEntry: map[string][]TelegramMessage{
		"chat1": {{ID: "m1", ChatHandle: "chat1", Text: "bitcoin to the moon right now", CreatedAt: base, HasTimestamp: true}},
		"chat2": {{ID: "m2", ChatHandle: "chat2", Text: "bitcoin to the moon right now", CreatedAt: base.Add(5 * time.Second), HasTimestamp: true}},
		"chat3": {{ID: "m3", ChatHandle: "chat3", Text: "bitcoin to the moon right now", CreatedAt: base.Add(10 * time.Second), HasTimestamp: true}},
	}}
	w := NewTelegramWorker(sources, assets, fetcher, sink, tracer)
	w.RunCycle(context.Background(), base.Add(11*time.Second))

	var flagged int
	for _, c := range sink.submitted {
		if c.ManipulationFlag {
			flagged++
		}
	}
	if flagged != 1 {
		t.Errorf("expected exactly the third distinct-chat message flagged, got %d flagged of %d", flagged, len(sink.submitted))
	}
}

func TestTelegramWorkerDropsBotAuthored(t *testing.T) {
	assets, _ := newTestRegistries(t)
	sources := newTelegramTestSources(t, "crypto_signals")
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeTelegramFetcher{byEntry: map[string][]TelegramMessage{
		"crypto_signals": {{ID: "m1", ChatHandle: "crypto_signals", Text: "bitcoin update", CreatedAt: time.Now(), HasTimestamp: true, IsBotAuthored: true}},
	}}
	w := NewTelegramWorker(sources, assets, fetcher, sink, tracer)
	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.DroppedCounts[domain.DropBotAuthored] != 1 {
		t.Errorf("expected bot-authored drop, got %v", metrics.DroppedCounts)
	}
}

func TestTelegramWorkerDropsUnknownForward(t *testing.T) {
	assets, _ := newTestRegistries(t)
	sources := newTelegramTestSources(t, "crypto_signals")
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeTelegramFetcher{byEntry: map[string][]TelegramMessage{
		"crypto_signals": {{ID: "m1", ChatHandle: "crypto_signals", Text: "bitcoin forwarded", CreatedAt: time.Now(), HasTimestamp: true, IsForwarded: true, ForwardSourceKnown: false}},
	}}
	w := NewTelegramWorker(sources, assets, fetcher, sink, tracer)
	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.DroppedCounts[domain.DropForwardUnknownSource] != 1 {
		t.Errorf("expected forward-unknown-source drop, got %v", metrics.DroppedCounts)
	}
}
