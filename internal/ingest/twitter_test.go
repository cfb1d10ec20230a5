package ingest

import (
	"context"
	"testing"
	"time"

	"socialcontext/internal/assetregistry"
	"socialcontext/internal/domain"
	"socialcontext/internal/sourceregistry"

	"go.opentelemetry.io/otel/trace/noop"
)

type fakeAssetStore struct{ assets []domain.Asset }

func (f *fakeAssetStore) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return f.assets, nil
}

type fakeSourceStore struct{ entries []domain.SourceEntry }

func (f *fakeSourceStore) ListSourceEntries(ctx context.Context, source domain.Source) ([]domain.SourceEntry, error) {
	return f.entries, nil
}

type fakeTwitterFetcher struct {
	byEntry map[string][]Tweet
}

func (f *fakeTwitterFetcher) FetchRecent(ctx context.Context, entry domain.SourceEntry, max int) ([]Tweet, error) {
	return f.byEntry[entry.Handle], nil
}

type captureSink struct{ submitted []domain.CandidateEvent }

func (c *captureSink) Submit(ctx context.Context, candidate domain.CandidateEvent) error {
	c.submitted = append(c.submitted, candidate)
	return nil
}

func newTestRegistries(t *testing.T) (*assetregistry.Registry, *sourceregistry.Registry) {
	t.Helper()
	tracer := noop.NewTracerProvider().Tracer("test")
	assets := assetregistry.New(&fakeAssetStore{assets: []domain.Asset{
		{Symbol: "BTC", Keywords: []string{"btc", "bitcoin"}, Active: true, Priority: 10},
	}}, tracer, time.Hour)
	if err := assets.Start(context.Background()); err != nil {
		t.Fatalf("assets.Start: %v", err)
	}
	sources := sourceregistry.New(domain.SourceTwitter, &fakeSourceStore{entries: []domain.SourceEntry{
		{ID: "e1", Source: domain.SourceTwitter, Handle: "whale_alert", Enabled: true, Priority: 1},
	}}, tracer, time.Hour)
	if err := sources.Start(context.Background()); err != nil {
		t.Fatalf("sources.Start: %v", err)
	}
	return assets, sources
}

func TestTwitterWorkerAcceptsValidTweet(t *testing.T) {
	assets, sources := newTestRegistries(t)
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeTwitterFetcher{byEntry: map[string][]Tweet{
		"whale_alert": {{
			ID: "1", SourceEntryHandle: "whale_alert", Text: "$BTC moon breakout!",
			CreatedAt: time.Now().Add(-5 * time.Second), HasTimestamp: true,
			Likes: 100, Retweets: 50, Replies: 25, Followers: 5000,
		}},
	}}
	w := NewTwitterWorker(sources, assets, fetcher, sink, tracer)

	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.Accepted != 1 {
		t.Fatalf("expected 1 accepted, got %d (dropped=%v)", metrics.Accepted, metrics.DroppedCounts)
	}
	if len(sink.submitted) != 1 {
		t.Fatalf("expected 1 submitted candidate")
	}
	if sink.submitted[0].Asset != "BTC" {
		t.Errorf("expected asset BTC, got %s", sink.submitted[0].Asset)
	}
}

func TestTwitterWorkerDropsZeroEngagement(t *testing.T) {
	assets, sources := newTestRegistries(t)
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeTwitterFetcher{byEntry: map[string][]Tweet{
		"whale_alert": {{
			ID: "1", SourceEntryHandle: "whale_alert", Text: "$BTC to the moon",
			CreatedAt: time.Now(), HasTimestamp: true,
		}},
	}}
	w := NewTwitterWorker(sources, assets, fetcher, sink, tracer)

	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.Accepted != 0 {
		t.Fatalf("expected 0 accepted, got %d", metrics.Accepted)
	}
	if metrics.DroppedCounts[domain.DropZeroEngagement] != 1 {
		t.Errorf("expected zero-engagement drop, got %v", metrics.DroppedCounts)
	}
}

func TestTwitterWorkerDropsUnwhitelistedHandle(t *testing.T) {
	assets, sources := newTestRegistries(t)
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeTwitterFetcher{byEntry: map[string][]Tweet{
		"rogue_account": {{
			ID: "1", SourceEntryHandle: "rogue_account", Text: "$BTC pump", CreatedAt: time.Now(),
			HasTimestamp: true, Likes: 10,
		}},
	}}
	w := NewTwitterWorker(sources, assets, fetcher, sink, tracer)
	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.Accepted != 0 || metrics.Fetched != 0 {
		t.Fatalf("unwhitelisted handle should never be fetched in the first place: %+v", metrics)
	}
}

func TestTwitterWorkerSortsAcceptedByEventTime(t *testing.T) {
	assets, sources := newTestRegistries(t)
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	later := time.Now()
	earlier := later.Add(-time.Minute)
	fetcher := &fakeTwitterFetcher{byEntry: map[string][]Tweet{
		"whale_alert": {
			{ID: "1", SourceEntryHandle: "whale_alert", Text: "$BTC second", CreatedAt: later, HasTimestamp: true, Likes: 5},
			{ID: "2", SourceEntryHandle: "whale_alert", Text: "$BTC first", CreatedAt: earlier, HasTimestamp: true, Likes: 5},
		},
	}}
	w := NewTwitterWorker(sources, assets, fetcher, sink, tracer)
	w.RunCycle(context.Background(), later.Add(time.Second))

	if len(sink.submitted) != 2 {
		t.Fatalf("expected 2 submitted, got %d", len(sink.submitted))
	}
	if sink.submitted[0].EventTime.After(sink.submitted[1].EventTime) {
		t.Errorf("expected ascending event-time order")
	}
}
