package ingest

import (
	"context"
	"testing"
	"time"

	"socialcontext/internal/domain"
	"socialcontext/internal/sourceregistry"

	"go.opentelemetry.io/otel/trace/noop"
)

type fakeRedditFetcher struct{ byEntry map[string][]RedditPost }

func (f *fakeRedditFetcher) FetchRecent(ctx context.Context, entry domain.SourceEntry, max int) ([]RedditPost, error) {
	return f.byEntry[entry.Handle], nil
}

func newRedditTestSources(t *testing.T) *sourceregistry.Registry {
	t.Helper()
	tracer := noop.NewTracerProvider().Tracer("test")
	sources := sourceregistry.New(domain.SourceReddit, &fakeSourceStore{entries: []domain.SourceEntry{
		{ID: "e1", Source: domain.SourceReddit, Handle: "CryptoCurrency", Enabled: true, Priority: 1},
	}}, tracer, time.Hour)
	_ = sources.Start(context.Background())
	return sources
}

func TestRedditWorkerAcceptsValidPost(t *testing.T) {
	assets, _ := newTestRegistries(t)
	sources := newRedditTestSources(t)
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeRedditFetcher{byEntry: map[string][]RedditPost{
		"CryptoCurrency": {{
			ID: "p1", Subreddit: "CryptoCurrency", Title: "BTC breaking out", Body: "bullish setup",
			HasID: true, HasScore: true, HasComments: true, Author: "trader1",
			Score: 50, NumComments: 10, AuthorKarma: 1000,
			CreatedAt: time.Now().Add(-time.Minute), HasTimestamp: true,
		}},
	}}
	w := NewRedditWorker(sources, assets, fetcher, sink, tracer)
	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.Accepted != 1 {
		t.Fatalf("expected 1 accepted, got %d (dropped=%v)", metrics.Accepted, metrics.DroppedCounts)
	}
}

func TestRedditWorkerDropsRemovedBody(t *testing.T) {
	assets, _ := newTestRegistries(t)
	sources := newRedditTestSources(t)
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeRedditFetcher{byEntry: map[string][]RedditPost{
		"CryptoCurrency": {{
			ID: "p1", Subreddit: "CryptoCurrency", Title: "BTC thread", Body: "[removed]",
			HasID: true, HasScore: true, HasComments: true, Author: "trader1",
			Score: 50, NumComments: 10, CreatedAt: time.Now(), HasTimestamp: true,
		}},
	}}
	w := NewRedditWorker(sources, assets, fetcher, sink, tracer)
	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.DroppedCounts[domain.DropBodyRemoved] != 1 {
		t.Errorf("expected body-removed drop, got %v", metrics.DroppedCounts)
	}
}

func TestRedditWorkerDropsNoAssetKeywordBeforeBodyRemoved(t *testing.T) {
	assets, _ := newTestRegistries(t)
	sources := newRedditTestSources(t)
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeRedditFetcher{byEntry: map[string][]RedditPost{
		"CryptoCurrency": {{
			ID: "p1", Subreddit: "CryptoCurrency", Title: "random thread", Body: "[removed]",
			HasID: true, HasScore: true, HasComments: true, Author: "trader1",
			Score: 50, NumComments: 10, CreatedAt: time.Now(), HasTimestamp: true,
		}},
	}}
	w := NewRedditWorker(sources, assets, fetcher, sink, tracer)
	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.DroppedCounts[domain.DropNoAssetKeyword] != 1 {
		t.Errorf("spec §4.3 lists no-asset-keyword before body-removed; expected DropNoAssetKeyword, got %v", metrics.DroppedCounts)
	}
	if metrics.DroppedCounts[domain.DropBodyRemoved] != 0 {
		t.Errorf("expected body-removed not to fire when asset keyword already absent, got %v", metrics.DroppedCounts)
	}
}

func TestRedditWorkerDropsNonPositiveScore(t *testing.T) {
	assets, _ := newTestRegistries(t)
	sources := newRedditTestSources(t)
	tracer := noop.NewTracerProvider().Tracer("test")
	sink := &captureSink{}
	fetcher := &fakeRedditFetcher{byEntry: map[string][]RedditPost{
		"CryptoCurrency": {{
			ID: "p1", Subreddit: "CryptoCurrency", Title: "BTC dump incoming", Body: "bearish",
			HasID: true, HasScore: true, HasComments: true, Author: "trader1",
			Score: 0, NumComments: 10, CreatedAt: time.Now(), HasTimestamp: true,
		}},
	}}
	w := NewRedditWorker(sources, assets, fetcher, sink, tracer)
	metrics := w.RunCycle(context.Background(), time.Now())
	if metrics.DroppedCounts[domain.DropNonPositiveScore] != 1 {
		t.Errorf("expected non-positive-score drop, got %v", metrics.DroppedCounts)
	}
}
