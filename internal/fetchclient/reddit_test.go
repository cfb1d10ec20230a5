package fetchclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"socialcontext/internal/domain"
	"socialcontext/internal/ingest"

	"go.opentelemetry.io/otel/trace/noop"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

type fakeRedditHotFetcher struct {
	posts []ingest.RedditPost
	err   error
}

func (f *fakeRedditHotFetcher) FetchHot(ctx context.Context, subreddit string, limit int) ([]ingest.RedditPost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

func TestRedditJSONFetcherFetchRecentDelegates(t *testing.T) {
	fake := &fakeRedditHotFetcher{posts: []ingest.RedditPost{
		{ID: "abc123", Subreddit: "Bitcoin", Title: "BTC breaks out", Score: 10, NumComments: 3, HasID: true, HasScore: true, HasComments: true, HasTimestamp: true},
	}}
	f := &RedditJSONFetcher{provider: fake}

	posts, err := f.FetchRecent(context.Background(), domain.SourceEntry{Handle: "Bitcoin"}, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "abc123" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
}

func TestRedditJSONFetcherFetchRecentPropagatesError(t *testing.T) {
	fake := &fakeRedditHotFetcher{err: errors.New("reddit unavailable")}
	f := &RedditJSONFetcher{provider: fake}

	if _, err := f.FetchRecent(context.Background(), domain.SourceEntry{Handle: "Bitcoin"}, 25); err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestHTTPRedditClientFetchHotParsesChildren(t *testing.T) {
	c := newHTTPRedditClient(noop.NewTracerProvider().Tracer("test"))
	c.baseURL = "https://example.com"
	c.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/r/Bitcoin/hot.json" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if ua := req.Header.Get("User-Agent"); ua == "" {
			t.Fatal("expected a User-Agent header")
		}
		body := `{"data":{"children":[{"data":{"id":"abc123","title":"BTC breaks out","selftext":"bullish","author":"alice","created_utc":1771009800,"score":10,"num_comments":3}}]}}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
		}, nil
	})}

	posts, err := c.FetchHot(context.Background(), "Bitcoin", 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	p := posts[0]
	if p.ID != "abc123" || p.Subreddit != "Bitcoin" || p.Score != 10 || p.NumComments != 3 {
		t.Fatalf("unexpected post: %+v", p)
	}
	if !p.HasID || !p.HasScore || !p.HasComments || !p.HasTimestamp {
		t.Fatalf("expected all presence flags set, got %+v", p)
	}
}

func TestHTTPRedditClientFetchHotRejectsEmptySubreddit(t *testing.T) {
	c := newHTTPRedditClient(noop.NewTracerProvider().Tracer("test"))
	if _, err := c.FetchHot(context.Background(), "  ", 10); err == nil {
		t.Fatal("expected error for empty subreddit")
	}
}

func TestHTTPRedditClientFetchHotPropagatesHTTPError(t *testing.T) {
	c := newHTTPRedditClient(noop.NewTracerProvider().Tracer("test"))
	c.baseURL = "https://example.com"
	c.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(bytes.NewBufferString("rate limited")),
			Header:     make(http.Header),
		}, nil
	})}

	if _, err := c.FetchHot(context.Background(), "Bitcoin", 10); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
