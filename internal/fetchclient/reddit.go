package fetchclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socialcontext/internal/domain"
	"socialcontext/internal/ingest"

	"go.opentelemetry.io/otel/trace"
)

const (
	redditBaseURL     = "https://www.reddit.com"
	defaultRedditUA   = "socialcontext/1.0 (+https://github.com/scaryPonens/socialcontext)"
	defaultRedditSize = 40
)

// redditHotFetcher is the subset this adapter needs, narrowed for testability.
type redditHotFetcher interface {
	FetchHot(ctx context.Context, subreddit string, limit int) ([]ingest.RedditPost, error)
}

// httpRedditClient hits a subreddit's public hot.json listing and shapes
// each row directly into ingest.RedditPost — the worker's drop-reason
// checks (spec §4.3: missing fields, deleted author, removed body) read
// straight off fields this decode populates, with no provider-agnostic
// intermediate in between.
type httpRedditClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	tracer    trace.Tracer
}

func newHTTPRedditClient(tracer trace.Tracer) *httpRedditClient {
	return &httpRedditClient{
		client:    &http.Client{Timeout: 20 * time.Second},
		baseURL:   redditBaseURL,
		userAgent: defaultRedditUA,
		tracer:    tracer,
	}
}

func (c *httpRedditClient) FetchHot(ctx context.Context, subreddit string, limit int) ([]ingest.RedditPost, error) {
	_, span := c.tracer.Start(ctx, "fetchclient.reddit.fetch-hot")
	defer span.End()

	subreddit = strings.TrimSpace(subreddit)
	if subreddit == "" {
		return nil, fmt.Errorf("fetchclient: subreddit is required")
	}
	if limit <= 0 {
		limit = defaultRedditSize
	}
	if limit > 100 {
		limit = 100
	}

	base := strings.TrimRight(c.baseURL, "/")
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", base, url.PathEscape(subreddit), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchclient: fetch reddit r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetchclient: reddit API error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					ID          string  `json:"id"`
					Title       string  `json:"title"`
					SelfText    string  `json:"selftext"`
					Author      string  `json:"author"`
					CreatedUTC  float64 `json:"created_utc"`
					Score       float64 `json:"score"`
					NumComments float64 `json:"num_comments"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fetchclient: decode reddit response: %w", err)
	}

	posts := make([]ingest.RedditPost, 0, len(payload.Data.Children))
	for _, row := range payload.Data.Children {
		d := row.Data
		createdAt := time.Unix(int64(d.CreatedUTC), 0).UTC()
		posts = append(posts, ingest.RedditPost{
			ID:           d.ID,
			Subreddit:    subreddit,
			Title:        sanitizeRedditText(d.Title, 300),
			Body:         sanitizeRedditText(d.SelfText, 420),
			HasID:        d.ID != "",
			HasScore:     true,
			HasComments:  true,
			Author:       sanitizeRedditText(d.Author, 120),
			Score:        int(d.Score),
			NumComments:  int(d.NumComments),
			CreatedAt:    createdAt,
			HasTimestamp: d.CreatedUTC > 0,
		})
	}
	return posts, nil
}

func sanitizeRedditText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.ReplaceAll(in, "\n", " ")
	in = strings.ReplaceAll(in, "\r", " ")
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = in[:maxLen]
	}
	return in
}

// RedditJSONFetcher adapts the hot-listing client into ingest.RedditFetcher.
type RedditJSONFetcher struct {
	provider redditHotFetcher
}

// NewRedditJSONFetcher builds a fetcher over a fresh reddit client.
func NewRedditJSONFetcher(tracer trace.Tracer) *RedditJSONFetcher {
	return &RedditJSONFetcher{provider: newHTTPRedditClient(tracer)}
}

// FetchRecent implements ingest.RedditFetcher.
func (f *RedditJSONFetcher) FetchRecent(ctx context.Context, entry domain.SourceEntry, max int) ([]ingest.RedditPost, error) {
	return f.provider.FetchHot(ctx, entry.Handle, max)
}
