package ingest

import (
	"context"
	"math"
	"strings"
	"time"

	"socialcontext/internal/assetregistry"
	"socialcontext/internal/domain"
	"socialcontext/internal/ratelimit"
	"socialcontext/internal/sourceregistry"

	"go.opentelemetry.io/otel/trace"
)

// Tweet is the shape a Twitter fetcher hands back per item. Fields mirror
// the raw API payload closely enough to evaluate every drop reason in
// spec §4.3 without a worker-internal re-fetch.
type Tweet struct {
	ID                string
	SourceEntryHandle string // the whitelisted account/list/query that produced it
	Text              string
	CreatedAt         time.Time
	HasTimestamp      bool
	Likes             int
	Retweets          int
	Replies           int
	Followers         int
	IsRetweet         bool
	HasQuotedText     bool
	ProtectedAccount  bool
	Promoted          bool
}

// TwitterFetcher retrieves a bounded batch of recent tweets for a single
// whitelisted entry. Implementations wrap the real Twitter/X API client;
// out of scope for this package per spec §1.
type TwitterFetcher interface {
	FetchRecent(ctx context.Context, entry domain.SourceEntry, max int) ([]Tweet, error)
}

// TwitterWorker implements spec §4.3's Twitter contract: run_cycle(now).
type TwitterWorker struct {
	sources  *sourceregistry.Registry
	assets   *assetregistry.Registry
	fetcher  TwitterFetcher
	pipeline Pipeline
	tracer   trace.Tracer

	globalLimiter *ratelimit.Limiter
	entryLimiters map[string]*ratelimit.Limiter
	velocity      *VelocityTrackerSet
	dedup         *DedupStore

	perEntryCap int
	batchSize   int
}

// NewTwitterWorker builds a Twitter worker with spec's default caps: 30
// tweets/min per entry, 500/min global, 60s rolling windows.
func NewTwitterWorker(sources *sourceregistry.Registry, assets *assetregistry.Registry, fetcher TwitterFetcher, pipeline Pipeline, tracer trace.Tracer) *TwitterWorker {
	return &TwitterWorker{
		sources:       sources,
		assets:        assets,
		fetcher:       fetcher,
		pipeline:      pipeline,
		tracer:        tracer,
		globalLimiter: ratelimit.New(500, time.Minute),
		entryLimiters: make(map[string]*ratelimit.Limiter),
		velocity:      NewVelocityTrackerSet(NewTwitterVelocityTracker),
		dedup:         NewDedupStore(5 * time.Minute),
		perEntryCap:   30,
		batchSize:     100,
	}
}

func (w *TwitterWorker) limiterFor(handle string) *ratelimit.Limiter {
	l, ok := w.entryLimiters[handle]
	if !ok {
		l = ratelimit.New(w.perEntryCap, time.Minute)
		w.entryLimiters[handle] = l
	}
	return l
}

// RunCycle fetches from every enabled Twitter source entry, applies the
// ordered drop-reason filters, computes metrics, and hands accepted events
// to the pipeline in ascending event-time order.
func (w *TwitterWorker) RunCycle(ctx context.Context, now time.Time) domain.WorkerMetrics {
	ctx, span := w.tracer.Start(ctx, "ingest.twitter.run_cycle")
	defer span.End()

	metrics := domain.WorkerMetrics{Source: domain.SourceTwitter}
	var accepted []domain.CandidateEvent

	for _, entry := range w.sources.EnabledSources() {
		tweets, err := w.fetcher.FetchRecent(ctx, entry, w.batchSize)
		if err != nil {
			metrics.Err = err
			continue
		}
		for _, tw := range tweets {
			metrics.Fetched++
			cand, reason, ok := w.evaluate(entry, tw, now)
			if !ok {
				recordDrop(&metrics, reason)
				continue
			}
			accepted = append(accepted, cand)
			metrics.Accepted++
		}
	}

	sortByEventTime(accepted)
	for _, cand := range accepted {
		if err := w.pipeline.Submit(ctx, cand); err != nil {
			metrics.Err = err
		}
	}
	return metrics
}

func (w *TwitterWorker) evaluate(entry domain.SourceEntry, tw Tweet, now time.Time) (domain.CandidateEvent, domain.DropReason, bool) {
	if !w.sources.IsWhitelisted(tw.SourceEntryHandle) {
		return domain.CandidateEvent{}, domain.DropNotWhitelisted, false
	}
	if !entry.Enabled {
		return domain.CandidateEvent{}, domain.DropSourceDisabled, false
	}
	if !w.globalLimiter.Allow() {
		return domain.CandidateEvent{}, domain.DropGlobalRateExceeded, false
	}
	if !w.limiterFor(entry.Handle).Allow() {
		return domain.CandidateEvent{}, domain.DropSourceRateExceeded, false
	}
	text := strings.TrimSpace(tw.Text)
	if text == "" {
		return domain.CandidateEvent{}, domain.DropEmptyText, false
	}
	asset := w.assets.DetectAsset(text)
	if asset == "" {
		return domain.CandidateEvent{}, domain.DropNoAssetKeyword, false
	}
	if !tw.HasTimestamp || tw.CreatedAt.IsZero() {
		return domain.CandidateEvent{}, domain.DropTimestampMissing, false
	}
	if tw.IsRetweet && !tw.HasQuotedText {
		return domain.CandidateEvent{}, domain.DropRetweetNoOriginal, false
	}
	if tw.ProtectedAccount {
		return domain.CandidateEvent{}, domain.DropProtectedAccount, false
	}
	if tw.Promoted {
		return domain.CandidateEvent{}, domain.DropPromoted, false
	}
	engagement := tw.Likes + tw.Retweets + tw.Replies
	if engagement == 0 || (tw.Replies == 0 && tw.Likes == 0 && tw.Retweets == 0) {
		return domain.CandidateEvent{}, domain.DropZeroEngagement, false
	}

	fp := Fingerprint(entryKey(domain.SourceTwitter, text))
	if w.dedup.SeenRecently(fp, now) {
		return domain.CandidateEvent{}, domain.DropDuplicate, false
	}

	engagementWeight := math.Log1p(float64(tw.Likes) + 2*float64(tw.Retweets) + float64(tw.Replies))
	authorWeight := math.Log1p(float64(tw.Followers))
	velocity := w.velocity.Record(entry.Handle+"|"+asset, tw.CreatedAt)

	return domain.CandidateEvent{
		Source:            domain.SourceTwitter,
		SourceReliability: domain.SourceReliability[domain.SourceTwitter],
		Asset:             asset,
		EventTime:         tw.CreatedAt,
		IngestTime:        now,
		Text:              text,
		EngagementWeight:  &engagementWeight,
		AuthorWeight:      &authorWeight,
		Velocity:          velocity,
		SourceEntryID:     entry.ID,
		SourceItemID:      tw.ID,
	}, "", true
}

func entryKey(source domain.Source, text string) string {
	return string(source) + "|" + text
}
