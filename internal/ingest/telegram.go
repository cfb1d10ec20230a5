package ingest

import (
	"context"
	"strings"
	"time"

	"socialcontext/internal/assetregistry"
	"socialcontext/internal/domain"
	"socialcontext/internal/ratelimit"
	"socialcontext/internal/sourceregistry"

	"go.opentelemetry.io/otel/trace"
)

// TelegramMessage mirrors a fetched message closely enough to evaluate
// every drop reason in spec §4.3 without a worker-internal re-fetch.
type TelegramMessage struct {
	ID                string
	ChatHandle        string
	Text              string
	CreatedAt         time.Time
	HasTimestamp      bool
	IsForwarded       bool
	ForwardSourceKnown bool
	IsBotAuthored     bool
}

// TelegramFetcher retrieves a bounded batch of recent messages for a single
// whitelisted chat (channel or group).
type TelegramFetcher interface {
	FetchRecent(ctx context.Context, entry domain.SourceEntry, max int) ([]TelegramMessage, error)
}

// TelegramWorker implements spec §4.3's Telegram contract: run_cycle(now),
// including the manipulation-detection step unique to this source.
type TelegramWorker struct {
	sources  *sourceregistry.Registry
	assets   *assetregistry.Registry
	fetcher  TelegramFetcher
	pipeline Pipeline
	tracer   trace.Tracer

	globalLimiter *ratelimit.Limiter
	entryLimiters map[string]*ratelimit.Limiter
	velocity      *VelocityTrackerSet
	dedup         *DedupStore
	manipulation  *ManipulationTracker

	perEntryCap int
	batchSize   int
}

// NewTelegramWorker builds a Telegram worker with spec's default caps: 30
// messages/min per chat, 100/min global.
func NewTelegramWorker(sources *sourceregistry.Registry, assets *assetregistry.Registry, fetcher TelegramFetcher, pipeline Pipeline, tracer trace.Tracer) *TelegramWorker {
	return &TelegramWorker{
		sources:       sources,
		assets:        assets,
		fetcher:       fetcher,
		pipeline:      pipeline,
		tracer:        tracer,
		globalLimiter: ratelimit.New(100, time.Minute),
		entryLimiters: make(map[string]*ratelimit.Limiter),
		velocity:      NewVelocityTrackerSet(NewTelegramVelocityTracker),
		dedup:         NewDedupStore(10 * time.Minute),
		manipulation:  NewManipulationTracker(),
		perEntryCap:   30,
		batchSize:     100,
	}
}

func (w *TelegramWorker) limiterFor(handle string) *ratelimit.Limiter {
	l, ok := w.entryLimiters[handle]
	if !ok {
		l = ratelimit.New(w.perEntryCap, time.Minute)
		w.entryLimiters[handle] = l
	}
	return l
}

func (w *TelegramWorker) RunCycle(ctx context.Context, now time.Time) domain.WorkerMetrics {
	ctx, span := w.tracer.Start(ctx, "ingest.telegram.run_cycle")
	defer span.End()

	metrics := domain.WorkerMetrics{Source: domain.SourceTelegram}
	var accepted []domain.CandidateEvent

	for _, entry := range w.sources.EnabledSources() {
		msgs, err := w.fetcher.FetchRecent(ctx, entry, w.batchSize)
		if err != nil {
			metrics.Err = err
			continue
		}
		for _, m := range msgs {
			metrics.Fetched++
			cand, reason, ok := w.evaluate(entry, m, now)
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

func (w *TelegramWorker) evaluate(entry domain.SourceEntry, m TelegramMessage, now time.Time) (domain.CandidateEvent, domain.DropReason, bool) {
	if !w.sources.IsWhitelisted(m.ChatHandle) {
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
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return domain.CandidateEvent{}, domain.DropEmptyText, false
	}
	asset := w.assets.DetectAsset(text)
	if asset == "" {
		return domain.CandidateEvent{}, domain.DropNoAssetKeyword, false
	}
	if !m.HasTimestamp || m.CreatedAt.IsZero() {
		return domain.CandidateEvent{}, domain.DropTimestampMissing, false
	}
	if m.IsForwarded && !m.ForwardSourceKnown {
		return domain.CandidateEvent{}, domain.DropForwardUnknownSource, false
	}
	if m.IsBotAuthored {
		return domain.CandidateEvent{}, domain.DropBotAuthored, false
	}

	fp := Fingerprint(text)
	if w.dedup.SeenRecently(entryKey(domain.SourceTelegram, entry.Handle+"|"+fp), now) {
		return domain.CandidateEvent{}, domain.DropDuplicate, false
	}

	manipulationFlag := w.manipulation.Observe(fp, entry.Handle, m.CreatedAt)
	velocity := w.velocity.Record(entry.Handle+"|"+asset, m.CreatedAt)

	return domain.CandidateEvent{
		Source:            domain.SourceTelegram,
		SourceReliability: domain.SourceReliability[domain.SourceTelegram],
		Asset:             asset,
		EventTime:         m.CreatedAt,
		IngestTime:        now,
		Text:              text,
		Velocity:          velocity,
		ManipulationFlag:  manipulationFlag,
		SourceEntryID:     entry.ID,
		SourceItemID:      m.ID,
	}, "", true
}
