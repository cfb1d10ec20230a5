package enrich

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"socialcontext/internal/domain"
	"socialcontext/internal/timesync"

	"go.opentelemetry.io/otel/trace"
)

// Store is the transactional sink for the three per-event rows the
// pipeline writes in fixed order (spec §4.5/§4.6). A single call covers
// all three so a partial write — e.g. a raw event with no matching
// sentiment row — can never be observed.
type Store interface {
	InsertEnrichedEvent(ctx context.Context, raw domain.RawEvent, sentiment domain.SentimentEvent, risk domain.RiskIndicatorEvent) (inserted bool, err error)
}

// DQMObserver is the Data-Quality Monitor's event-facing interface: every
// event that clears or is dropped by the guard is reported here so DQM can
// maintain its rolling dimensions (§4.7) without the pipeline knowing
// anything about DQM's internals.
type DQMObserver interface {
	ObserveAccepted(source domain.Source, eventTime time.Time, risk domain.RiskIndicatorEvent)
	ObserveDropped(source domain.Source, reason domain.DropReason)
}

// FearGreedSource supplies the optional externally-fetched fear & greed
// index for the risk stage (spec §4.5: "optional external input").
type FearGreedSource interface {
	Latest() *int
}

// AlertNotifier is the Alerter's event-facing interface: every accepted
// event's risk indicators are reported here so risk-triggered alerts
// (social overheat, panic, FOMO, extreme emotion per spec §4.8) can fire
// immediately rather than waiting for the DQM's own cadence. May be nil.
type AlertNotifier interface {
	NotifyRisk(ctx context.Context, asset string, risk domain.RiskIndicatorEvent)
}

// Pipeline wires the Time-Sync Guard and the Stage 2/3 enrichment
// computations into the single Submit entry point ingestion workers call
// (internal/ingest.Pipeline). Data flow: Guard -> Raw -> Sentiment -> Risk
// -> DQM observation, exactly the §2 diagram.
type Pipeline struct {
	guard     *timesync.Guard
	sentiment *SentimentStage
	risk      *RiskStage
	store     Store
	dqm       DQMObserver
	fearGreed FearGreedSource
	alerts    AlertNotifier
	tracer    trace.Tracer
	nowFunc   func() time.Time
}

// NewPipeline builds a Pipeline. fearGreed may be nil (no externally
// supplied index configured); dqm and alerts may be nil in tests.
func NewPipeline(guard *timesync.Guard, sentiment *SentimentStage, risk *RiskStage, store Store, dqm DQMObserver, fearGreed FearGreedSource, tracer trace.Tracer) *Pipeline {
	return &Pipeline{
		guard:     guard,
		sentiment: sentiment,
		risk:      risk,
		store:     store,
		dqm:       dqm,
		fearGreed: fearGreed,
		tracer:    tracer,
		nowFunc:   time.Now,
	}
}

// WithAlertNotifier attaches the Alerter so accepted events' risk
// indicators are reported as they're written, not just on the DQM's
// own tick cadence. Returns the pipeline for chaining at construction time.
func (p *Pipeline) WithAlertNotifier(notifier AlertNotifier) *Pipeline {
	p.alerts = notifier
	return p
}

// Submit runs one candidate event through the guard and, if accepted,
// through the sentiment and risk stages, then writes all three rows
// transactionally. A fingerprint collision at the store aborts the event
// silently (spec §4.5 Stage 1) and is not reported as an error.
func (p *Pipeline) Submit(ctx context.Context, candidate domain.CandidateEvent) error {
	ctx, span := p.tracer.Start(ctx, "enrich.pipeline.submit")
	defer span.End()

	now := p.nowFunc()
	reason, accepted := p.guard.Evaluate(candidate, now)
	if !accepted {
		if p.dqm != nil {
			p.dqm.ObserveDropped(candidate.Source, reason)
		}
		return nil
	}

	raw := domain.RawEvent{
		Source:            candidate.Source,
		SourceReliability: candidate.SourceReliability,
		Asset:             candidate.Asset,
		EventTime:         candidate.EventTime,
		IngestTime:        candidate.IngestTime,
		Text:              candidate.Text,
		EngagementWeight:  candidate.EngagementWeight,
		AuthorWeight:      candidate.AuthorWeight,
		Velocity:          candidate.Velocity,
		ManipulationFlag:  candidate.ManipulationFlag,
		Fingerprint:       rawFingerprint(candidate.Source, candidate.Text, candidate.EventTime),
	}

	sentimentEvent := p.sentiment.Score(ctx, candidate.Text)
	sentimentEvent.EventTime = candidate.EventTime

	var fgi *int
	if p.fearGreed != nil {
		fgi = p.fearGreed.Latest()
	}
	riskEvent := p.risk.Compute(RiskInput{
		SentimentLabel:      sentimentEvent.FinalLabel,
		SentimentConfidence: sentimentEvent.FinalConfidence,
		Velocity:            candidate.Velocity,
		ManipulationFlag:    candidate.ManipulationFlag,
		FearGreedIndex:      fgi,
	})
	riskEvent.EventTime = candidate.EventTime

	inserted, err := p.store.InsertEnrichedEvent(ctx, raw, sentimentEvent, riskEvent)
	if err != nil {
		return fmt.Errorf("enrich: insert event: %w", err)
	}
	if !inserted {
		return nil // duplicate fingerprint: silently dropped, not an error
	}

	if p.dqm != nil {
		p.dqm.ObserveAccepted(candidate.Source, candidate.EventTime, riskEvent)
	}
	if p.alerts != nil {
		p.alerts.NotifyRisk(ctx, candidate.Asset, riskEvent)
	}
	return nil
}

// rawFingerprint hashes source + text + event_time truncated to the
// second, per spec §4.5 Stage 1 ("computed from source, text, and
// truncated event_time"). This is distinct from internal/ingest's
// content-normalization fingerprint used for manipulation detection and
// worker-level pre-filter dedup — this one guards the Event Store's unique
// constraint, not upstream re-delivery.
func rawFingerprint(source domain.Source, text string, eventTime time.Time) string {
	truncated := eventTime.Truncate(time.Second).UTC().Format(time.RFC3339)
	sum := md5.Sum([]byte(string(source) + "|" + text + "|" + truncated))
	return hex.EncodeToString(sum[:])
}
