// Package contextquery implements the §6 read interface's validation and
// aggregation rules as pure, DB-agnostic logic, shared by internal/handler's
// HTTP shim and internal/mcpserver's tool so the two outward surfaces can
// never disagree on semantics.
package contextquery

import (
	"errors"
	"fmt"
	"time"

	"socialcontext/internal/domain"
)

const (
	// MinWindow and MaxWindow bound t_until - t_since per spec §6.
	MinWindow = 30 * time.Second
	MaxWindow = 300 * time.Second
)

// ValidSources is the closed set of sources the read interface accepts.
var ValidSources = map[domain.Source]bool{
	domain.SourceTwitter:  true,
	domain.SourceReddit:   true,
	domain.SourceTelegram: true,
}

// Query is one validated read-interface request.
type Query struct {
	Asset   string
	Sources []domain.Source
	Since   time.Time
	Until   time.Time
}

// Validate checks the §6 constraints: t_since < t_until, window in
// [30s, 300s], sources a non-empty subset of {twitter, reddit, telegram}.
func Validate(asset string, sources []domain.Source, since, until time.Time) (Query, error) {
	if asset == "" {
		return Query{}, errors.New("contextquery: asset is required")
	}
	if !since.Before(until) {
		return Query{}, errors.New("contextquery: t_since must be before t_until")
	}
	window := until.Sub(since)
	if window < MinWindow || window > MaxWindow {
		return Query{}, fmt.Errorf("contextquery: window %s outside [%s, %s]", window, MinWindow, MaxWindow)
	}
	if len(sources) == 0 {
		return Query{}, errors.New("contextquery: sources must be non-empty")
	}
	for _, s := range sources {
		if !ValidSources[s] {
			return Query{}, fmt.Errorf("contextquery: unsupported source %q", s)
		}
	}
	return Query{Asset: asset, Sources: sources, Since: since, Until: until}, nil
}

// Aggregate computes the §6 aggregated object from the raw records and
// quality events a query returned.
//
//   - sentiment label: the source-reliability-weighted majority across
//     records; sentiment confidence: the mean confidence.
//   - risk booleans: logical OR across records; scalar fear/greed fields
//     come from the most recent record.
//   - data-quality fields: the worst status across quality events in the
//     window.
func Aggregate(q Query, records []domain.ContextRecord, quality []domain.DataQualityEvent) domain.ContextResult {
	result := domain.ContextResult{
		Asset:       q.Asset,
		RecordCount: len(records),
		Window:      domain.ContextWindow{Since: q.Since, Until: q.Until},
	}

	result.Sentiment = aggregateSentiment(records)
	result.RiskIndicators = aggregateRisk(records)
	result.DataQuality = aggregateQuality(quality)
	return result
}

func aggregateSentiment(records []domain.ContextRecord) domain.AggregatedSentiment {
	if len(records) == 0 {
		return domain.AggregatedSentiment{}
	}

	weightByLabel := make(map[domain.SentimentLabel]float64)
	var confidenceSum float64
	for _, r := range records {
		weightByLabel[r.SentimentLabel] += r.SourceReliability
		confidenceSum += r.SentimentConfidence
	}

	var winner domain.SentimentLabel
	var winnerWeight float64 = -1
	// Deterministic tie-break: iterate labels in a fixed order.
	for _, label := range []domain.SentimentLabel{1, 0, -1} {
		if w, ok := weightByLabel[label]; ok && w > winnerWeight {
			winner = label
			winnerWeight = w
		}
	}

	return domain.AggregatedSentiment{
		Label:      winner,
		Confidence: confidenceSum / float64(len(records)),
	}
}

func aggregateRisk(records []domain.ContextRecord) domain.AggregatedRiskIndicators {
	var out domain.AggregatedRiskIndicators
	var latest *domain.ContextRecord
	for i := range records {
		r := &records[i]
		out.SocialOverheat = out.SocialOverheat || r.SocialOverheat
		out.PanicRisk = out.PanicRisk || r.PanicRisk
		out.FOMORisk = out.FOMORisk || r.FOMORisk
		if latest == nil || r.EventTime.After(latest.EventTime) {
			latest = r
		}
	}
	if latest != nil {
		out.FearGreedIndex = latest.FearGreedIndex
		out.FearGreedZone = latest.FearGreedZone
	} else {
		out.FearGreedZone = domain.ZoneUnknown
	}
	return out
}

var availabilityRank = map[domain.AvailabilityStatus]int{domain.AvailabilityOK: 0, domain.AvailabilityDegraded: 1, domain.AvailabilityDown: 2}
var timeIntegrityRank = map[domain.TimeIntegrityStatus]int{domain.TimeIntegrityOK: 0, domain.TimeIntegrityUnstable: 1, domain.TimeIntegrityCritical: 2}
var volumeRank = map[domain.VolumeStatus]int{domain.VolumeNormal: 0, domain.VolumeAbnormallyLow: 1, domain.VolumeAbnormallyHigh: 1}
var sourceBalanceRank = map[domain.SourceBalanceStatus]int{domain.SourceBalanceNormal: 0, domain.SourceBalanceImbalanced: 1}
var anomalyRank = map[domain.AnomalyStatus]int{domain.AnomalyNormal: 0, domain.AnomalyPersistent: 1}
var overallRank = map[domain.OverallQuality]int{domain.QualityHealthy: 0, domain.QualityDegraded: 1, domain.QualityCritical: 2}

func aggregateQuality(events []domain.DataQualityEvent) domain.AggregatedDataQuality {
	out := domain.AggregatedDataQuality{
		Overall:       domain.QualityHealthy,
		Availability:  domain.AvailabilityOK,
		TimeIntegrity: domain.TimeIntegrityOK,
		Volume:        domain.VolumeNormal,
		SourceBalance: domain.SourceBalanceNormal,
		AnomalyFreq:   domain.AnomalyNormal,
	}
	for _, e := range events {
		if availabilityRank[e.Availability] > availabilityRank[out.Availability] {
			out.Availability = e.Availability
		}
		if timeIntegrityRank[e.TimeIntegrity] > timeIntegrityRank[out.TimeIntegrity] {
			out.TimeIntegrity = e.TimeIntegrity
		}
		if volumeRank[e.Volume] > volumeRank[out.Volume] {
			out.Volume = e.Volume
		}
		if sourceBalanceRank[e.SourceBalance] > sourceBalanceRank[out.SourceBalance] {
			out.SourceBalance = e.SourceBalance
		}
		if anomalyRank[e.AnomalyFreq] > anomalyRank[out.AnomalyFreq] {
			out.AnomalyFreq = e.AnomalyFreq
		}
		if overallRank[e.Overall] > overallRank[out.Overall] {
			out.Overall = e.Overall
		}
	}
	return out
}
