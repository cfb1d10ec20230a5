// Package dqm implements the Data-Quality Monitor of spec §4.7: five
// independent rolling-window dimensions over every event that clears the
// Time-Sync Guard, aggregated into a single overall status and emitted as a
// periodic Data Quality Event. Grounded on
// original_source/data_quality_monitor.py's RollingWindow/dimension shape,
// reimplemented over internal/rollingwindow, with gonum/stat providing the
// learned volume baseline and narumiruna/go-iforest an auxiliary,
// advisory-only anomaly score per SPEC_FULL.md's domain-stack wiring.
package dqm

import (
	"sync"
	"time"

	"socialcontext/internal/domain"
	"socialcontext/internal/rollingwindow"

	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/stat"
)

// availabilityDegradedThresholds and availabilityDownThresholds hold the
// degraded/down ceilings (seconds since
// last accepted event) per source, from spec §4.7's table.
var availabilityDegradedThresholds = map[domain.Source]float64{
	domain.SourceTwitter:  60,
	domain.SourceTelegram: 120,
	domain.SourceReddit:   900,
}

var availabilityDownThresholds = map[domain.Source]float64{
	domain.SourceTwitter:  300,
	domain.SourceTelegram: 600,
	domain.SourceReddit:   3600,
}

const (
	timeIntegrityUnstableRate = 0.05
	timeIntegrityCriticalRate = 0.15

	volumeLowRatio  = 0.3
	volumeHighRatio = 3.0

	sourceBalanceImbalancedFraction = 0.70

	anomalyFrequencyPersistentRate = 0.5

	defaultWindow          = 5 * time.Minute
	baselineHistoryWindows = 12 // window counts from the last 12 Emit calls
)

// Monitor accumulates the rolling state behind every dimension. The
// scheduler owns one Monitor for the whole pipeline (DQM is not
// per-source): accepted/dropped events from every worker and the guard
// funnel into the same instance.
type Monitor struct {
	mu     sync.Mutex
	window time.Duration
	tracer trace.Tracer
	scorer AnomalyScorer

	perSourceLastSeen map[domain.Source]time.Time
	allOutcomes       *rollingwindow.Window
	lateDrops         *rollingwindow.Window
	totalAccepted     *rollingwindow.Window
	perSourceAccepted map[domain.Source]*rollingwindow.Window
	anomalyAccepted   *rollingwindow.Window

	baselineHistory []float64
}

// New builds a Monitor over spec's default 5-minute rolling window.
func New(tracer trace.Tracer, scorer AnomalyScorer) *Monitor {
	if scorer == nil {
		scorer = NoopAnomalyScorer{}
	}
	return &Monitor{
		window:            defaultWindow,
		tracer:            tracer,
		scorer:            scorer,
		perSourceLastSeen: make(map[domain.Source]time.Time),
		allOutcomes:       rollingwindow.New(defaultWindow),
		lateDrops:         rollingwindow.New(defaultWindow),
		totalAccepted:     rollingwindow.New(defaultWindow),
		perSourceAccepted: make(map[domain.Source]*rollingwindow.Window),
		anomalyAccepted:   rollingwindow.New(defaultWindow),
	}
}

// ObserveAccepted implements enrich.DQMObserver: records an event that
// cleared the guard and was written to storage.
func (m *Monitor) ObserveAccepted(source domain.Source, eventTime time.Time, risk domain.RiskIndicatorEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.allOutcomes.Add(now)
	m.totalAccepted.Add(now)
	m.perSourceLastSeen[source] = eventTime
	m.sourceWindowLocked(source).Add(now)

	if risk.SocialOverheat || risk.PanicRisk || risk.FOMORisk {
		m.anomalyAccepted.Add(now)
	}

	m.scorer.Observe([]float64{
		risk.SentimentConfidence,
		boolToFloat(risk.SocialOverheat),
		boolToFloat(risk.PanicRisk),
		boolToFloat(risk.FOMORisk),
	})
}

// ObserveDropped implements enrich.DQMObserver: records a guard-side drop.
// Only drop reasons the guard itself produces count toward time integrity
// (worker-side drops like not_whitelisted are a different failure mode and
// do not move the late-rate).
func (m *Monitor) ObserveDropped(source domain.Source, reason domain.DropReason) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	switch reason {
	case domain.DropFuture, domain.DropLate, domain.DropOutOfOrder, domain.DropDuplicate, domain.DropMalformed:
		m.allOutcomes.Add(now)
		if reason == domain.DropLate {
			m.lateDrops.Add(now)
		}
	}
}

func (m *Monitor) sourceWindowLocked(source domain.Source) *rollingwindow.Window {
	w, ok := m.perSourceAccepted[source]
	if !ok {
		w = rollingwindow.New(m.window)
		m.perSourceAccepted[source] = w
	}
	return w
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Emit computes the current Data Quality Event as of now and rolls the
// current window's accepted count into the baseline history used by the
// next call's volume dimension.
func (m *Monitor) Emit(now time.Time) domain.DataQualityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	availability := m.availabilityLocked(now)
	timeIntegrity := m.timeIntegrityLocked(now)
	volume := m.volumeLocked(now)
	sourceBalance := m.sourceBalanceLocked(now)
	anomalyFreq := m.anomalyFrequencyLocked(now)

	overall := domain.QualityHealthy
	if availability == domain.AvailabilityDown || timeIntegrity == domain.TimeIntegrityCritical {
		overall = domain.QualityCritical
	} else if availability != domain.AvailabilityOK ||
		timeIntegrity != domain.TimeIntegrityOK ||
		volume != domain.VolumeNormal ||
		sourceBalance != domain.SourceBalanceNormal ||
		anomalyFreq != domain.AnomalyNormal {
		overall = domain.QualityDegraded
	}

	return domain.DataQualityEvent{
		EventTime:     now,
		Overall:       overall,
		Availability:  availability,
		TimeIntegrity: timeIntegrity,
		Volume:        volume,
		SourceBalance: sourceBalance,
		AnomalyFreq:   anomalyFreq,
		AnomalyScore:  m.scorer.Score(),
	}
}

func (m *Monitor) availabilityLocked(now time.Time) domain.AvailabilityStatus {
	worst := domain.AvailabilityOK
	for _, source := range []domain.Source{domain.SourceTwitter, domain.SourceReddit, domain.SourceTelegram} {
		last, seen := m.perSourceLastSeen[source]
		var secondsSince float64
		if !seen {
			secondsSince = availabilityDownThresholds[source] + 1 // never seen: treat as down
		} else {
			secondsSince = now.Sub(last).Seconds()
		}
		status := domain.AvailabilityOK
		switch {
		case secondsSince > availabilityDownThresholds[source]:
			status = domain.AvailabilityDown
		case secondsSince > availabilityDegradedThresholds[source]:
			status = domain.AvailabilityDegraded
		}
		worst = worstAvailability(worst, status)
	}
	return worst
}

// PerSourceAvailability reports each source's individual availability
// status as of now, for the Alerter's SOURCE_DELAY/SOURCE_DOWN triggers
// (the aggregated Overall field alone can't say which source is at fault).
func (m *Monitor) PerSourceAvailability(now time.Time) map[domain.Source]domain.AvailabilityStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[domain.Source]domain.AvailabilityStatus, 3)
	for _, source := range []domain.Source{domain.SourceTwitter, domain.SourceReddit, domain.SourceTelegram} {
		last, seen := m.perSourceLastSeen[source]
		var secondsSince float64
		if !seen {
			secondsSince = availabilityDownThresholds[source] + 1
		} else {
			secondsSince = now.Sub(last).Seconds()
		}
		status := domain.AvailabilityOK
		switch {
		case secondsSince > availabilityDownThresholds[source]:
			status = domain.AvailabilityDown
		case secondsSince > availabilityDegradedThresholds[source]:
			status = domain.AvailabilityDegraded
		}
		out[source] = status
	}
	return out
}

func worstAvailability(a, b domain.AvailabilityStatus) domain.AvailabilityStatus {
	rank := map[domain.AvailabilityStatus]int{domain.AvailabilityOK: 0, domain.AvailabilityDegraded: 1, domain.AvailabilityDown: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func (m *Monitor) timeIntegrityLocked(now time.Time) domain.TimeIntegrityStatus {
	total := m.allOutcomes.Count(now)
	if total == 0 {
		return domain.TimeIntegrityOK
	}
	rate := float64(m.lateDrops.Count(now)) / float64(total)
	switch {
	case rate > timeIntegrityCriticalRate:
		return domain.TimeIntegrityCritical
	case rate >= timeIntegrityUnstableRate:
		return domain.TimeIntegrityUnstable
	default:
		return domain.TimeIntegrityOK
	}
}

func (m *Monitor) volumeLocked(now time.Time) domain.VolumeStatus {
	current := float64(m.totalAccepted.Count(now))

	baseline := current
	if len(m.baselineHistory) > 0 {
		baseline = stat.Mean(m.baselineHistory, nil)
	}
	m.pushBaselineLocked(current)

	if baseline <= 0 {
		return domain.VolumeNormal
	}
	ratio := current / baseline
	switch {
	case ratio < volumeLowRatio:
		return domain.VolumeAbnormallyLow
	case ratio > volumeHighRatio:
		return domain.VolumeAbnormallyHigh
	default:
		return domain.VolumeNormal
	}
}

func (m *Monitor) pushBaselineLocked(current float64) {
	m.baselineHistory = append(m.baselineHistory, current)
	if len(m.baselineHistory) > baselineHistoryWindows {
		m.baselineHistory = m.baselineHistory[len(m.baselineHistory)-baselineHistoryWindows:]
	}
}

func (m *Monitor) sourceBalanceLocked(now time.Time) domain.SourceBalanceStatus {
	total := 0
	counts := make(map[domain.Source]int, len(m.perSourceAccepted))
	for source, w := range m.perSourceAccepted {
		c := w.Count(now)
		counts[source] = c
		total += c
	}
	if total == 0 {
		return domain.SourceBalanceNormal
	}
	for _, c := range counts {
		if float64(c)/float64(total) > sourceBalanceImbalancedFraction {
			return domain.SourceBalanceImbalanced
		}
	}
	return domain.SourceBalanceNormal
}

func (m *Monitor) anomalyFrequencyLocked(now time.Time) domain.AnomalyStatus {
	total := m.totalAccepted.Count(now)
	if total == 0 {
		return domain.AnomalyNormal
	}
	rate := float64(m.anomalyAccepted.Count(now)) / float64(total)
	if rate >= anomalyFrequencyPersistentRate {
		return domain.AnomalyPersistent
	}
	return domain.AnomalyNormal
}
