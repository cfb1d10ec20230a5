package alerter

import (
	"fmt"
	"time"

	"socialcontext/internal/domain"
)

// RiskTriggers maps one risk-indicator event to zero or more alert
// candidates (spec §4.8: "trigger rules map one-to-one with the
// risk/quality fields above").
func RiskTriggers(asset string, risk domain.RiskIndicatorEvent) []domain.Alert {
	var alerts []domain.Alert
	now := risk.EventTime
	if now.IsZero() {
		now = time.Now()
	}

	if risk.SocialOverheat {
		alerts = append(alerts, domain.Alert{
			Kind: domain.AlertSocialOverheat, Asset: asset, Time: now,
			Details: fmt.Sprintf("sentiment_label=%d velocity elevated with manipulation flag set", risk.SentimentLabel),
		})
	}
	if risk.PanicRisk {
		alerts = append(alerts, domain.Alert{
			Kind: domain.AlertPanicRisk, Asset: asset, Time: now,
			Details: fmt.Sprintf("bearish sentiment with elevated mention velocity, confidence=%.2f", risk.SentimentConfidence),
		})
	}
	if risk.FOMORisk {
		alerts = append(alerts, domain.Alert{
			Kind: domain.AlertFOMORisk, Asset: asset, Time: now,
			Details: fmt.Sprintf("bullish sentiment with fear_greed_index=%d", derefInt(risk.FearGreedIndex)),
		})
	}
	if risk.FearGreedZone == domain.ZoneExtremeFear || risk.FearGreedZone == domain.ZoneExtremeGreed {
		alerts = append(alerts, domain.Alert{
			Kind: domain.AlertExtremeMarketEmotion, Asset: asset, Time: now,
			Details: fmt.Sprintf("fear_greed_zone=%s index=%d", risk.FearGreedZone, derefInt(risk.FearGreedIndex)),
		})
	}
	return alerts
}

func derefInt(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

// QualityTriggers maps one Data Quality Event to zero or more alert
// candidates: overall degradation plus per-source availability alerts.
func QualityTriggers(event domain.DataQualityEvent, perSourceAvailability map[domain.Source]domain.AvailabilityStatus) []domain.Alert {
	var alerts []domain.Alert
	now := event.EventTime
	if now.IsZero() {
		now = time.Now()
	}

	switch event.Overall {
	case domain.QualityCritical:
		alerts = append(alerts, domain.Alert{
			Kind: domain.AlertDataQualityCritical, Asset: "ALL", Time: now,
			Details: fmt.Sprintf("availability=%s time_integrity=%s volume=%s source_balance=%s anomaly_frequency=%s",
				event.Availability, event.TimeIntegrity, event.Volume, event.SourceBalance, event.AnomalyFreq),
		})
	case domain.QualityDegraded:
		alerts = append(alerts, domain.Alert{
			Kind: domain.AlertDataQualityDegraded, Asset: "ALL", Time: now,
			Details: fmt.Sprintf("availability=%s time_integrity=%s volume=%s source_balance=%s anomaly_frequency=%s",
				event.Availability, event.TimeIntegrity, event.Volume, event.SourceBalance, event.AnomalyFreq),
		})
	}

	for source, status := range perSourceAvailability {
		switch status {
		case domain.AvailabilityDown:
			alerts = append(alerts, domain.Alert{
				Kind: domain.AlertSourceDown, Asset: "ALL", Source: source, Time: now,
				Details: fmt.Sprintf("%s has produced no accepted events past the down threshold", source),
			})
		case domain.AvailabilityDegraded:
			alerts = append(alerts, domain.Alert{
				Kind: domain.AlertSourceDelay, Asset: "ALL", Source: source, Time: now,
				Details: fmt.Sprintf("%s has produced no accepted events past the degraded threshold", source),
			})
		}
	}
	return alerts
}
