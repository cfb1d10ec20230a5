package enrich

import "socialcontext/internal/domain"

// RiskInput is the per-event data the risk stage needs, gathered from the
// sentiment stage's output plus the candidate's own velocity/manipulation
// fields and the optional externally supplied fear & greed index.
type RiskInput struct {
	SentimentLabel      domain.SentimentLabel
	SentimentConfidence float64
	Velocity            float64
	ManipulationFlag    bool
	FearGreedIndex      *int
}

// RiskStage computes Stage 3 (risk indicators) from spec §4.5/§4.6, using
// spec.md's explicit social_overheat formula (velocity AND manipulation_flag)
// rather than original_source/risk_indicators.py's generic "mentions.anomaly"
// boolean — spec.md is authoritative where it is explicit, and it names
// manipulation_flag specifically.
type RiskStage struct{}

func NewRiskStage() *RiskStage { return &RiskStage{} }

// Compute produces a RiskIndicatorEvent (minus ID/RawEventID/EventTime,
// assigned by the caller at persistence time).
func (RiskStage) Compute(in RiskInput) domain.RiskIndicatorEvent {
	socialOverheat := in.Velocity >= 3.0 && in.ManipulationFlag
	panicRisk := in.SentimentLabel == domain.LabelBearish && in.Velocity >= 2.0
	fomoRisk := in.SentimentLabel == domain.LabelBullish && in.FearGreedIndex != nil && *in.FearGreedIndex >= 70

	zone := fearGreedZone(in.FearGreedIndex)
	reliability := domain.ReliabilityNormal
	if in.SentimentConfidence < 0.6 {
		reliability = domain.ReliabilityLow
	}

	return domain.RiskIndicatorEvent{
		SentimentLabel:       in.SentimentLabel,
		SentimentConfidence:  in.SentimentConfidence,
		SentimentReliability: reliability,
		SocialOverheat:       socialOverheat,
		PanicRisk:            panicRisk,
		FOMORisk:             fomoRisk,
		FearGreedIndex:       in.FearGreedIndex,
		FearGreedZone:        zone,
	}
}

func fearGreedZone(index *int) domain.FearGreedZone {
	if index == nil {
		return domain.ZoneUnknown
	}
	switch {
	case *index <= 20:
		return domain.ZoneExtremeFear
	case *index >= 80:
		return domain.ZoneExtremeGreed
	default:
		return domain.ZoneNormal
	}
}
