package advisor

import (
	"fmt"
	"strings"
	"time"

	"socialcontext/internal/alerter"
	"socialcontext/internal/domain"
)

// operatorPhilosophy replaces the teacher's trading-advisor persona with an
// operator-facing one: this bot explains the pipeline's own observed
// state, it never recommends a position. It inherits the alerter's
// forbidden-word constraint (spec §4.8) since its answers could otherwise
// read as trading advice.
const operatorPhilosophy = `You are the operator console's Q&A assistant for a social-context monitoring pipeline.
Your job is to explain what the pipeline has observed: sentiment aggregates, risk indicator flags, data-quality status, and alert history. You are NOT a trading advisor.

Rules:
- Never use the words "buy", "sell", or "trade" in any form.
- Always cite the specific asset, window, and record count backing any claim.
- If no data exists for an asset or window, say so honestly rather than speculating.
- Keep answers concise; this is an operator console, not a chat app.
- When quality is degraded or critical, mention it explicitly — it affects how much to trust any sentiment figure reported alongside it.`

// BuildSystemPrompt renders the fixed philosophy plus a live snapshot of
// pipeline state gathered for this turn.
func BuildSystemPrompt(contextReport string) string {
	var sb strings.Builder
	sb.WriteString(operatorPhilosophy)
	sb.WriteString("\n\n--- PIPELINE STATE (as of ")
	sb.WriteString(time.Now().UTC().Format(time.RFC822))
	sb.WriteString(") ---\n")
	sb.WriteString(contextReport)
	return sb.String()
}

// FormatContextReport renders one or more per-asset aggregated results plus
// the alerter's lifetime counters into the live-state block BuildSystemPrompt
// embeds in the system prompt.
func FormatContextReport(results map[string]domain.ContextResult, metrics alerter.Metrics) string {
	var sb strings.Builder

	if len(results) > 0 {
		sb.WriteString("\nAsset context:\n")
		for asset, r := range results {
			sb.WriteString(fmt.Sprintf(
				"  %s: sentiment=%s (confidence=%.2f) records=%d window=%s..%s\n",
				asset, sentimentName(r.Sentiment.Label), r.Sentiment.Confidence, r.RecordCount,
				r.Window.Since.UTC().Format(time.RFC3339), r.Window.Until.UTC().Format(time.RFC3339),
			))
			sb.WriteString(fmt.Sprintf(
				"    risk: social_overheat=%v panic_risk=%v fomo_risk=%v fear_greed_zone=%s\n",
				r.RiskIndicators.SocialOverheat, r.RiskIndicators.PanicRisk, r.RiskIndicators.FOMORisk, r.RiskIndicators.FearGreedZone,
			))
			sb.WriteString(fmt.Sprintf(
				"    quality: overall=%s availability=%s time_integrity=%s volume=%s source_balance=%s anomaly_frequency=%s\n",
				r.DataQuality.Overall, r.DataQuality.Availability, r.DataQuality.TimeIntegrity, r.DataQuality.Volume, r.DataQuality.SourceBalance, r.DataQuality.AnomalyFreq,
			))
		}
	}

	sb.WriteString(fmt.Sprintf("\nAlert history: sent=%d suppressed=%d failed=%d\n", metrics.Sent, metrics.Suppressed, metrics.Failed))

	if sb.Len() == 0 {
		return "No pipeline state currently available."
	}
	return sb.String()
}

func sentimentName(label domain.SentimentLabel) string {
	switch label {
	case domain.LabelBullish:
		return "bullish"
	case domain.LabelBearish:
		return "bearish"
	default:
		return "neutral"
	}
}
