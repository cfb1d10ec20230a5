// Package enrich implements the enrichment pipeline's three fixed-order
// stages from spec §4.5/§4.6: raw insert (owned by internal/eventstore),
// sentiment, and risk. This file is Stage 2 — sentiment — grounded,
// term-for-term, on original_source/sentiment_pipeline.py: the same
// LEXICON, REGEX_PATTERNS, SCORE_WEIGHTS, and label thresholds, with the
// LLM fallback wired to internal/llmclassifier instead of the Python
// stub's local import.
package enrich

import (
	"context"
	"regexp"
	"strings"

	"socialcontext/internal/domain"
	"socialcontext/internal/llmclassifier"
)

// lexicon is LEXICON from sentiment_pipeline.py — "LOAD ONLY, DO NOT
// MODIFY" in the original; kept byte-for-byte here.
var lexicon = map[string][]string{
	"bullish": {"moon", "breakout", "accumulation", "buy wall", "whale buying"},
	"bearish": {"dump", "rug", "hack", "exploit", "sell wall"},
	"fear":    {"panic", "exit", "collapse", "bankruptcy"},
	"greed":   {"100x", "lambo", "all in", "yolo"},
}

var lexiconPatterns = buildLexiconPatterns(lexicon)

func buildLexiconPatterns(lex map[string][]string) map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(lex))
	for category, terms := range lex {
		patterns := make([]*regexp.Regexp, 0, len(terms))
		for _, term := range terms {
			patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
		}
		out[category] = patterns
	}
	return out
}

// These patterns mirror REGEX_PATTERNS + REGEX_CATEGORY_MAP: index 3
// (repeated exclamation marks) has no category, matching the Python
// original's `category = None` branch, and is not added to
// total_matched_terms.
var (
	regexDump   = regexp.MustCompile(`(?i)\b(dump|dumping|dumped)\b`)
	regexRug    = regexp.MustCompile(`(?i)\b(rug|rugpull)\b`)
	regexGreedX = regexp.MustCompile(`(?i)\b\d{2,4}x\b`)
	regexBangs  = regexp.MustCompile(`!{2,}`)
)

// scoreWeights is SCORE_WEIGHTS — fixed, never tuned at runtime.
var scoreWeights = map[string]float64{
	"bullish": 1.0,
	"greed":   0.5,
	"bearish": -1.2,
	"fear":    -1.5,
}

const (
	labelThresholdPositive = 0.2
	labelThresholdNegative = -0.2
)

// countLexiconMatches counts occurrences of every lexicon term in text.
func countLexiconMatches(text string) domain.LexiconCounts {
	var c domain.LexiconCounts
	for category, patterns := range lexiconPatterns {
		n := 0
		for _, p := range patterns {
			n += len(p.FindAllString(text, -1))
		}
		switch category {
		case "bullish":
			c.Bullish += n
		case "bearish":
			c.Bearish += n
		case "fear":
			c.Fear += n
		case "greed":
			c.Greed += n
		}
	}
	return c
}

// countRegexMatches adds REGEX_PATTERNS matches to their mapped category
// and returns the bang-run (index 3) count separately; Score does not add
// that count to total_matched_terms.
func countRegexMatches(text string) (domain.LexiconCounts, int) {
	var c domain.LexiconCounts
	c.Bearish += len(regexDump.FindAllString(text, -1))
	c.Bearish += len(regexRug.FindAllString(text, -1))
	c.Greed += len(regexGreedX.FindAllString(text, -1))
	bangCount := len(regexBangs.FindAllString(text, -1))
	return c, bangCount
}

func addCounts(a, b domain.LexiconCounts) domain.LexiconCounts {
	return domain.LexiconCounts{
		Bullish: a.Bullish + b.Bullish,
		Bearish: a.Bearish + b.Bearish,
		Fear:    a.Fear + b.Fear,
		Greed:   a.Greed + b.Greed,
	}
}

// calculateRawScore applies SCORE_WEIGHTS.
func calculateRawScore(c domain.LexiconCounts) float64 {
	return float64(c.Bullish)*scoreWeights["bullish"] +
		float64(c.Greed)*scoreWeights["greed"] +
		float64(c.Bearish)*scoreWeights["bearish"] +
		float64(c.Fear)*scoreWeights["fear"]
}

// normalizeScore divides by totalMatchedTerms and clamps to [-1, 1].
func normalizeScore(rawScore float64, totalMatchedTerms int) float64 {
	if totalMatchedTerms == 0 {
		return 0
	}
	normalized := rawScore / float64(totalMatchedTerms)
	if normalized > 1 {
		return 1
	}
	if normalized < -1 {
		return -1
	}
	return normalized
}

// assignLabel applies the fixed thresholds — no fuzzy logic, no overrides.
func assignLabel(score float64) domain.SentimentLabel {
	switch {
	case score >= labelThresholdPositive:
		return domain.LabelBullish
	case score <= labelThresholdNegative:
		return domain.LabelBearish
	default:
		return domain.LabelNeutral
	}
}

// preprocessText lowercases and strips URLs, matching
// sentiment_pipeline.py's preprocess_text (emoji stripping omitted: Go's
// stdlib regexp cannot express the Python unicode ranges used there
// without a large hand-maintained table, and no emoji ever carries a
// lexicon/regex match this stage depends on).
var urlPattern = regexp.MustCompile(`(?i)https?://\S+|www\.\S+`)

func preprocessText(text string) string {
	lower := strings.ToLower(text)
	return urlPattern.ReplaceAllString(lower, "")
}

// SentimentStage computes the Sentiment Event for a single raw event,
// calling classifier only when the rule engine matched nothing.
type SentimentStage struct {
	classifier llmclassifier.Classifier
}

// NewSentimentStage builds a stage. Pass llmclassifier.NoopClassifier{} to
// run rule-only, matching the Python original when no LLM key is set.
func NewSentimentStage(classifier llmclassifier.Classifier) *SentimentStage {
	if classifier == nil {
		classifier = llmclassifier.NoopClassifier{}
	}
	return &SentimentStage{classifier: classifier}
}

// Score evaluates text and returns a fully populated SentimentEvent (minus
// ID/RawEventID, which the caller assigns at persistence time).
func (s *SentimentStage) Score(ctx context.Context, text string) domain.SentimentEvent {
	processed := preprocessText(text)

	lexCounts := countLexiconMatches(processed)
	// bangCount is computed but never folded into total_matched_terms —
	// REGEX_CATEGORY_MAP[3] = None in the original, so a bang-only match
	// still leaves totalMatchedTerms at 0 and falls through to the LLM
	// fallback gate below.
	regexCounts, _ := countRegexMatches(processed)
	total := addCounts(lexCounts, regexCounts)

	totalMatchedTerms := total.Total()
	rawScore := calculateRawScore(total)
	normalizedScore := normalizeScore(rawScore, totalMatchedTerms)

	var ruleLabel *domain.SentimentLabel
	if totalMatchedTerms > 0 {
		l := assignLabel(normalizedScore)
		ruleLabel = &l
	}

	event := domain.SentimentEvent{
		Counts:          total,
		RawScore:        rawScore,
		NormalizedScore: normalizedScore,
		RuleLabel:       ruleLabel,
	}

	// PRIORITY RULE: a rule-based label, once present, is never overridden
	// by the LLM fallback (spec §4.6 invariant).
	if ruleLabel != nil {
		event.FinalLabel = *ruleLabel
		event.FinalConfidence = absFloat(normalizedScore)
		return event
	}

	result, err := s.classifier.Classify(ctx, processed)
	if err == nil && result != nil {
		label := domain.SentimentLabel(clampLabel(result.Label))
		event.LLMUsed = true
		event.LLMLabel = &label
		confidence := result.Confidence
		event.LLMConfidence = &confidence
		event.FinalLabel = label
		event.FinalConfidence = confidence
		return event
	}

	event.FinalLabel = domain.LabelNeutral
	event.FinalConfidence = 0
	return event
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clampLabel(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
