package enrich

import (
	"context"
	"testing"

	"socialcontext/internal/domain"
	"socialcontext/internal/llmclassifier"
)

func TestScoreBullishTweet(t *testing.T) {
	stage := NewSentimentStage(nil)
	event := stage.Score(context.Background(), "$BTC moon breakout!")
	if event.Counts.Bullish != 2 {
		t.Errorf("expected bullish=2 (moon, breakout), got %d", event.Counts.Bullish)
	}
	if event.FinalLabel != domain.LabelBullish {
		t.Errorf("expected final label bullish, got %d", event.FinalLabel)
	}
	if event.NormalizedScore < 0.9 {
		t.Errorf("expected normalized_score near +1.0, got %v", event.NormalizedScore)
	}
}

func TestScoreBearishDump(t *testing.T) {
	stage := NewSentimentStage(nil)
	event := stage.Score(context.Background(), "everyone is dumping, total rug")
	if event.FinalLabel != domain.LabelBearish {
		t.Errorf("expected bearish, got %d (counts=%+v)", event.FinalLabel, event.Counts)
	}
}

func TestScoreGreedNumberPattern(t *testing.T) {
	stage := NewSentimentStage(nil)
	event := stage.Score(context.Background(), "this is going 100x guaranteed")
	if event.Counts.Greed < 2 {
		t.Errorf("expected greed count from both lexicon '100x' and regex \\d{2,4}x, got %d", event.Counts.Greed)
	}
}

func TestScoreNoMatchesFallsBackToLLM(t *testing.T) {
	fake := fakeClassifier{result: &llmclassifier.Result{Label: 1, Confidence: 0.9}}
	stage := NewSentimentStage(&fake)
	event := stage.Score(context.Background(), "just a completely unrelated sentence")
	if !event.LLMUsed {
		t.Fatal("expected LLM to be used when rule engine matched nothing")
	}
	if event.FinalLabel != domain.LabelBullish || event.FinalConfidence != 0.9 {
		t.Errorf("expected LLM result to win on zero matches, got %+v", event)
	}
}

func TestRuleLabelNeverOverriddenByLLM(t *testing.T) {
	fake := fakeClassifier{result: &llmclassifier.Result{Label: -1, Confidence: 0.99}}
	stage := NewSentimentStage(&fake)
	event := stage.Score(context.Background(), "$BTC moon breakout!")
	if event.LLMUsed {
		t.Fatal("LLM must never be invoked when the rule engine already matched")
	}
	if event.FinalLabel != domain.LabelBullish {
		t.Errorf("expected rule label to win, got %d", event.FinalLabel)
	}
}

func TestNoMatchesNoLLMDefaultsNeutral(t *testing.T) {
	stage := NewSentimentStage(llmclassifier.NoopClassifier{})
	event := stage.Score(context.Background(), "the weather today is mild")
	if event.FinalLabel != domain.LabelNeutral || event.FinalConfidence != 0 {
		t.Errorf("expected neutral zero-confidence default, got %+v", event)
	}
}

func TestScoreBangOnlyFallsBackToLLM(t *testing.T) {
	fake := fakeClassifier{result: &llmclassifier.Result{Label: -1, Confidence: 0.7}}
	stage := NewSentimentStage(&fake)
	event := stage.Score(context.Background(), "wait what!!!")
	if !event.LLMUsed {
		t.Fatal("bang-run matches are uncategorized and must not count toward total_matched_terms, so the LLM fallback should fire")
	}
	if event.RuleLabel != nil {
		t.Errorf("expected no rule label for a bang-only string, got %v", *event.RuleLabel)
	}
}

type fakeClassifier struct {
	result *llmclassifier.Result
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (*llmclassifier.Result, error) {
	return f.result, nil
}
