// Package llmclassifier is the optional LLM fallback classifier spec §1
// calls out as an external collaborator: invoked only when the rule-based
// sentiment engine (internal/enrich) produces zero lexicon matches. Grounded
// on the teacher's internal/marketintel/scorer.go OpenAIScorer (same JSON
// contract, same markdown-fence stripping) and on the system prompt/parsing
// shape of original_source/llm_classifier.py's LLMSentimentClassifier.
package llmclassifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Result is what a classifier returns for a single piece of text: a label
// in {-1, 0, +1} and a confidence in [0,1]. A nil *Result (with nil error)
// means the classifier declined to answer; callers must leave the event at
// neutral rather than inventing a label.
type Result struct {
	Label      int
	Confidence float64
}

// Classifier is the abstraction internal/enrich depends on. The zero-match
// fallback path in the sentiment stage calls Classify only when the rule
// engine found nothing, per spec §4.6's strict priority rule.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Result, error)
}

// NoopClassifier always declines, used when no LLM_API_KEY is configured.
// The sentiment stage then leaves zero-match text at neutral/low-confidence
// exactly as if the LLM had returned nothing.
type NoopClassifier struct{}

func (NoopClassifier) Classify(ctx context.Context, text string) (*Result, error) {
	return nil, nil
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAIClassifier wraps an OpenAI-compatible chat model behind the fixed
// system/user prompt contract from original_source/llm_classifier.py.
type OpenAIClassifier struct {
	client chatClient
	model  string
}

// NewOpenAIClassifier returns nil if apiKey is blank, matching the
// teacher's NewOpenAIScorer "absent key disables the feature" idiom.
func NewOpenAIClassifier(apiKey, model string) *OpenAIClassifier {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClassifier{client: &openAIClientAdapter{client: client}, model: model}
}

const systemPrompt = "You classify short crypto-related social media posts as bullish, bearish, or neutral. " +
	"Return ONLY a JSON object: {\"label\": \"bullish\"|\"bearish\"|\"neutral\", \"confidence\": 0..1}. No markdown, no commentary."

// Classify asks the model to label a single piece of text that the rule
// engine found zero lexicon matches in.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (*Result, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Post:\n" + text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llmclassifier: completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("llmclassifier: empty completion")
	}

	raw := trimCodeFence(completion.Choices[0].Message.Content)

	var parsed struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("llmclassifier: parse response: %w", err)
	}

	return &Result{Label: labelToInt(parsed.Label), Confidence: clamp01(parsed.Confidence)}, nil
}

func labelToInt(label string) int {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "bullish", "bull", "positive":
		return 1
	case "bearish", "bear", "negative":
		return -1
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// trimCodeFence strips a leading/trailing ```json ... ``` fence, matching
// both the teacher's scorer.go trimCodeFence and
// original_source/llm_classifier.py's _parse_response fence stripping.
func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSpace(v)
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSuffix(v, "```")
		v = strings.TrimSpace(v)
	}
	return v
}

type openAIClientAdapter struct {
	client openai.Client
}

func (a *openAIClientAdapter) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return a.client.Chat.Completions.New(ctx, params)
}
