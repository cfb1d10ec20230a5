// Package advisor implements the operator-facing Q&A assistant: a
// conversational wrapper over the same §6 read interface internal/handler
// and internal/mcpserver expose, so an operator can ask "what's going on
// with BTC" from the SSH dashboard or a Telegram chat and get an answer
// grounded in the pipeline's own aggregated state rather than an LLM
// guessing. Adapted from the teacher's advisor.go, which wired the same
// persist-gather-prompt-call-persist shape around price/signal data; this
// version gathers social-context aggregates, alert counters, and quality
// status instead.
package advisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"socialcontext/internal/alerter"
	"socialcontext/internal/contextquery"
	"socialcontext/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// ContextStore is the §6 read interface's backing store, identical in
// shape to handler.ContextStore and mcpserver.ContextStore.
type ContextStore interface {
	QueryContextRecords(ctx context.Context, asset string, since, until interface{}, sources []domain.Source) ([]domain.ContextRecord, error)
	QueryQualityEvents(ctx context.Context, since, until interface{}) ([]domain.DataQualityEvent, error)
}

// AlerterMetrics exposes the Alerter's lifetime counters for the operator
// report, without giving the advisor access to Evaluate/send internals.
type AlerterMetrics interface {
	Metrics() alerter.Metrics
}

// ConversationStore persists and retrieves conversation messages.
type ConversationStore interface {
	AppendMessage(ctx context.Context, chatID int64, role, content string) error
	RecentMessages(ctx context.Context, chatID int64, limit int) ([]domain.ConversationMessage, error)
}

// contextWindow is the fixed lookback the advisor queries per turn: the
// read interface's maximum allowed window (spec §6: 30s-300s), so an
// operator question always sees as much recent history as the validation
// rule permits.
const contextWindow = contextquery.MaxWindow

// AdvisorService answers operator questions about the pipeline's own
// observed state.
type AdvisorService struct {
	tracer     trace.Tracer
	llm        LLMClient
	store      ContextStore
	alerts     AlerterMetrics
	assets     AssetRegistry
	convStore  ConversationStore
	model      string
	maxHistory int
	nowFunc    func() time.Time
}

func NewAdvisorService(
	tracer trace.Tracer,
	llm LLMClient,
	store ContextStore,
	alerts AlerterMetrics,
	assets AssetRegistry,
	convStore ConversationStore,
	model string,
	maxHistory int,
) *AdvisorService {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &AdvisorService{
		tracer:     tracer,
		llm:        llm,
		store:      store,
		alerts:     alerts,
		assets:     assets,
		convStore:  convStore,
		model:      model,
		maxHistory: maxHistory,
		nowFunc:    time.Now,
	}
}

func (s *AdvisorService) Ask(ctx context.Context, chatID int64, userMessage string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.ask")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", chatID))

	// 1. Persist the user message
	if err := s.convStore.AppendMessage(ctx, chatID, "user", userMessage); err != nil {
		log.Printf("failed to store user message: %v", err)
	}

	// 2. Extract mentioned assets for targeted context
	mentionedAssets := ExtractSymbols(userMessage, s.assets)

	// 3. Gather pipeline state context
	report, err := s.gatherContext(ctx, mentionedAssets)
	if err != nil {
		log.Printf("failed to gather context: %v", err)
		report = "Pipeline state temporarily unavailable."
	}

	// 4. Build system prompt with live data
	systemPrompt := BuildSystemPrompt(report)

	// 5. Load conversation history
	history, err := s.convStore.RecentMessages(ctx, chatID, s.maxHistory)
	if err != nil {
		log.Printf("failed to load conversation history: %v", err)
		history = nil
	}

	// 6. Construct messages array
	messages := s.buildMessages(systemPrompt, history)

	// 7. Call LLM
	reply, err := s.callLLM(ctx, messages)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("advisor unavailable: %w", err)
	}

	// 8. Persist the assistant reply
	if err := s.convStore.AppendMessage(ctx, chatID, "assistant", reply); err != nil {
		log.Printf("failed to store assistant reply: %v", err)
	}

	return reply, nil
}

func (s *AdvisorService) gatherContext(ctx context.Context, assets []string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.gather-context")
	defer span.End()

	until := s.nowFunc().UTC()
	since := until.Add(-contextWindow)

	quality, err := s.store.QueryQualityEvents(ctx, since, until)
	if err != nil {
		return "", err
	}

	results := make(map[string]domain.ContextResult, len(assets))
	for _, asset := range assets {
		query, err := contextquery.Validate(asset, []domain.Source{domain.SourceTwitter, domain.SourceReddit, domain.SourceTelegram}, since, until)
		if err != nil {
			continue
		}
		records, err := s.store.QueryContextRecords(ctx, query.Asset, query.Since, query.Until, query.Sources)
		if err != nil {
			log.Printf("failed to query context for %s: %v", asset, err)
			continue
		}
		results[asset] = contextquery.Aggregate(query, records, quality)
	}

	var metrics alerter.Metrics
	if s.alerts != nil {
		metrics = s.alerts.Metrics()
	}

	return FormatContextReport(results, metrics), nil
}

func (s *AdvisorService) buildMessages(
	systemPrompt string,
	history []domain.ConversationMessage,
) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)

	// System prompt always first
	messages = append(messages, openai.SystemMessage(systemPrompt))

	// Conversation history (already limited by RecentMessages query)
	for _, msg := range history {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	return messages
}

func (s *AdvisorService) callLLM(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.llm-call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", s.model),
		attribute.Int("llm.message_count", len(messages)),
	)

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
