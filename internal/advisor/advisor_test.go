package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"socialcontext/internal/alerter"
	"socialcontext/internal/domain"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestService(llm LLMClient, store ContextStore, convStore ConversationStore) *AdvisorService {
	svc := NewAdvisorService(
		noop.NewTracerProvider().Tracer("test"),
		llm, store, &stubAlerterMetrics{}, &stubRegistry{matches: map[string][]string{"What about BTC?": {"BTC"}}},
		convStore, "gpt-4o-mini", 20,
	)
	svc.nowFunc = func() time.Time { return time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC) }
	return svc
}

func TestAskHappyPath(t *testing.T) {
	llm := &stubLLMClient{
		response: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "BTC sentiment is bullish"}},
			},
		},
	}
	store := &stubContextStore{
		records: []domain.ContextRecord{{Source: domain.SourceTwitter, SentimentLabel: domain.LabelBullish, SentimentConfidence: 0.9}},
	}
	convStore := &stubConvStore{}

	svc := newTestService(llm, store, convStore)

	reply, err := svc.Ask(context.Background(), 123, "What about BTC?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "BTC sentiment is bullish" {
		t.Fatalf("expected reply, got %q", reply)
	}
	if len(convStore.messages) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(convStore.messages))
	}
	if convStore.messages[0].role != "user" {
		t.Fatalf("expected first stored message role=user, got %s", convStore.messages[0].role)
	}
	if convStore.messages[1].role != "assistant" {
		t.Fatalf("expected second stored message role=assistant, got %s", convStore.messages[1].role)
	}
}

func TestAskLLMError(t *testing.T) {
	llm := &stubLLMClient{err: errors.New("api down")}
	store := &stubContextStore{}
	convStore := &stubConvStore{}

	svc := newTestService(llm, store, convStore)

	_, err := svc.Ask(context.Background(), 123, "What looks good?")
	if err == nil {
		t.Fatal("expected error from LLM failure")
	}
	if len(convStore.messages) != 1 || convStore.messages[0].role != "user" {
		t.Fatalf("expected user message to be stored despite LLM error, got %d messages", len(convStore.messages))
	}
}

func TestAskConversationStoreFailureNonFatal(t *testing.T) {
	llm := &stubLLMClient{
		response: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "response"}},
			},
		},
	}
	store := &stubContextStore{}
	convStore := &stubConvStore{appendErr: errors.New("db down")}

	svc := newTestService(llm, store, convStore)

	reply, err := svc.Ask(context.Background(), 123, "test")
	if err != nil {
		t.Fatalf("store failure should be non-fatal, got: %v", err)
	}
	if reply != "response" {
		t.Fatalf("expected 'response', got %q", reply)
	}
}

func TestAskContextGatheringFailureNonFatal(t *testing.T) {
	llm := &stubLLMClient{
		response: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "no data available"}},
			},
		},
	}
	store := &stubContextStore{qualityErr: errors.New("store down")}
	convStore := &stubConvStore{}

	svc := newTestService(llm, store, convStore)

	reply, err := svc.Ask(context.Background(), 123, "What about BTC?")
	if err != nil {
		t.Fatalf("context failure should be non-fatal, got: %v", err)
	}
	if reply != "no data available" {
		t.Fatalf("expected 'no data available', got %q", reply)
	}
}

func TestAskDefaultMaxHistory(t *testing.T) {
	svc := NewAdvisorService(
		noop.NewTracerProvider().Tracer("test"),
		&stubLLMClient{}, &stubContextStore{}, &stubAlerterMetrics{}, &stubRegistry{}, &stubConvStore{},
		"gpt-4o-mini", 0,
	)
	if svc.maxHistory != 20 {
		t.Fatalf("expected default maxHistory=20, got %d", svc.maxHistory)
	}
}

// --- stubs ---

type stubLLMClient struct {
	response *openai.ChatCompletion
	err      error
}

func (s *stubLLMClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return s.response, s.err
}

type storedMsg struct {
	chatID  int64
	role    string
	content string
}

type stubConvStore struct {
	messages  []storedMsg
	appendErr error
	recentErr error
}

func (s *stubConvStore) AppendMessage(ctx context.Context, chatID int64, role, content string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.messages = append(s.messages, storedMsg{chatID: chatID, role: role, content: content})
	return nil
}

func (s *stubConvStore) RecentMessages(ctx context.Context, chatID int64, limit int) ([]domain.ConversationMessage, error) {
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	var msgs []domain.ConversationMessage
	for _, m := range s.messages {
		if m.chatID == chatID {
			msgs = append(msgs, domain.ConversationMessage{Role: m.role, Content: m.content, CreatedAt: time.Now()})
		}
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

type stubContextStore struct {
	records    []domain.ContextRecord
	quality    []domain.DataQualityEvent
	recordsErr error
	qualityErr error
}

func (s *stubContextStore) QueryContextRecords(ctx context.Context, asset string, since, until interface{}, sources []domain.Source) ([]domain.ContextRecord, error) {
	if s.recordsErr != nil {
		return nil, s.recordsErr
	}
	return s.records, nil
}

func (s *stubContextStore) QueryQualityEvents(ctx context.Context, since, until interface{}) ([]domain.DataQualityEvent, error) {
	if s.qualityErr != nil {
		return nil, s.qualityErr
	}
	return s.quality, nil
}

type stubAlerterMetrics struct{}

func (s *stubAlerterMetrics) Metrics() alerter.Metrics { return alerter.Metrics{} }
