// Package alerter implements spec §4.8: evaluates risk/quality triggers
// against a rate-limited dedup key and sends plain-text advisory
// notifications through an outbound transport. Grounded on
// internal/ratelimit's token-bucket shape for the per-key rate limit and
// internal/bot/telegram.go for the outbound send path, generalized from a
// poll/command bot into a pure sender.
package alerter

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"socialcontext/internal/domain"
	"socialcontext/internal/ratelimit"

	"go.opentelemetry.io/otel/trace"
)

// Transport sends one already-formatted alert message to the outbound
// channel. Implementations must be synchronous: Send either delivers the
// message or returns an error, with no internal retry (the Alerter owns
// backoff/retry per spec §4.8).
type Transport interface {
	Send(ctx context.Context, message string) error
}

// NoopTransport discards every message, for when no outbound channel is
// configured (e.g. TELEGRAM_BOT_TOKEN unset). Matches
// internal/llmclassifier.NoopClassifier's fallback-collaborator idiom.
type NoopTransport struct{}

func (NoopTransport) Send(ctx context.Context, message string) error { return nil }

const (
	defaultRateLimitWindow = 600 * time.Second
	sendAttempts           = 3
	sendBackoffBase        = time.Second
)

// forbiddenWords are trading verbs the formatter must never emit (spec
// §4.8: "the formatter must refuse to emit the words 'buy', 'sell', or
// 'trade'"). Checked case-insensitively against the rendered message.
var forbiddenWords = []string{"buy", "sell", "trade"}

// dedupKey is deliberately independent of time (spec §4.8) so repeated
// triggers within the rate-limit window collapse onto the same entry.
type dedupKey struct {
	kind   domain.AlertKind
	asset  string
	source domain.Source
}

// Metrics summarizes one Alerter's lifetime counters for operator/advisor
// consumption; never reported to the external trading-facing read API.
type Metrics struct {
	Sent       int
	Suppressed int
	Failed     int
}

// Alerter owns the dedup/rate-limit bookkeeping and the outbound transport.
// A single instance is shared by every trigger-evaluation call site
// (risk stage, DQM loop) since the dedup key already scopes per
// (kind, asset, source).
type Alerter struct {
	mu          sync.Mutex
	window      time.Duration
	backoffBase time.Duration
	lastSent    map[dedupKey]time.Time
	transport   Transport
	tracer      trace.Tracer
	metrics     Metrics
}

// New builds an Alerter over the spec's default 600s rate-limit window and
// 1s backoff base.
func New(transport Transport, tracer trace.Tracer) *Alerter {
	return NewWithTiming(transport, tracer, defaultRateLimitWindow, sendBackoffBase)
}

// NewWithTiming builds an Alerter with an overridden rate-limit window and
// backoff base, for tests that can't afford the real multi-second backoff.
func NewWithTiming(transport Transport, tracer trace.Tracer, window, backoffBase time.Duration) *Alerter {
	return &Alerter{
		window:      window,
		backoffBase: backoffBase,
		lastSent:    make(map[dedupKey]time.Time),
		transport:   transport,
		tracer:      tracer,
	}
}

// Evaluate formats and, subject to dedup/rate-limiting, sends one alert.
// Rate-limit bookkeeping only advances on a successful send (spec §4.8):
// a failed send must not cause the next trigger for the same key to be
// suppressed.
func (a *Alerter) Evaluate(ctx context.Context, alert domain.Alert) error {
	ctx, span := a.tracer.Start(ctx, "alerter.evaluate")
	defer span.End()

	key := dedupKey{kind: alert.Kind, asset: alert.Asset, source: alert.Source}
	now := time.Now()

	a.mu.Lock()
	if last, ok := a.lastSent[key]; ok && now.Sub(last) < a.window {
		a.metrics.Suppressed++
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	message, err := Format(alert)
	if err != nil {
		return fmt.Errorf("alerter: format: %w", err)
	}

	if err := a.sendWithBackoff(ctx, message); err != nil {
		a.mu.Lock()
		a.metrics.Failed++
		a.mu.Unlock()
		return fmt.Errorf("alerter: send: %w", err)
	}

	a.mu.Lock()
	a.lastSent[key] = now
	a.metrics.Sent++
	a.mu.Unlock()
	return nil
}

// sendWithBackoff attempts delivery up to sendAttempts times with
// exponential backoff (1s -> 2s -> 4s), per spec §4.8. This is the single
// exception to "no in-cycle retries" called out in §7.
func (a *Alerter) sendWithBackoff(ctx context.Context, message string) error {
	var lastErr error
	delay := a.backoffBase
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
		if err := a.transport.Send(ctx, message); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// NotifyRisk implements internal/enrich.AlertNotifier: evaluates every
// risk-trigger candidate for one accepted event's indicators and sends
// whatever clears dedup/rate-limiting. Errors are logged, not returned —
// the pipeline's Submit path cannot fail an insert because an alert send
// failed downstream of it.
func (a *Alerter) NotifyRisk(ctx context.Context, asset string, risk domain.RiskIndicatorEvent) {
	for _, alert := range RiskTriggers(asset, risk) {
		if err := a.Evaluate(ctx, alert); err != nil {
			log.Printf("alerter: risk alert send failed: %v", err)
		}
	}
}

// Metrics returns a snapshot of lifetime counters.
func (a *Alerter) Metrics() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// Format renders the plain-text outbound alert format from spec §6,
// refusing to emit any of the forbidden trading verbs.
func Format(alert domain.Alert) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "[ALERT] %s\n", alert.Kind)
	fmt.Fprintf(&b, "Asset: %s\n", alert.Asset)
	fmt.Fprintf(&b, "Time: %s\n", alert.Time.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(&b, "Details: %s", alert.Details)

	message := b.String()
	lower := strings.ToLower(message)
	for _, word := range forbiddenWords {
		if strings.Contains(lower, word) {
			return "", fmt.Errorf("alerter: formatted message contains forbidden word %q", word)
		}
	}
	return message, nil
}
