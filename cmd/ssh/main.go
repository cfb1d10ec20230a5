package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"socialcontext/internal/advisor"
	"socialcontext/internal/alerter"
	"socialcontext/internal/assetregistry"
	"socialcontext/internal/bot"
	"socialcontext/internal/cache"
	"socialcontext/internal/config"
	"socialcontext/internal/db"
	"socialcontext/internal/eventstore"
	"socialcontext/internal/repository"
	"socialcontext/internal/tui"
	"socialcontext/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	gossh "golang.org/x/crypto/ssh"
)

// ctxKey is a typed context key to avoid collisions in the ssh.Context bag.
type ctxKey string

const sshUsernameKey ctxKey = "ssh_username"

var (
	loadEnvFunc             = godotenv.Load
	loadConfigFunc          = config.Load
	initPostgresFunc        = db.InitPostgres
	initRedisFunc           = cache.InitRedis
	initTracerFunc          = tracing.InitTracer
	newConversationRepoFunc = repository.NewConversationRepository
	newOpenAIClientFunc     = advisor.NewOpenAIClient
	newAdvisorServiceFunc   = advisor.NewAdvisorService
	newWishServerFunc       = wish.NewServer
	setupSignalNotify       = ossignal.Notify
	waitForSignalFunc       = func(quit <-chan os.Signal) { <-quit }
)

// main runs the operator's SSH console: an ambient, read-only window onto
// the same event store and advisor the HTTP server and MCP surface
// expose, for an operator who wants an interactive Q&A session instead of
// curling the §6 API by hand. Not part of the spec's external read
// interface — authentication is by public-key fingerprint allowlist, not
// the MCP bearer token.
func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg)
	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx, cfg.ServiceName+"-ssh", cfg.ServiceVersion)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	store := eventstore.New(db.Pool, tracer)
	assets := assetregistry.New(store, tracer, 5*time.Minute)
	_ = assets.Start(ctx)
	assets.StartAutoReload(ctx)

	convRepo := newConversationRepoFunc(db.Pool, tracer)

	var alerts *alerter.Alerter
	if transport, err := bot.NewTelegramBot(); err == nil && transport != nil {
		alerts = alerter.New(transport, tracer)
	}

	var advisorSvc *advisor.AdvisorService
	if cfg.LLMAPIKey != "" {
		llmClient := newOpenAIClientFunc(cfg.LLMAPIKey)
		var alertMetrics advisor.AlerterMetrics
		if alerts != nil {
			alertMetrics = alerts
		}
		advisorSvc = newAdvisorServiceFunc(tracer, llmClient, store, alertMetrics, assets,
			convRepo, cfg.LLMModel, cfg.AdvisorMaxHistory)
		log.Println("ssh: advisor service enabled")
	} else {
		log.Println("ssh: LLM_API_KEY not set, advisor disabled (console still starts)")
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(sshCtx ssh.Context, key ssh.PublicKey) bool {
			fingerprint := gossh.FingerprintSHA256(key)
			if !fingerprintAllowed(cfg.SSHAllowedFingerprints, fingerprint) {
				log.Printf("ssh: auth denied user=%s fingerprint=%s", sshCtx.User(), fingerprint)
				return false
			}
			sshCtx.SetValue(sshUsernameKey, sshCtx.User())
			log.Printf("ssh: auth accepted user=%s fingerprint=%s", sshCtx.User(), fingerprint)
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				username, _ := s.Context().Value(sshUsernameKey).(string)
				if username == "" {
					username = s.User()
				}

				var advisorQ tui.AdvisorQuerier
				if advisorSvc != nil {
					advisorQ = advisorSvc
				}
				var alertCounters tui.AlertCounters
				if alerts != nil {
					alertCounters = alerterCounters{alerts}
				}

				model := tui.NewAppModel(tui.Services{
					Advisor:  advisorQ,
					Status:   store,
					Alerts:   alertCounters,
					UserID:   sessionChatID(s),
					Username: username,
				})

				if pty, _, ok := s.Pty(); ok {
					model.SetSize(pty.Window.Width, pty.Window.Height)
				}

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}

	log.Println("SSH server exited")
}

// alerterCounters adapts *alerter.Alerter's Metrics() to tui.AlertCounters,
// which can't import internal/alerter without creating an import cycle
// back through internal/advisor's own AlerterMetrics interface.
type alerterCounters struct {
	a *alerter.Alerter
}

func (c alerterCounters) Metrics() tui.AlertMetricsSnapshot {
	m := c.a.Metrics()
	return tui.AlertMetricsSnapshot{Sent: m.Sent, Suppressed: m.Suppressed, Failed: m.Failed}
}

// fingerprintAllowed reports whether fp is in the configured allowlist. An
// empty allowlist (SSH_ALLOWED_FINGERPRINTS unset) accepts any key, logged
// as a startup warning in config.Load.
func fingerprintAllowed(allowed []string, fp string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, fp) {
			return true
		}
	}
	return false
}

// sessionChatID derives a stable per-session identity for the advisor's
// conversation history keying (conversation_messages is keyed by an int64
// chat_id regardless of transport). FNV-1a over the SSH username keeps
// the console's thread independent of the Telegram bot's chat IDs.
func sessionChatID(s ssh.Session) int64 {
	var h uint64 = 14695981039346656037
	for _, b := range []byte(s.User()) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return int64(h &^ (1 << 63))
}
