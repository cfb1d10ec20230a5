package main

import (
	"context"
	"os"
	"testing"
	"time"

	"socialcontext/internal/advisor"
	"socialcontext/internal/config"
	"socialcontext/internal/repository"

	"github.com/charmbracelet/ssh"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	restore := stubSSHDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func stubSSHDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewConvRepo := newConversationRepoFunc
	origNewOpenAIClient := newOpenAIClientFunc
	origNewAdvisor := newAdvisorServiceFunc
	origNewWishServer := newWishServerFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			RedisURL:       "",
			SSHPort:        2222,
			SSHHostKeyPath: ".ssh/test_key",
		}
	}
	initPostgresFunc = func(context.Context, *config.Config) {}
	initRedisFunc = func(context.Context, string) {}
	initTracerFunc = func(ctx context.Context, serviceName, serviceVersion string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newConversationRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.ConversationRepository {
		return nil
	}
	newOpenAIClientFunc = func(string) advisor.LLMClient { return nil }
	newAdvisorServiceFunc = func(
		trace.Tracer, advisor.LLMClient, advisor.ContextStore, advisor.AlerterMetrics,
		advisor.AssetRegistry, advisor.ConversationStore, string, int,
	) *advisor.AdvisorService {
		return nil
	}
	newWishServerFunc = func(ops ...ssh.Option) (*ssh.Server, error) {
		return nil, nil
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newConversationRepoFunc = origNewConvRepo
		newOpenAIClientFunc = origNewOpenAIClient
		newAdvisorServiceFunc = origNewAdvisor
		newWishServerFunc = origNewWishServer
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
	}
}

func TestFingerprintAllowed(t *testing.T) {
	if !fingerprintAllowed(nil, "SHA256:anything") {
		t.Fatal("expected empty allowlist to accept any fingerprint")
	}
	allowed := []string{"SHA256:abc", "SHA256:def"}
	if !fingerprintAllowed(allowed, "sha256:ABC") {
		t.Fatal("expected case-insensitive match")
	}
	if fingerprintAllowed(allowed, "SHA256:xyz") {
		t.Fatal("expected unknown fingerprint to be rejected")
	}
}

func TestSessionChatIDIsStableAndNonNegative(t *testing.T) {
	a := sessionChatID(&fakeSession{user: "alice"})
	b := sessionChatID(&fakeSession{user: "alice"})
	c := sessionChatID(&fakeSession{user: "bob"})
	if a != b {
		t.Fatal("expected same username to hash to the same chat id")
	}
	if a == c {
		t.Fatal("expected different usernames to hash to different chat ids")
	}
	if a < 0 || c < 0 {
		t.Fatal("expected non-negative chat ids")
	}
}

// fakeSession implements just enough of ssh.Session for sessionChatID.
type fakeSession struct {
	ssh.Session
	user string
}

func (f *fakeSession) User() string { return f.user }
