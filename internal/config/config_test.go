package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("TWITTER_POLL_SECS", "")

	cfg := Load()
	if cfg.DBHost != "localhost" {
		t.Fatalf("expected default db host, got %s", cfg.DBHost)
	}
	if cfg.DBPort != 5432 {
		t.Fatalf("expected default db port 5432, got %d", cfg.DBPort)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.TwitterPollSecs != 10 {
		t.Fatalf("expected default twitter poll secs 10, got %d", cfg.TwitterPollSecs)
	}
	if cfg.RedditPollSecs != 300 {
		t.Fatalf("expected default reddit poll secs 300, got %d", cfg.RedditPollSecs)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "socialcontext")
	t.Setenv("DB_USER", "app")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHANNEL_ID", "-100123")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("TWITTER_POLL_SECS", "15")

	cfg := Load()
	if cfg.DBHost != "db.internal" || cfg.DBPort != 5433 || cfg.DBName != "socialcontext" || cfg.DBUser != "app" {
		t.Fatalf("unexpected db config: %+v", cfg)
	}
	if cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected redis url: %s", cfg.RedisURL)
	}
	if cfg.TelegramBotToken != "token" || cfg.TelegramChannelID != "-100123" {
		t.Fatalf("unexpected telegram outbound config: %+v", cfg)
	}
	if cfg.LLMAPIKey != "sk-test" {
		t.Fatalf("unexpected llm api key: %s", cfg.LLMAPIKey)
	}
	if cfg.TwitterPollSecs != 15 {
		t.Fatalf("expected twitter poll secs 15, got %d", cfg.TwitterPollSecs)
	}

	t.Setenv("TWITTER_POLL_SECS", "not-a-number")
	cfg = Load()
	if cfg.TwitterPollSecs != 10 {
		t.Fatalf("invalid poll secs should fall back to default, got %d", cfg.TwitterPollSecs)
	}
}

func TestLoadServiceNameDefaultsAndOverrides(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_SERVICE_VERSION", "")

	cfg := Load()
	if cfg.ServiceName != "socialcontext" || cfg.ServiceVersion != "1.0.0" {
		t.Fatalf("expected default service identity, got %+v", cfg)
	}

	t.Setenv("OTEL_SERVICE_NAME", "socialcontext-worker")
	t.Setenv("OTEL_SERVICE_VERSION", "2.1.0")
	cfg = Load()
	if cfg.ServiceName != "socialcontext-worker" || cfg.ServiceVersion != "2.1.0" {
		t.Fatalf("expected overridden service identity, got %+v", cfg)
	}
}

func TestUnknownVariablesAreIgnored(t *testing.T) {
	t.Setenv("SOME_UNRELATED_VARIABLE", "whatever")
	if cfg := Load(); cfg == nil {
		t.Fatal("expected Load to succeed regardless of unrelated environment variables")
	}
}
