package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds every environment-derived setting (spec §6: "unknown
// variables are ignored"). Load never fails: missing required values are
// logged as warnings here and only become fatal in cmd/*'s own startup
// checks, matching the teacher's Load()/fatal-at-the-edge split.
type Config struct {
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	RedisURL string

	// Telegram ingestion credentials (reading public channels), distinct
	// from the outbound alert bot below per spec §6.
	TelegramAPIID       string
	TelegramAPIHash     string
	TelegramPhone       string
	TelegramSessionFile string

	// Outbound alert channel.
	TelegramBotToken  string
	TelegramChannelID string

	// Optional fallback sentiment classifier.
	LLMAPIKey string
	LLMModel  string

	// Optional upstream transport proxy.
	ProxyURL string

	TwitterPollSecs  int
	TelegramPollSecs int
	RedditPollSecs   int
	DQMPollSecs      int

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int

	AdvisorMaxHistory int

	// Operator SSH console (cmd/ssh).
	SSHPort                int
	SSHHostKeyPath         string
	SSHAllowedFingerprints []string

	// OTel resource identity (pkg/tracing).
	ServiceName    string
	ServiceVersion string
}

func Load() *Config {
	cfg := &Config{
		DBHost:     envOr("DB_HOST", "localhost"),
		DBName:     os.Getenv("DB_NAME"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),

		RedisURL: os.Getenv("REDIS_URL"),

		TelegramAPIID:       os.Getenv("TELEGRAM_API_ID"),
		TelegramAPIHash:     os.Getenv("TELEGRAM_API_HASH"),
		TelegramPhone:       os.Getenv("TELEGRAM_PHONE"),
		TelegramSessionFile: envOr("TELEGRAM_SESSION_FILE", "telegram.session"),

		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChannelID: os.Getenv("TELEGRAM_CHANNEL_ID"),

		LLMAPIKey: os.Getenv("LLM_API_KEY"),
		LLMModel:  envOr("LLM_MODEL", "gpt-4o-mini"),

		ProxyURL: os.Getenv("PROXY_URL"),

		MCPAuthToken: os.Getenv("MCP_AUTH_TOKEN"),
	}

	cfg.DBPort = intOr("DB_PORT", 5432)
	if cfg.DBName == "" {
		log.Println("Warning: DB_NAME not set")
	}
	if cfg.DBUser == "" {
		log.Println("Warning: DB_USER not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	if cfg.TelegramAPIID == "" || cfg.TelegramAPIHash == "" {
		log.Println("Warning: TELEGRAM_API_ID/TELEGRAM_API_HASH not set, Telegram ingestion worker will be disabled")
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramChannelID == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN/TELEGRAM_CHANNEL_ID not set, outbound alerts will be disabled")
	}
	if cfg.LLMAPIKey == "" {
		log.Println("Warning: LLM_API_KEY not set, sentiment fallback classifier disabled (rule engine still runs)")
	}

	cfg.TwitterPollSecs = intOr("TWITTER_POLL_SECS", 10)
	cfg.TelegramPollSecs = intOr("TELEGRAM_POLL_SECS", 20)
	cfg.RedditPollSecs = intOr("REDDIT_POLL_SECS", 300)
	cfg.DQMPollSecs = intOr("DQM_POLL_SECS", 60)

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}

	cfg.MCPHTTPPort = intOr("MCP_HTTP_PORT", 8090)
	cfg.MCPRequestTimeoutSecs = intOr("MCP_REQUEST_TIMEOUT_SECS", 5)
	cfg.MCPRateLimitPerMin = intOr("MCP_RATE_LIMIT_PER_MIN", 60)
	cfg.AdvisorMaxHistory = intOr("ADVISOR_MAX_HISTORY", 20)

	cfg.SSHPort = intOr("SSH_PORT", 2222)
	cfg.SSHHostKeyPath = envOr("SSH_HOST_KEY_PATH", ".ssh/socialcontext_host_key")
	if raw := strings.TrimSpace(os.Getenv("SSH_ALLOWED_FINGERPRINTS")); raw != "" {
		for _, fp := range strings.Split(raw, ",") {
			if fp = strings.TrimSpace(fp); fp != "" {
				cfg.SSHAllowedFingerprints = append(cfg.SSHAllowedFingerprints, fp)
			}
		}
	} else {
		log.Println("Warning: SSH_ALLOWED_FINGERPRINTS not set, the operator console will accept any public key")
	}

	cfg.ServiceName = envOr("OTEL_SERVICE_NAME", "socialcontext")
	cfg.ServiceVersion = envOr("OTEL_SERVICE_VERSION", "1.0.0")

	return cfg
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
