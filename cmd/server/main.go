package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialcontext/internal/alerter"
	"socialcontext/internal/assetregistry"
	"socialcontext/internal/bot"
	"socialcontext/internal/cache"
	"socialcontext/internal/config"
	"socialcontext/internal/db"
	"socialcontext/internal/domain"
	"socialcontext/internal/dqm"
	"socialcontext/internal/enrich"
	"socialcontext/internal/eventstore"
	"socialcontext/internal/fetchclient"
	"socialcontext/internal/handler"
	"socialcontext/internal/ingest"
	"socialcontext/internal/llmclassifier"
	"socialcontext/internal/mcpserver"
	"socialcontext/internal/scheduler"
	"socialcontext/internal/sourceregistry"
	"socialcontext/internal/state"
	"socialcontext/internal/timesync"
	"socialcontext/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "socialcontext/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	runSchedulerFunc       = func(s *scheduler.Scheduler, ctx context.Context) { go s.Run(ctx) }
	startFearGreedPollerFunc = func(p *fetchclient.FearGreedPoller, ctx context.Context) {
		go p.Run(ctx, time.Hour)
	}
	runMCPServerFunc = func(s *mcpserver.Server, ctx context.Context) {
		go func() {
			if err := s.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("mcpserver: exited: %v", err)
			}
		}()
	}
)

const cursorStatePath = "scheduler_cursors.json"

// @title           Social Context API
// @version         1.0
// @description     Read interface over aggregated social sentiment, risk indicators, and data quality (spec §6).

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg)
	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	store := eventstore.New(db.Pool, tracer)

	sourceTTL := 5 * time.Minute
	twitterSources := sourceregistry.New(domain.SourceTwitter, store, tracer, sourceTTL)
	redditSources := sourceregistry.New(domain.SourceReddit, store, tracer, sourceTTL)
	telegramSources := sourceregistry.New(domain.SourceTelegram, store, tracer, sourceTTL)
	assets := assetregistry.New(store, tracer, sourceTTL)

	transport, err := bot.NewTelegramBot()
	if err != nil {
		log.Fatalf("bot: failed to build telegram transport: %v", err)
	}
	var alertTransport alerter.Transport = alerter.NoopTransport{}
	if transport != nil {
		alertTransport = transport
		log.Println("alerter: outbound telegram channel configured")
	} else {
		log.Println("alerter: no TELEGRAM_BOT_TOKEN/TELEGRAM_CHANNEL_ID, alerts will not be sent")
	}
	alertSvc := alerter.New(alertTransport, tracer)

	classifier := newClassifier(cfg)
	guard := timesync.New()
	sentimentStage := enrich.NewSentimentStage(classifier)
	riskStage := enrich.NewRiskStage()

	var fgSource enrich.FearGreedSource
	fgPoller := fetchclient.NewFearGreedPoller(tracer)
	fgSource = fgPoller
	startFearGreedPollerFunc(fgPoller, ctx)

	anomalyScorer := dqm.NewIForestAnomalyScorer(512, 64)
	monitor := dqm.New(tracer, anomalyScorer)
	qualityAdapter := dqm.NewSchedulerAdapter(monitor, store, alertSvc)

	pipeline := enrich.NewPipeline(guard, sentimentStage, riskStage, store, monitor, fgSource, tracer).
		WithAlertNotifier(alertSvc)

	twitterFetcher := fetchclient.UnconfiguredTwitterFetcher{}
	telegramFetcher := fetchclient.UnconfiguredTelegramFetcher{}
	redditFetcher := fetchclient.NewRedditJSONFetcher(tracer)

	twitterWorker := ingest.NewTwitterWorker(twitterSources, assets, twitterFetcher, pipeline, tracer)
	redditWorker := ingest.NewRedditWorker(redditSources, assets, redditFetcher, pipeline, tracer)
	telegramWorker := ingest.NewTelegramWorker(telegramSources, assets, telegramFetcher, pipeline, tracer)

	cursorStore, cursors := state.Open(cursorStatePath)
	sched := scheduler.New(cursorStore, cursors)
	sched.AddSourceLoop(domain.SourceTwitter, twitterWorker, pollInterval(cfg.TwitterPollSecs, 30*time.Second))
	sched.AddSourceLoop(domain.SourceReddit, redditWorker, pollInterval(cfg.RedditPollSecs, 5*time.Minute))
	sched.AddSourceLoop(domain.SourceTelegram, telegramWorker, pollInterval(cfg.TelegramPollSecs, time.Minute))
	sched.SetQualityUpdater(qualityAdapter, pollInterval(cfg.DQMPollSecs, 5*time.Minute))
	runSchedulerFunc(sched, ctx)

	mcpSrv := mcpserver.New(cfg, store)
	runMCPServerFunc(mcpSrv, ctx)

	h := handler.New(tracer, store)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("socialcontext"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

// newClassifier builds the optional LLM fallback sentiment classifier
// (spec §4.5), falling back to the lexicon-only NoopClassifier when no
// LLM_API_KEY is configured.
func newClassifier(cfg *config.Config) llmclassifier.Classifier {
	if cfg.LLMAPIKey == "" {
		return llmclassifier.NoopClassifier{}
	}
	return llmclassifier.NewOpenAIClassifier(cfg.LLMAPIKey, cfg.LLMModel)
}

// pollInterval converts a configured poll interval in seconds to a
// Duration, falling back to def when unset or non-positive.
func pollInterval(secs int, def time.Duration) time.Duration {
	if secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}
