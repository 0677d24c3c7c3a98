package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dealscope/internal/adapters/ai"
	"dealscope/internal/adapters/config"
	"dealscope/internal/adapters/errors/noop"
	"dealscope/internal/adapters/errors/sentry"
	"dealscope/internal/adapters/news"
	"dealscope/internal/adapters/postgres"
	"dealscope/internal/adapters/redis"
	"dealscope/internal/adapters/telegram"
	"dealscope/internal/api"
	"dealscope/internal/api/health"
	"dealscope/internal/metrics"
	"dealscope/internal/pipeline"
	repo "dealscope/internal/repository/postgres"
	"dealscope/pkg/errors"
	"dealscope/pkg/logger"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Initialize metrics registry
	metrics.Init()

	// Initialize storage
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize the analysis pipeline
	p, err := buildPipeline(cfg, pgClient, redisClient)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	log.Info("System initialized successfully")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP server
	healthHandler := health.New(log, pgClient.DB(), redisClient.Client(), cfg.App.Name, version)
	queryHandler := api.NewQueryHandler(p, cfg.Pipeline.RequestTimeout, log)
	server := api.NewServer(api.ServerConfig{
		Port:        cfg.Server.Port,
		ServiceName: cfg.App.Name,
		Version:     version,
	}, healthHandler, queryHandler, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	// Register data-freshness collector
	collector := metrics.NewCustomCollector(log, pgClient.DB(), redisClient.Client(), cfg.Tables.OpenDeals, cfg.Tables.ShapFactors)
	if err := metrics.Register(collector); err != nil {
		log.Warnf("Failed to register custom collector: %v", err)
	}

	// Start Telegram bot when configured
	if cfg.Telegram.BotToken != "" {
		startBot(ctx, cfg, p, log)
	} else {
		log.Info("Telegram bot token not set, bot disabled")
	}

	// Wait for shutdown signal
	waitForShutdown(ctx, cancel, server, errorTracker, log)
}

// buildPipeline wires repositories, providers and steps into the request
// driver.
func buildPipeline(cfg *config.Config, pg *postgres.Client, rdb *redis.Client) (*pipeline.Pipeline, error) {
	chat, err := ai.BuildProvider(cfg.AI)
	if err != nil {
		return nil, errors.Wrap(err, "init AI provider")
	}

	searcher, err := news.NewClient(news.Config{
		Endpoint:     cfg.News.Endpoint,
		APIKey:       cfg.News.APIKey,
		ReqPerMinute: cfg.News.ReqPerMinute,
		Cache:        rdb,
		CacheTTL:     cfg.News.CacheTTL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init news client")
	}

	dealRepo := repo.NewDealRepository(pg.DB(), cfg.Tables.OpenDeals)
	factorRepo := repo.NewFactorRepository(pg.DB(), cfg.Tables.ShapFactors)

	return pipeline.New(pipeline.Config{
		Router:      pipeline.NewIntentRouter(chat, cfg.Tables.OpenDeals),
		Retrieval:   pipeline.NewRetrievalStep(chat, dealRepo, cfg.Tables.OpenDeals),
		Explain:     pipeline.NewExplainStep(chat, factorRepo, cfg.Pipeline.MaxExplainRows),
		News:        pipeline.NewNewsStep(searcher, cfg.News.MaxSnippets),
		Aggregator:  pipeline.NewAggregator(pipeline.NewChatNarrativeProvider(chat)),
		StepTimeout: cfg.Pipeline.StepTimeout,
	}), nil
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// startBot starts the Telegram bot in polling mode
func startBot(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, log *logger.Logger) {
	bot, err := telegram.NewBot(telegram.Config{
		Token:   cfg.Telegram.BotToken,
		Debug:   cfg.App.Debug,
		Timeout: cfg.Telegram.Timeout,
	}, log)
	if err != nil {
		log.Errorf("Failed to create Telegram bot: %v", err)
		return
	}

	telegram.NewHandler(bot, p, cfg.Pipeline.RequestTimeout, log)

	go func() {
		if err := bot.Start(ctx); err != nil {
			log.Errorf("Telegram bot error: %v", err)
		}
	}()
	log.Info("Telegram bot started")
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, server *api.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("Shutting down...")

	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Warnf("HTTP server shutdown failed: %v", err)
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(context.Background()); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
