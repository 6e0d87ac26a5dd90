package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/tune/internal/api"
	"github.com/MikeSquared-Agency/tune/internal/config"
	"github.com/MikeSquared-Agency/tune/internal/hermes"
	"github.com/MikeSquared-Agency/tune/internal/metrics"
	"github.com/MikeSquared-Agency/tune/internal/perspective"
	"github.com/MikeSquared-Agency/tune/internal/processor"
	"github.com/MikeSquared-Agency/tune/internal/scorecache"
	"github.com/MikeSquared-Agency/tune/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("tune starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.SetDefaultThreshold(cfg.DefaultThreshold); err != nil {
		slog.Error("invalid TUNE_DEFAULT_THRESHOLD", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected")

	// Classifier
	if cfg.PerspectiveAPIKey == "" {
		slog.Error("PERSPECTIVE_API_KEY is required")
		os.Exit(1)
	}
	classifier := perspective.NewClient(cfg.PerspectiveAPIKey, cfg.PerspectiveURL,
		cfg.BreakerMaxFailures, cfg.BreakerTimeout)
	slog.Info("classifier client ready", "url", cfg.PerspectiveURL)

	m := metrics.New()

	// Score cache (optional, Tune scores every comment without it)
	var cache *scorecache.Cache
	if cfg.RedisURL != "" {
		rdb, err := scorecache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		cache = scorecache.New(rdb, cfg.ScoreCacheTTL)
		slog.Info("score cache ready", "ttl", cfg.ScoreCacheTTL)
	} else {
		slog.Warn("redis not configured, running without score cache")
	}
	scorer := scorecache.NewScorer(cache, classifier, m, slog.Default())

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	proc := processor.New(db, scorer, classifier, hermesClient, m, slog.Default())

	// Settings saved on other replicas invalidate our cached copy.
	if err := hermesClient.Subscribe(hermes.SubjectSettingsChanged, proc.HandleSettingsChanged); err != nil {
		slog.Error("failed to subscribe to settings events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	if cfg.APIToken == "" {
		slog.Warn("TUNE_API_TOKEN not set, API authentication disabled")
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, proc, m.Handler())
	srv.SetEventBus(hermesClient)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if err := hermesClient.Publish(hermes.SubjectServiceRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("tune ready", "port", cfg.Port, "default_threshold", cfg.DefaultThreshold)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("tune stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
