// cmd/cinesense/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cinesense/internal/api"
	"cinesense/internal/common/cache"
	"cinesense/internal/common/camunda"
	"cinesense/internal/common/config"
	"cinesense/internal/common/database"
	"cinesense/internal/common/genai"
	"cinesense/internal/common/logger"
	"cinesense/internal/common/observability"
	"cinesense/internal/common/tmdb"
	"cinesense/pkg/registry"

	ac "cinesense/internal/workers/recommendation/analyze-conversation"
	rc "cinesense/internal/workers/recommendation/rerank-candidates"
	rr "cinesense/internal/workers/recommendation/resolve-recommendations"
)

const activitiesPath = "configs/activities.json"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting cinesense...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("envFile", cfg.EnvFile),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel metrics disabled", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var checks []api.ReadinessCheck

	// --- Cache backend ---
	var store cache.Store = cache.NewMemory()
	if cfg.Cache.Backend == "redis" {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()

		store = cache.NewRedis(redisClient.Client, cfg.Cache.KeyPrefix, log)
		checks = append(checks, api.ReadinessCheck{Name: "redis", Check: redisClient.Ping})
		zapLog.Info("Redis connected successfully")
	}

	// --- External clients ---
	catalog, err := tmdb.NewClient(cfg.TMDB, log)
	if err != nil {
		zapLog.Fatal("tmdb client setup failed", zap.Error(err))
	}
	defer catalog.Close()
	if !catalog.Configured() {
		zapLog.Warn("TMDB_ACCESS_TOKEN not set; recommendations will not be enriched")
	}

	gateway := genai.New(cfg.GenAI, log, genai.WithTracer(obs.Tracer()))
	zapLog.Info("generation chain ready", zap.Strings("providers", gateway.Providers()))

	// --- Pipeline stages ---
	analyzer := ac.NewHandler(ac.LoadConfig(cfg), gateway, store, log)
	resolver := rr.NewHandler(rr.LoadConfig(cfg), gateway, catalog, log)
	reranker := rc.NewHandler(rc.LoadConfig(cfg), store, log)

	activities, err := registry.LoadRegistry(activitiesPath)
	if err != nil {
		zapLog.Warn("activity registry not loaded", zap.String("path", activitiesPath), zap.Error(err))
	}

	// --- Optional Zeebe workers ---
	if cfg.Camunda.BrokerAddress != "" {
		zeebe, err := camunda.Connect(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		zapLog.Info("Zeebe client connected successfully")

		workers := camunda.NewRegistry(zeebe.Zeebe(), obs, log).WithActivities(activities)
		defer workers.Close()

		workers.Register(ac.TaskType, config.GetWorkerConfig(cfg, ac.TaskType), analyzer.Handle)
		workers.Register(rr.TaskType, config.GetWorkerConfig(cfg, rr.TaskType), resolver.Handle)
		workers.Register(rc.TaskType, config.GetWorkerConfig(cfg, rc.TaskType), reranker.Handle)

		checks = append(checks, api.ReadinessCheck{Name: "zeebe", Check: zeebe.HealthCheck})
		zapLog.Info("workers registered", zap.Strings("taskTypes", workers.TaskTypes()))
	}

	// --- HTTP server ---
	server := api.NewServer(cfg, api.Dependencies{
		Analyzer:      analyzer,
		Resolver:      resolver,
		Reranker:      reranker,
		Catalog:       catalog,
		Checks:        checks,
		Activities:    activities,
		Observability: obs,
		Logger:        log,
	}).HTTPServer()

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("cinesense stopped gracefully")
}
