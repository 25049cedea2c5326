package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/auth"
	"gitlab.com/voxlane/api/voicedash/internal/cache"
	"gitlab.com/voxlane/api/voicedash/internal/config"
	"gitlab.com/voxlane/api/voicedash/internal/httpserver"
	"gitlab.com/voxlane/api/voicedash/internal/observer"
	"gitlab.com/voxlane/api/voicedash/internal/provider"
	"gitlab.com/voxlane/api/voicedash/internal/storage"
	"gitlab.com/voxlane/api/voicedash/internal/syncjob"
	"gitlab.com/voxlane/api/voicedash/internal/usecase"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

const agentNameCacheTTL = 5 * time.Minute

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting Voicedash API",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
		zap.String("nats_url", cfg.NATS.URL),
	)

	if cfg.Auth.JWTSecret == "" {
		logger.Log.Fatal("AUTH_JWT_SECRET is required")
	}
	if cfg.Provider.APIKey == "" {
		logger.Log.Fatal("PROVIDER_API_KEY is required")
	}

	postgresRepo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	jsClient, err := syncjob.NewClient(cfg.NATS.URL)
	if err != nil {
		logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
	}

	providerClient := provider.NewHTTPClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout)
	agentNames := cache.NewAgentNameCache(agentNameCacheTTL)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	authService := usecase.NewAuthService(postgresRepo, tokens)
	userService := usecase.NewUserService(postgresRepo)
	conversationService := usecase.NewConversationService(postgresRepo, postgresRepo.TranscriptStore(), providerClient, agentNames)
	metricsService := usecase.NewMetricsService(postgresRepo)
	agentService := usecase.NewAgentService(providerClient, postgresRepo, agentNames)

	syncer, err := usecase.NewSyncer(cfg.Sync.Workers, postgresRepo, providerClient, agentNames, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize syncer", zap.Error(err))
	}

	queue := syncjob.NewQueue(jsClient, syncer, cfg.NATS)
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := queue.Setup(setupCtx); err != nil {
		setupCancel()
		logger.Log.Fatal("Failed to set up sync job queue", zap.Error(err))
	}
	setupCancel()
	if err := queue.Start(); err != nil {
		logger.Log.Fatal("Failed to start sync job consumer", zap.Error(err))
	}

	scheduler := syncjob.NewScheduler(cfg.Sync.Interval, queue.Enqueue)
	scheduler.Start()

	server := httpserver.NewServer(
		cfg.Server.Port,
		authService,
		userService,
		conversationService,
		metricsService,
		agentService,
		queue.Enqueue,
		metricsEnabled,
	)
	server.Start()

	logger.Log.Info("Voicedash API ready",
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.Bool("metrics_enabled", metricsEnabled),
	)

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	var wg sync.WaitGroup
	wg.Add(4)

	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping HTTP server")
		start := time.Now()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping HTTP server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] HTTP server stopped", zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping HTTP server", zap.Any("panic", r), zap.ByteString("stack", stack))
		wg.Done()
	})

	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping sync scheduler and consumer")
		start := time.Now()
		scheduler.Stop()
		queue.Stop()
		logger.Log.Info("[shutdown] Sync scheduler and consumer stopped", zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping sync consumer", zap.Any("panic", r), zap.ByteString("stack", stack))
		wg.Done()
	})

	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping backfill worker pool")
		start := time.Now()
		syncer.Stop()
		logger.Log.Info("[shutdown] Backfill worker pool stopped", zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping backfill worker pool", zap.Any("panic", r), zap.ByteString("stack", stack))
		wg.Done()
	})

	utils.SafeGo(func() {
		defer wg.Done()

		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		pgStart := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed", zap.Duration("duration", time.Since(pgStart)))
		}

		logger.Log.Info("[shutdown] Closing JetStream connection")
		jsStart := time.Now()
		jsClient.Close()
		logger.Log.Info("[shutdown] JetStream connection closed", zap.Duration("duration", time.Since(jsStart)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections", zap.Any("panic", r), zap.ByteString("stack", stack))
		wg.Done()
	})

	waitCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}

	logger.Log.Info("Voicedash API shutdown complete")
}

func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}
