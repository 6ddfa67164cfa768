package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/config"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/events"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/healthcheck"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/observer"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/scheduler"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/server"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/storage"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/usecase"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.SetMetricsEnabled(metricsEnabled)

	// Log startup information
	logger.Log.Info("Starting Daisi Lead Sync",
		zap.String("environment", cfg.Environment),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
	)

	// Initialize repositories
	postgresRepo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Create repository adapters for the services
	configRepo := storage.NewSourceConfigRepoAdapter(postgresRepo)
	leadRepo := storage.NewLeadRepoAdapter(postgresRepo)
	campaignRepo := storage.NewCampaignRepoAdapter(postgresRepo)
	agentRepo := storage.NewAgentConfigRepoAdapter(postgresRepo)
	runRepo := storage.NewImportRunRepoAdapter(postgresRepo)

	// Optional run-completed event publisher
	var publisher *events.RunCompletedPublisher
	var runPublisher usecase.RunPublisher
	if cfg.NATS.Enabled {
		jsClient, err := events.NewClient(cfg.NATS.URL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
		}
		publisher = events.NewRunCompletedPublisher(jsClient, cfg.NATS.Stream, cfg.NATS.Subject)
		setupCtx, setupCancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := publisher.Setup(setupCtx); err != nil {
			setupCancel()
			logger.Log.Fatal("Failed to set up event stream", zap.Error(err))
		}
		setupCancel()
		runPublisher = publisher
	}

	// Create services
	importService := usecase.NewImportService(
		configRepo, leadRepo, campaignRepo, agentRepo, runRepo,
		nil, runPublisher, cfg.Sync,
	)
	configService := usecase.NewConfigService(configRepo, runRepo)

	// Create polling scheduler
	pollingScheduler, err := scheduler.NewPollingScheduler(
		cfg.WorkerPools.Importer,
		cfg.Sync.Timezone,
		configRepo,
		importService,
		logger.Log,
	)
	if err != nil {
		logger.Log.Fatal("Failed to initialize polling scheduler", zap.Error(err))
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := pollingScheduler.Initialize(initCtx); err != nil {
		initCancel()
		logger.Log.Fatal("Failed to start polling scheduler", zap.Error(err))
	}
	initCancel()

	// Create health check server
	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Metrics.Port), logger.Log)
	healthServer.RegisterReadinessCheck("postgres", func(ctx context.Context) error {
		sqlDB, err := postgresRepo.DB().DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	if metricsEnabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Metrics.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled for environment", zap.String("environment", cfg.Environment))
	}

	healthServer.Start()

	logger.Log.Info("Health check endpoints available",
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Metrics.Port)),
	)

	// Create and start the management API server
	apiHandler := server.NewHandler(configService, importService, pollingScheduler)
	apiServer := server.NewServer(cfg.Server.Port, server.NewRouter(apiHandler, logger.Log), logger.Log)
	apiServer.Start()

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	// Use WaitGroup to track shutdown of all components
	var wg sync.WaitGroup
	wg.Add(4)

	// Shutdown API server first so no new imports start mid-shutdown
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping API server")
		start := time.Now()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping API server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] API server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping API server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown polling scheduler, waiting for in-flight import runs
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping polling scheduler")
		start := time.Now()
		pollingScheduler.StopAll(shutdownCtx)
		logger.Log.Info("[shutdown] Polling scheduler stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping polling scheduler",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown health check server
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping health check server")
		start := time.Now()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Health check server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping health check server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Close connections last
	utils.SafeGo(func() {
		defer wg.Done()

		logger.Log.Info("[shutdown] Closing PostgreSQL connection")
		pgStart := time.Now()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] PostgreSQL connection closed",
				zap.Duration("duration", time.Since(pgStart)))
		}

		if publisher != nil {
			logger.Log.Info("[shutdown] Closing JetStream connection")
			jsStart := time.Now()
			publisher.Close()
			logger.Log.Info("[shutdown] JetStream connection closed",
				zap.Duration("duration", time.Since(jsStart)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Wait for all components to shut down or timeout
	shutdownDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		logger.Log.Info("Graceful shutdown complete")
	case <-shutdownCtx.Done():
		logger.Log.Warn("Graceful shutdown timed out")
	}
}
