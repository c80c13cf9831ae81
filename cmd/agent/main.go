package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"coachai/internal/adapters/ai"
	"coachai/internal/adapters/cloudformation"
	"coachai/internal/adapters/config"
	"coachai/internal/adapters/errors/noop"
	"coachai/internal/adapters/errors/sentry"
	"coachai/internal/adapters/memory"
	"coachai/internal/api"
	"coachai/internal/coach"
	"coachai/internal/gateway"
	"coachai/internal/metrics"
	"coachai/internal/session"
	"coachai/internal/tools"
	"coachai/pkg/errors"
	"coachai/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}

	// Resolve runtime identifiers before serving anything: a partially
	// configured agent must not accept traffic.
	settings, err := config.Resolve(ctx, cfg, cloudformation.New(awsCfg))
	if err != nil {
		log.Fatalf("Failed to resolve runtime configuration: %v", err)
	}
	log.Infof("Runtime configuration resolved (model=%s, gateway=%s)", settings.ModelID, settings.GatewayID)

	metrics.Init()

	healthCoach := initCoach(cfg, settings, awsCfg, log)

	server := api.NewServer(api.ServerConfig{
		Port:        cfg.Server.Port,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	}, api.NewInvocationHandler(healthCoach), log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, cfg, server, errorTracker, log)
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(logger.ResolveLevel(cfg.App.LogLevel, cfg.App.Env), cfg.App.Env)
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

// initCoach wires the memory store, gateway tools, model provider and session
// binder into the streaming coach.
func initCoach(cfg *config.Config, settings *config.Settings, awsCfg aws.Config, log *logger.Logger) *coach.Coach {
	store := memory.New(awsCfg, settings.MemoryID)

	gw := gateway.New(gateway.Config{
		Endpoint:          settings.GatewayEndpoint(),
		Timeout:           cfg.Gateway.Timeout,
		RequestsPerMinute: cfg.Gateway.RequestsPerMinute,
	})

	registry := tools.NewRegistry()
	registry.Register(tools.NewListHealthTools(gw))
	registry.Register(tools.NewHealthManagerMCP(gw))
	log.Infof("Registered agent tools: %v", registry.List())

	return coach.New(coach.Config{
		AppName:  cfg.App.Name,
		ModelID:  settings.ModelID,
		Provider: ai.NewBedrockProvider(awsCfg),
		Binder:   session.NewBinder(store),
		Registry: registry,
	})
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, server *api.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}

	cancel()

	// Flush error tracker
	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
