package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"news-sentiment-api/internal/api/config"
	delivery "news-sentiment-api/internal/api/delivery/http"
	"news-sentiment-api/internal/api/repository"
	"news-sentiment-api/internal/api/service"
	"news-sentiment-api/pkg/cache"
	"news-sentiment-api/pkg/logger"
	"news-sentiment-api/pkg/postgres"
	"news-sentiment-api/pkg/ratelimit"
	"news-sentiment-api/pkg/redis"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the news sentiment API",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting News Sentiment API", logger.Field("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize the response cache
	var cacheStore cache.Store
	switch cfg.News.CacheDriver {
	case "redis":
		redisCfg := redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}
		redisClient, err := redis.NewClient(redisCfg)
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
		}
		defer redisClient.Close()
		cacheStore = cache.NewRedisStore(redisClient.Client, cfg.News.CacheTTL)
	default:
		cacheStore = cache.NewMemoryStore(cfg.News.CacheTTL, cfg.News.CacheMaxEntries)
	}

	// Initialize repositories
	articleRepo := repository.NewArticleRepository(db.DB, cfg.News.FreshnessWindow, appLogger)
	providerRepo := repository.NewMarketauxRepository(cfg, appLogger)
	analyzerRepo := repository.NewHuggingFaceRepository(cfg, appLogger)

	// Initialize services
	limiter := ratelimit.NewKeyedLimiter(cfg.News.RateLimitWindow)
	newsSvc := service.NewNewsService(cfg, articleRepo, providerRepo, analyzerRepo, cacheStore, limiter, appLogger)

	// Start the scheduled refresher when enabled
	if cfg.Refresher.Enabled {
		refresher := service.NewRefresher(cfg, newsSvc, appLogger)
		if err := refresher.Start(ctx); err != nil {
			appLogger.Fatal("Failed to start refresher", logger.ErrorField(err))
		}
		defer refresher.Stop()
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	newsHandler := delivery.NewNewsHandler(newsSvc, limiter, appLogger)
	apiGroup := e.Group("/api")
	newsGroup := apiGroup.Group("/news")
	newsHandler.RegisterRoutes(newsGroup)

	healthHandler := delivery.NewHealthHandler(newsSvc)
	healthHandler.RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Gracefully shutdown the server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "news-sentiment-api"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-api.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing news-sentiment-api CLI: %s\n", err)
		os.Exit(1)
	}
}
