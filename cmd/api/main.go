package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/retailradar/retailradar/internal/cache"
	"github.com/retailradar/retailradar/internal/config"
	"github.com/retailradar/retailradar/internal/database"
	"github.com/retailradar/retailradar/internal/handler"
	"github.com/retailradar/retailradar/internal/middleware"
	"github.com/retailradar/retailradar/internal/repository"
	"github.com/retailradar/retailradar/internal/service"
	"github.com/retailradar/retailradar/internal/source"
	"github.com/retailradar/retailradar/internal/utils"
	"github.com/retailradar/retailradar/internal/worker"
	"github.com/retailradar/retailradar/pkg/rapidapi"
	"github.com/retailradar/retailradar/pkg/stockx"
)

// main is the application entrypoint for the RetailRadar API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting retailradar api")

	utils.SetJWTSecret(cfg.JWTSecret)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 3c. Initialize page cache
	pageCache := cache.NewPageCache(redisClient, cfg.Cache.TTL)

	// 4. Initialize data sources in priority order. Sources without
	// credentials are left unregistered rather than registered broken.
	var sources []source.SourceConfig
	if cfg.StockX.APIKey != "" {
		client := stockx.NewClient(stockx.Config{
			BaseURL:   cfg.StockX.BaseURL,
			APIKey:    cfg.StockX.APIKey,
			UserAgent: cfg.Scraper.UserAgent,
		})
		sources = append(sources, source.SourceConfig{
			Source:     source.NewOfficialSource(client),
			Name:       "official-stockx-api",
			Priority:   1,
			RetryCount: 3,
			RetryDelay: 2 * time.Second,
		})
		log.Info().Msg("Official StockX source registered")
	}
	if cfg.RapidAPI.APIKey != "" {
		client := rapidapi.NewClient(cfg.RapidAPI.APIKey, cfg.RapidAPI.BaseURL)
		sources = append(sources, source.SourceConfig{
			Source:     source.NewRapidAPISource(client),
			Name:       "rapidapi-stockx",
			Priority:   2,
			RetryCount: 3,
			RetryDelay: 2 * time.Second,
		})
		log.Info().Msg("RapidAPI source registered")
	}
	sources = append(sources, source.SourceConfig{
		Source:     source.NewScraperSource(cfg.Scraper.UserAgent, cfg.Scraper.RequestDelay),
		Name:       "html-scraper",
		Priority:   3,
		RetryCount: 2,
		RetryDelay: 5 * time.Second,
	})
	log.Info().Msg("HTML scraper source registered (fallback)")

	orchestrator := source.NewOrchestrator(sources)

	// 5. Initialize repositories
	catalogRepo := repository.NewCatalogRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// 6. Initialize services
	catalogSvc := service.NewCatalogService(orchestrator, catalogRepo, pageCache, cfg.Worker.FetchTimeout)
	adminAuthSvc := service.NewAdminAuthService(adminRepo)

	// 6a. Bootstrap admin account
	if err := adminAuthSvc.EnsureAdmin(cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Warn().Err(err).Msg("admin bootstrap failed")
	}

	// 7. Initialize handlers
	handlers := &Handlers{
		Health:  handler.NewHealthHandler(catalogSvc),
		Catalog: handler.NewCatalogHandler(catalogSvc),
		Auth:    handler.NewAuthHandler(adminAuthSvc),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	go worker.NewRefreshWorker(catalogSvc, cfg.Worker.RefreshInterval, cfg.Worker.RefreshBrands, cfg.Worker.FetchTimeout).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health  *handler.HealthHandler
	Catalog *handler.CatalogHandler
	Auth    *handler.AuthHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)

	brands := router.Group("/v1/brands")
	{
		brands.GET("/:brandName/below-retail", handlers.Catalog.GetBelowRetail)
		brands.GET("/:brandName/adapter-stats", handlers.Catalog.GetAdapterStats)
		brands.GET("/:brandName/health", handlers.Catalog.GetSourceHealth)
	}

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.POST("/auth/login", handlers.Auth.Login)
	admin.Use(jwtMiddleware.Handle())
	{
		admin.POST("/brands/:brandName/reset-circuit-breakers", handlers.Catalog.ResetCircuitBreakers)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
