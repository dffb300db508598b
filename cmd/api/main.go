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

	"github.com/connectingdocs/treatment-engine/internal/adapters/cache"
	"github.com/connectingdocs/treatment-engine/internal/adapters/database"
	"github.com/connectingdocs/treatment-engine/internal/adapters/events"
	"github.com/connectingdocs/treatment-engine/internal/adapters/search"
	"github.com/connectingdocs/treatment-engine/internal/api/handlers"
	"github.com/connectingdocs/treatment-engine/internal/api/routes"
	"github.com/connectingdocs/treatment-engine/internal/application/services"
	"github.com/connectingdocs/treatment-engine/internal/domain/providers"
	"github.com/connectingdocs/treatment-engine/internal/domain/repositories"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/openai"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/postgres"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/redis"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/typesense"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/observability"
	"github.com/connectingdocs/treatment-engine/pkg/config"
)

func main() {

	// Load configuration

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - the engine works without caching
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize Typesense client
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Printf("Warning: Failed to initialize Typesense client: %v", err)
	} else {
		log.Println("Typesense client initialized successfully")
	}

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Initialize adapters

	// Create base catalog adapter
	baseCatalogAdapter := database.NewCatalogAdapter(pgClient)

	// Wrap with caching if Redis is available (for read performance optimization)
	var catalogAdapter repositories.CatalogRepository
	if cacheProvider != nil {
		catalogAdapter = database.NewCachedCatalogAdapter(baseCatalogAdapter, cacheProvider, metrics)
		log.Println("✓ Catalog adapter wrapped with caching layer")
	} else {
		catalogAdapter = baseCatalogAdapter
		log.Println("⚠ Catalog adapter running without cache (Redis unavailable)")
	}

	reportAdapter := database.NewReportAdapter(pgClient)
	matchAdapter := database.NewMatchAdapter(pgClient)

	var searchRepo repositories.SolutionSearchRepository

	if typesenseClient != nil {

		adapter := search.NewTypesenseAdapter(typesenseClient)

		// Ensure schema exists

		if err := adapter.InitSchema(context.Background()); err != nil {

			log.Printf("Warning: Failed to init Typesense schema: %v", err)

		}

		searchRepo = adapter

	}

	// Initialize event bus for report lifecycle events
	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	var reasoningProvider providers.ReasoningProvider
	if cfg.OpenAI.APIKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set; AI reasoning disabled")
	} else {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Printf("Warning: Failed to initialize OpenAI client: %v", err)
		} else {
			reasoningProvider = openaiClient
		}
	}

	// Initialize services

	profileService := services.NewProfileService()

	recommendationService := services.NewRecommendationService(
		catalogAdapter,
		reasoningProvider,
		cfg.Engine,
		metrics,
	)

	reportService := services.NewReportService(
		profileService,
		recommendationService,
		reportAdapter,
		cacheProvider,
		eventBus,
		metrics,
	)

	matchService := services.NewProviderMatchService(
		catalogAdapter,
		searchRepo,
		matchAdapter,
	)

	// Initialize handlers

	reportHandler := handlers.NewReportHandler(reportService)

	matchHandler := handlers.NewMatchHandler(reportService, matchService)

	// Set up router

	router := routes.NewRouter(
		reportHandler,
		matchHandler,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	// Close event bus
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	log.Println("Server stopped")
}
