package main

import (
	"context"
	"log"

	"donation-api/internal/api"
	"donation-api/internal/config"
	"donation-api/internal/database"
	"donation-api/internal/middleware"
	"donation-api/internal/services"
	"donation-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	if err := logging.InitLogging(cfg.LogLevel, cfg.Mode); err != nil {
		log.Fatal("Failed to initialize logging:", err)
	}
	defer logging.Sync()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	db := database.GetDB()
	redisClient := database.GetRedis()

	directoryService := services.NewDirectoryService(database.NewDirectoryStore(db))
	var directory services.Directory = directoryService
	if redisClient != nil {
		directory = services.NewCachedDirectory(directoryService, redisClient, cfg.DirectoryCacheTTL)
	}

	// Both counters start above every ID already stored, whichever one issued it
	ctx := context.Background()
	floor, err := services.SequenceFloor(ctx, db, cfg.IDPrefix)
	if err != nil {
		log.Fatal("Failed to read transaction sequence:", err)
	}
	var ids services.IDGenerator = services.NewDBSequence(db, cfg.IDPrefix)
	if err := ids.Seed(ctx, floor); err != nil {
		log.Fatal("Failed to seed transaction sequence:", err)
	}
	if redisClient != nil {
		redisIDs := services.NewRedisSequence(redisClient, cfg.IDPrefix, services.DatabaseFloor(db, cfg.IDPrefix))
		if err := redisIDs.Seed(ctx, floor); err != nil {
			logging.Warnf("Redis sequence not seeded, using database sequence: %v", err)
		} else {
			ids = redisIDs
		}
	}
	logging.Infof("Transaction sequence starts after %d", floor)

	notifiers := services.MultiNotifier{services.LogNotifier{}}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, services.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookSecret))
	}
	if cfg.BrevoAPIKey != "" {
		notifiers = append(notifiers, services.NewBrevoService(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName))
	}

	transactionService := services.NewTransactionService(
		database.NewTransactionStore(db),
		directory,
		ids,
		notifiers,
		services.TransactionServiceConfig{
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
		},
	)

	idempotency := services.NewIdempotencyGuard(cfg.IdempotencyTTL)
	defer idempotency.Stop()

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())

	// Setup routes
	api.SetupRoutes(r, api.Handlers{
		Transactions: api.NewTransactionHandler(transactionService, idempotency),
		Directory:    api.NewDirectoryHandler(directoryService, directory),
		APIKey:       cfg.APIKey,
	})

	// Start server
	logging.Infof("Starting server on port %s", cfg.Port)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
