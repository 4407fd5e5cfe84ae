package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/clients/meli"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/clients/redisq"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/db"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/handlers"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/middleware"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/policy"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/server"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/services"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	adminKeyHash := utils.GetEnv("ADMIN_KEY_HASH", "", log)
	adminTokenTTL := utils.GetEnvAsDuration("ADMIN_TOKEN_TTL", time.Hour, log)
	serverPort := utils.GetEnv("SERVER_PORT", "8080", log)

	// Policy
	policyCfg := policy.Defaults()
	if path := utils.GetEnv("POLICY_FILE", "", log); path != "" {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			log.Warn("Could not read policy file, using defaults", "path", path, "error", readErr)
		} else {
			var warnings []string
			policyCfg, warnings = policy.LoadConfig(raw)
			for _, w := range warnings {
				log.Warn("Policy config warning", "warning", w)
			}
		}
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis
	redisClient, err := redisq.New(log)
	if err != nil {
		log.Warn("Redis init failed, run locking and sync signals disabled", "error", err)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	productRepo := repos.NewProductRepo(thePG, log)
	mismatchRepo := repos.NewPriceMismatchRepo(thePG, log)
	categoryConfigRepo := repos.NewCategoryConfigRepo(thePG, log)
	runRepo := repos.NewReconcileRunRepo(thePG, log)
	historyRepo := repos.NewOfferHistoryRepo(thePG, log)
	batchRepo := repos.NewValidationBatchRepo(thePG, log)

	slugs := make([]string, 0, len(policyCfg.Categories))
	for slug := range policyCfg.Categories {
		slugs = append(slugs, slug)
	}
	if err := categoryConfigRepo.EnsureDefaults(context.Background(), nil, slugs); err != nil {
		log.Warn("Category config seeding failed", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	marketClient := meli.NewClient(log)
	auditor := services.NewPriceAuditor(log, productRepo, mismatchRepo, services.DefaultMismatchThresholds())

	var runLock *redisq.RunLock
	var syncQueue *redisq.PriceSyncQueue
	if redisClient != nil {
		runLock = redisq.NewRunLock(redisClient, "locks:reconcile")
		syncQueue = redisq.NewPriceSyncQueue(redisClient, "queues:price-sync")
	}

	reconciler := services.NewReconciler(
		log,
		productRepo,
		mismatchRepo,
		runRepo,
		historyRepo,
		marketClient,
		runLock,
		syncQueue,
		auditor,
		services.DefaultGuardConfig(),
		services.DefaultReconcilerConfig(),
	)
	ingestor := services.NewIngestor(
		log,
		productRepo,
		categoryConfigRepo,
		runRepo,
		historyRepo,
		marketClient,
		syncQueue,
		policyCfg,
		services.DefaultIngestConfig(),
	)
	applier := services.NewValidationApplier(log, productRepo, batchRepo)

	// Handlers
	log.Info("Setting up Handlers from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, []byte(jwtSecretKey))
	adminHandler := handlers.NewAdminHandler(log, adminKeyHash, []byte(jwtSecretKey), adminTokenTTL)
	catalogHandler := handlers.NewCatalogHandler(log, productRepo)
	mismatchHandler := handlers.NewMismatchHandler(log, mismatchRepo)
	runsHandler := handlers.NewRunsHandler(log, runRepo, reconciler, ingestor)
	validationHandler := handlers.NewValidationHandler(log, applier)

	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		AdminHandler:      adminHandler,
		CatalogHandler:    catalogHandler,
		MismatchHandler:   mismatchHandler,
		RunsHandler:       runsHandler,
		ValidationHandler: validationHandler,
	})

	log.Info("Starting API server", "port", serverPort)
	if err := router.Run(":" + serverPort); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
