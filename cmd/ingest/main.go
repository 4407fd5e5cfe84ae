package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/clients/meli"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/clients/redisq"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/db"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/policy"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/services"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/utils"
)

func main() {
	once := flag.Bool("once", false, "run a single ingest batch and exit")
	interval := flag.Duration("interval", 0, "override the ingest interval")
	flag.Parse()

	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "production"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

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

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	var syncQueue *redisq.PriceSyncQueue
	redisClient, err := redisq.New(log)
	if err != nil {
		log.Warn("Redis init failed, sync signals disabled", "error", err)
	} else {
		defer redisClient.Close()
		syncQueue = redisq.NewPriceSyncQueue(redisClient, "queues:price-sync")
	}

	productRepo := repos.NewProductRepo(thePG, log)
	categoryConfigRepo := repos.NewCategoryConfigRepo(thePG, log)
	runRepo := repos.NewReconcileRunRepo(thePG, log)
	historyRepo := repos.NewOfferHistoryRepo(thePG, log)

	slugs := make([]string, 0, len(policyCfg.Categories))
	for slug := range policyCfg.Categories {
		slugs = append(slugs, slug)
	}
	if err := categoryConfigRepo.EnsureDefaults(context.Background(), nil, slugs); err != nil {
		log.Warn("Category config seeding failed", "error", err)
	}

	marketClient := meli.NewClient(log)
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

	runOnce := func() {
		run, err := ingestor.Run(context.Background())
		if err != nil {
			log.Error("Ingest run failed", "error", err)
			return
		}
		log.Info("Ingest run finished", "run_id", run.ID, "status", run.Status)
	}

	if *once {
		runOnce()
		return
	}

	every := *interval
	if every <= 0 {
		every = utils.GetEnvAsDuration("INGEST_INTERVAL", 6*time.Hour, log)
	}
	log.Info("Ingest daemon started", "interval", every)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	runOnce()
	for {
		select {
		case <-ticker.C:
			runOnce()
		case sig := <-stop:
			log.Info("Ingest daemon stopping", "signal", sig.String())
			return
		}
	}
}
