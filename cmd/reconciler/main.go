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
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/repos"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/services"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/utils"
)

func main() {
	once := flag.Bool("once", false, "run a single reconcile batch and exit")
	interval := flag.Duration("interval", 0, "override the reconcile interval")
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

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	redisClient, err := redisq.New(log)
	if err != nil {
		log.Error("Redis init failed, the reconciler needs the run lock", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	productRepo := repos.NewProductRepo(thePG, log)
	mismatchRepo := repos.NewPriceMismatchRepo(thePG, log)
	runRepo := repos.NewReconcileRunRepo(thePG, log)
	historyRepo := repos.NewOfferHistoryRepo(thePG, log)

	marketClient := meli.NewClient(log)
	auditor := services.NewPriceAuditor(log, productRepo, mismatchRepo, services.DefaultMismatchThresholds())
	reconciler := services.NewReconciler(
		log,
		productRepo,
		mismatchRepo,
		runRepo,
		historyRepo,
		marketClient,
		redisq.NewRunLock(redisClient, "locks:reconcile"),
		redisq.NewPriceSyncQueue(redisClient, "queues:price-sync"),
		auditor,
		services.DefaultGuardConfig(),
		services.DefaultReconcilerConfig(),
	)

	runOnce := func() {
		run, err := reconciler.Run(context.Background())
		if err != nil {
			log.Error("Reconcile run failed", "error", err)
			return
		}
		log.Info("Reconcile run finished", "run_id", run.ID, "status", run.Status, "cycles", run.Cycles)
	}

	if *once {
		runOnce()
		return
	}

	every := *interval
	if every <= 0 {
		every = utils.GetEnvAsDuration("RECONCILE_INTERVAL", 30*time.Minute, log)
	}
	log.Info("Reconciler daemon started", "interval", every)

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
			log.Info("Reconciler daemon stopping", "signal", sig.String())
			return
		}
	}
}
