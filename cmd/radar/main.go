package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"BranchRadar/internal/aggregator"
	"BranchRadar/internal/config"
	"BranchRadar/internal/dashboard"
	"BranchRadar/internal/notifier"
	"BranchRadar/internal/scheduler"
	"BranchRadar/internal/source"
	"BranchRadar/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] BranchRadar starting...")

	// Secrets (cookie, LINE token) usually live in .env during development.
	if err := godotenv.Load(); err == nil {
		log.Println("[INFO] loaded .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	watch := cfg.WatchMap()

	// Init store
	var st store.Store
	if sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath); err != nil {
		log.Printf("[WARN] init sqlite store failed, using noop: %v", err)
		st = store.NewNoopStore()
	} else {
		st = sq
	}
	defer st.Close()

	// Init sources
	prices := source.NewYahooFetcher(cfg.Proxy)
	report := source.NewBrokerReport(cfg.Broker.ReportURL, cfg.Broker.ID, cfg.Proxy)
	var costs, backfillCosts source.CostFetcher
	if cfg.HiStock.Enabled {
		costs = source.NewHiStock(cfg.HiStock.BaseURL, cfg.Broker.ID, cfg.HiStock.Cookie, cfg.Proxy)
		// The corrective backfill crawls every watch-listed ticker in one run,
		// so it gets its own client with the slower politeness profile.
		bf := source.NewHiStock(cfg.HiStock.BaseURL, cfg.Broker.ID, cfg.HiStock.Cookie, cfg.Proxy)
		bf.SetDelays(5*time.Second, 10*time.Second, 2*time.Minute)
		backfillCosts = bf
	} else {
		log.Println("[INFO] precise cost source disabled, estimate-only mode")
	}
	log.Printf("[INFO] price source: %s", prices.Name())

	// Init aggregator + backfill progress
	agg := aggregator.New(report, costs, prices, st, watch)
	agg.BackfillCosts = backfillCosts
	prog, err := aggregator.LoadProgress(cfg.Backfill.ProgressFile)
	if err != nil {
		log.Fatalf("[FATAL] load backfill progress: %v", err)
	}

	// Init LINE notifier
	ln := notifier.NewLineNotifier(cfg.Line.AccessToken, cfg.Line.RecipientID, cfg.Proxy)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, agg, st, ln, prices, watch, prog, cfg.Backfill.CheckpointInterval)
	if err := sched.RegisterAll(cfg.Schedule.DailyCron, cfg.Schedule.NotifyCron, cfg.Schedule.CorrectiveCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Dashboard API
	srv := dashboard.NewServer(st, watch)
	go func() {
		if err := srv.Start(cfg.Dashboard.ListenAddr); err != nil {
			log.Fatalf("[FATAL] dashboard server: %v", err)
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing daily task now")
		go sched.RunDailyNow()
	}
	if v := os.Getenv("BACKFILL_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			log.Printf("[INFO] BACKFILL_DAYS=%d, executing historical backfill now", days)
			go sched.RunHistoryNow(days)
		}
	}

	log.Println("[INFO] BranchRadar is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] BranchRadar stopped")
}
