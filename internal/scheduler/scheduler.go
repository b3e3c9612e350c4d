package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"BranchRadar/internal/aggregator"
	"BranchRadar/internal/model"
	"BranchRadar/internal/notifier"
	"BranchRadar/internal/source"
	"BranchRadar/internal/store"
)

// Scheduler manages the cron jobs: daily aggregation, the watch-list digest
// push and the weekly corrective backfill.
type Scheduler struct {
	Cron       *cron.Cron
	Aggregator *aggregator.Aggregator
	Store      store.Store
	Notifier   *notifier.LineNotifier
	Prices     source.PriceFetcher
	Watch      model.Watchlist
	Progress   *aggregator.Progress
	Checkpoint int
	Ctx        context.Context
}

// NewScheduler creates a Scheduler.
func NewScheduler(ctx context.Context, agg *aggregator.Aggregator, st store.Store, ln *notifier.LineNotifier, prices source.PriceFetcher, watch model.Watchlist, prog *aggregator.Progress, checkpoint int) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Aggregator: agg,
		Store:      st,
		Notifier:   ln,
		Prices:     prices,
		Watch:      watch,
		Progress:   prog,
		Checkpoint: checkpoint,
		Ctx:        ctx,
	}
}

// RegisterAll registers the daily, notify and corrective tasks.
func (s *Scheduler) RegisterAll(dailyCron, notifyCron, correctiveCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	if _, err := s.Cron.AddFunc(notifyCron, s.notifyTask); err != nil {
		return fmt.Errorf("register notify task: %w", err)
	}
	if _, err := s.Cron.AddFunc(correctiveCron, s.correctiveTask); err != nil {
		return fmt.Errorf("register corrective task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunDailyNow executes the daily task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunDailyNow() {
	s.dailyTask()
}

// RunHistoryNow executes the N-day historical backfill immediately.
func (s *Scheduler) RunHistoryNow(days int) {
	if err := s.Aggregator.RunHistory(days); err != nil {
		log.Printf("[ERROR] historical backfill: %v", err)
	}
}

func (s *Scheduler) dailyTask() {
	log.Println("[INFO] running daily aggregation")
	if err := s.Aggregator.RunDaily(time.Now()); err != nil {
		log.Printf("[ERROR] daily aggregation: %v", err)
		if errors.Is(err, source.ErrCookieExpired) {
			s.trySend("⛔ 精準成本來源 Cookie 已失效，請更新後重跑今日任務。")
		}
		return
	}
}

func (s *Scheduler) notifyTask() {
	log.Println("[INFO] running digest push")
	records, err := s.Store.ReadAll()
	if err != nil {
		log.Printf("[ERROR] digest read: %v", err)
		return
	}

	date, hits := notifier.BuildHits(records, s.Watch, time.Now())
	if len(hits) == 0 {
		log.Println("[INFO] no watch-list movement, skipping push")
		return
	}

	hits = notifier.Enrich(hits, s.Prices, date)
	s.trySend(notifier.FormatDigest(date, hits))
}

func (s *Scheduler) correctiveTask() {
	log.Println("[INFO] running corrective backfill")
	if err := s.Aggregator.RunCorrective(s.Progress, s.Checkpoint); err != nil {
		log.Printf("[ERROR] corrective backfill: %v", err)
		if errors.Is(err, source.ErrCookieExpired) {
			s.trySend("⛔ 精準成本來源 Cookie 已失效，校正任務已中止。")
		}
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
