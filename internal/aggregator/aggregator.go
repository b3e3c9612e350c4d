package aggregator

import (
	"errors"
	"fmt"
	"log"
	"time"

	"BranchRadar/internal/estimate"
	"BranchRadar/internal/model"
	"BranchRadar/internal/source"
	"BranchRadar/internal/store"
)

// Aggregator runs the batch jobs that fill and repair the sink: the daily
// pass, the N-day historical backfill and the corrective precise-cost
// backfill. Single-threaded by design; politeness toward the upstream hosts
// comes from sleeps, not serialization needs.
type Aggregator struct {
	Report source.ReportFetcher
	Costs  source.CostFetcher // nil disables the precise path
	Prices source.PriceFetcher
	Store  store.Store
	Watch  model.Watchlist

	// BackfillCosts serves the corrective backfill, which crawls far more pages
	// per run than the daily pass and needs a slower politeness profile.
	// Defaults to Costs.
	BackfillCosts source.CostFetcher

	// DaySleep is the pause between days in the historical backfill.
	DaySleep time.Duration

	sleep func(time.Duration)
	now   func() time.Time
}

// New creates an Aggregator with real clock and sleep.
func New(report source.ReportFetcher, costs source.CostFetcher, prices source.PriceFetcher, st store.Store, watch model.Watchlist) *Aggregator {
	return &Aggregator{
		Report:        report,
		Costs:         costs,
		BackfillCosts: costs,
		Prices:        prices,
		Store:         st,
		Watch:         watch,
		DaySleep:      3 * time.Second,
		sleep:         time.Sleep,
		now:           time.Now,
	}
}

// RunDaily scrapes the report for one date, enriches watch-listed tickers
// through the precise cost source and writes the merged set. Re-runs are
// idempotent: the date is replaced wholesale.
func (a *Aggregator) RunDaily(date time.Time) error {
	return a.runDay(date, true)
}

func (a *Aggregator) runDay(date time.Time, usePrecise bool) error {
	entries, err := a.Report.FetchDay(date)
	if err != nil {
		return fmt.Errorf("fetch report %s: %w", date.Format(model.DateLayout), err)
	}
	if len(entries) == 0 {
		// Holiday or no report. Indistinguishable from a transient source
		// outage, so never wipe the date on an empty result.
		log.Printf("[INFO] no report rows for %s, skipping", date.Format(model.DateLayout))
		return nil
	}

	day := date.Format(model.DateLayout)
	rows := make([]model.DailyRecord, 0, len(entries))
	for _, entry := range entries {
		rec, err := a.buildRecord(date, day, entry, usePrecise)
		if err != nil {
			if errors.Is(err, source.ErrCookieExpired) {
				return err
			}
			// Per-ticker failures never abort the batch.
			log.Printf("[WARN] %s %s: %v", day, entry.TickerID, err)
			continue
		}
		rows = append(rows, rec)
	}

	if err := a.Store.ReplaceDate(date, rows); err != nil {
		return fmt.Errorf("persist %s: %w", day, err)
	}
	log.Printf("[INFO] wrote %d rows for %s", len(rows), day)
	return nil
}

// buildRecord picks the precise path for watch-listed tickers and falls back
// to resolve-price + estimate everywhere else (and whenever the precise
// source has nothing for the date).
func (a *Aggregator) buildRecord(date time.Time, day string, entry source.ReportEntry, usePrecise bool) (model.DailyRecord, error) {
	rec := model.DailyRecord{
		Date:       date,
		TickerID:   entry.TickerID,
		TickerName: entry.TickerName,
	}

	if usePrecise && a.Costs != nil && a.Watch.Contains(entry.TickerID) {
		history, err := a.Costs.FetchHistory(entry.TickerID)
		if errors.Is(err, source.ErrCookieExpired) {
			return rec, err
		}
		if err == nil {
			if trace, ok := history[day]; ok {
				pc := estimate.DerivePrecise(trace.BuyVol, trace.BuyAvg, trace.SellVol, trace.SellAvg, trace.Close)
				rec.NetAmountK = pc.NetAmountK
				rec.Price = pc.Cost
				rec.HasPrice = true
				rec.EstVolume = pc.NetVol
				rec.HasVolume = true
				rec.Direction = estimate.DirectionOf(rec.NetAmountK)
				return rec, nil
			}
		} else {
			log.Printf("[WARN] precise source %s: %v, falling back to estimate", entry.TickerID, err)
		}
	}

	rec.NetAmountK = entry.NetAmountK
	price, err := a.Prices.ClosePrice(entry.TickerID, date)
	if err == nil {
		rec.Price = price
		rec.HasPrice = true
	}
	rec.EstVolume, rec.HasVolume = estimate.EstimateVolume(rec.NetAmountK, rec.Price, rec.HasPrice)
	rec.Direction = estimate.DirectionOf(rec.NetAmountK)
	return rec, nil
}

// RunHistory walks the last N calendar days oldest to newest, skipping
// weekends, and fills each trading day through the estimate path. Every
// written day is followed by a politeness pause.
func (a *Aggregator) RunHistory(days int) error {
	today := a.now()
	log.Printf("[INFO] historical backfill: %d days", days)

	for i := days; i >= 1; i-- {
		date := today.AddDate(0, 0, -i)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if err := a.runDay(date, false); err != nil {
			// A bad day does not stop the walk; the day can be re-run later.
			log.Printf("[ERROR] backfill %s: %v", date.Format(model.DateLayout), err)
		}
		a.sleep(a.DaySleep)
	}

	log.Println("[INFO] historical backfill finished")
	return nil
}

// RunCorrective replaces estimated figures with precise ones for every
// watch-listed ticker already present in the sink. Progress is checkpointed
// every checkpointEvery tickers so a crashed run resumes after the last
// checkpoint instead of from zero.
func (a *Aggregator) RunCorrective(prog *Progress, checkpointEvery int) error {
	if a.BackfillCosts == nil {
		return fmt.Errorf("corrective backfill: precise source disabled")
	}

	tickers, err := a.Store.TickerIDs()
	if err != nil {
		return fmt.Errorf("list tickers: %w", err)
	}

	start := prog.Next()
	if start >= len(tickers) {
		start = 0
	}
	log.Printf("[INFO] corrective backfill: %d tickers, resuming at %d", len(tickers), start)

	totalUpdated := 0
	for i := start; i < len(tickers); i++ {
		id := tickers[i]
		if !a.Watch.Contains(id) {
			continue
		}

		history, err := a.BackfillCosts.FetchHistory(id)
		if errors.Is(err, source.ErrCookieExpired) {
			return err
		}
		if err != nil {
			log.Printf("[WARN] corrective %s: %v, skipping", id, err)
			continue
		}

		updated := 0
		for day, trace := range history {
			date, perr := time.Parse(model.DateLayout, day)
			if perr != nil {
				continue
			}
			pc := estimate.DerivePrecise(trace.BuyVol, trace.BuyAvg, trace.SellVol, trace.SellAvg, trace.Close)
			ok, uerr := a.Store.UpdateMatching(date, id, pc.NetAmountK, pc.Cost, pc.NetVol)
			if uerr != nil {
				return fmt.Errorf("corrective update %s/%s: %w", day, id, uerr)
			}
			if ok {
				updated++
			}
		}
		totalUpdated += updated
		log.Printf("[INFO] [%d/%d] %s: %d rows corrected", i+1, len(tickers), id, updated)

		if (i-start+1)%checkpointEvery == 0 {
			if err := prog.Advance(i + 1); err != nil {
				log.Printf("[ERROR] save backfill progress: %v", err)
			}
		}
	}

	if err := prog.Reset(); err != nil {
		log.Printf("[ERROR] reset backfill progress: %v", err)
	}
	log.Printf("[INFO] corrective backfill finished, %d rows updated", totalUpdated)
	return nil
}
