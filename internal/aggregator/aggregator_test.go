package aggregator

import (
	"path/filepath"
	"testing"
	"time"

	"BranchRadar/internal/model"
	"BranchRadar/internal/source"
	"BranchRadar/internal/store"
)

type fakeReport struct {
	entries map[string][]source.ReportEntry
	err     error
}

func (f *fakeReport) FetchDay(date time.Time) ([]source.ReportEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[date.Format(model.DateLayout)], nil
}

type fakeCosts struct {
	history map[string]map[string]source.DayTrace
	err     error
	calls   []string
}

func (f *fakeCosts) FetchHistory(tickerID string) (map[string]source.DayTrace, error) {
	f.calls = append(f.calls, tickerID)
	if f.err != nil {
		return nil, f.err
	}
	h, ok := f.history[tickerID]
	if !ok {
		return nil, source.ErrNoData
	}
	return h, nil
}

type memStore struct {
	rows    map[string]map[string]model.DailyRecord // date -> ticker -> record
	updates int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]map[string]model.DailyRecord)}
}

func (m *memStore) ReadAll() ([]model.DailyRecord, error) {
	var out []model.DailyRecord
	for _, byTicker := range m.rows {
		for _, r := range byTicker {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ReplaceDate(date time.Time, recs []model.DailyRecord) error {
	day := date.Format(model.DateLayout)
	byTicker := make(map[string]model.DailyRecord, len(recs))
	for _, r := range recs {
		byTicker[r.TickerID] = r
	}
	m.rows[day] = byTicker
	return nil
}

func (m *memStore) UpdateMatching(date time.Time, tickerID string, netAmountK int64, price float64, estVol int64) (bool, error) {
	day := date.Format(model.DateLayout)
	r, ok := m.rows[day][tickerID]
	if !ok {
		return false, nil
	}
	r.NetAmountK = netAmountK
	r.Price = price
	r.HasPrice = true
	r.EstVolume = estVol
	r.HasVolume = true
	m.rows[day][tickerID] = r
	m.updates++
	return true, nil
}

func (m *memStore) TickerIDs() ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	for _, byTicker := range m.rows {
		for id := range byTicker {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) get(day, ticker string) (model.DailyRecord, bool) {
	r, ok := m.rows[day][ticker]
	return r, ok
}

var _ store.Store = (*memStore)(nil)

func testAgg(report *fakeReport, costs source.CostFetcher, prices source.PriceFetcher, st store.Store, watch model.Watchlist) *Aggregator {
	a := New(report, costs, prices, st, watch)
	a.DaySleep = 0
	a.sleep = func(time.Duration) {}
	return a
}

func watchOnly(ids ...string) model.Watchlist {
	w := model.Watchlist{}
	for _, id := range ids {
		w[id] = model.WatchEntry{TickerID: id, Name: id}
	}
	return w
}

func TestRunDailyPreciseAndEstimatePaths(t *testing.T) {
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	day := "2026-08-28"

	report := &fakeReport{entries: map[string][]source.ReportEntry{
		day: {
			{TickerID: "3533", TickerName: "嘉澤", NetAmountK: 5900},
			{TickerID: "2330", TickerName: "台積電", NetAmountK: 1200},
		},
	}}
	costs := &fakeCosts{history: map[string]map[string]source.DayTrace{
		"3533": {day: {Date: day, BuyVol: 100, BuyAvg: 50.0, SellVol: 40, SellAvg: 52.0, Close: 51.0}},
	}}
	prices := &source.MockPriceFetcher{Prices: map[string]float64{"2330": 40.0, "3533": 51.0}}
	st := newMemStore()

	agg := testAgg(report, costs, prices, st, watchOnly("3533"))
	if err := agg.RunDaily(date); err != nil {
		t.Fatalf("run daily: %v", err)
	}

	// Watch-listed ticker takes the precise path.
	got, ok := st.get(day, "3533")
	if !ok {
		t.Fatal("expected a row for 3533")
	}
	if got.NetAmountK != 2920 || got.EstVolume != 60 || got.Price != 48.7 {
		t.Errorf("precise row = %+v, want amount 2920, volume 60, cost 48.7", got)
	}
	if got.Direction != model.DirectionBuy {
		t.Errorf("direction = %s, want buy", got.Direction)
	}

	// Non-watch-listed ticker never touches the precise source.
	for _, id := range costs.calls {
		if id == "2330" {
			t.Error("precise source queried for a non-watch-listed ticker")
		}
	}
	got, _ = st.get(day, "2330")
	if got.NetAmountK != 1200 || got.EstVolume != 30 || !got.HasVolume {
		t.Errorf("estimate row = %+v, want amount 1200, volume round(1200/40)=30", got)
	}
}

func TestRunDailyFallsBackWhenPreciseMissing(t *testing.T) {
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	day := "2026-08-28"

	report := &fakeReport{entries: map[string][]source.ReportEntry{
		day: {{TickerID: "3665", TickerName: "貿聯-KY", NetAmountK: 2000}},
	}}
	// Precise source has the ticker, but not this date.
	costs := &fakeCosts{history: map[string]map[string]source.DayTrace{
		"3665": {"2026-08-27": {Date: "2026-08-27", BuyVol: 1, BuyAvg: 1, Close: 1}},
	}}
	prices := &source.MockPriceFetcher{Prices: map[string]float64{"3665": 400.0}}
	st := newMemStore()

	agg := testAgg(report, costs, prices, st, watchOnly("3665"))
	if err := agg.RunDaily(date); err != nil {
		t.Fatalf("run daily: %v", err)
	}

	got, _ := st.get(day, "3665")
	if got.NetAmountK != 2000 || got.EstVolume != 5 {
		t.Errorf("row = %+v, want estimate fallback round(2000/400)=5", got)
	}
}

func TestRunDailyNoPriceKeepsSentinels(t *testing.T) {
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	day := "2026-08-28"

	report := &fakeReport{entries: map[string][]source.ReportEntry{
		day: {{TickerID: "9999", TickerName: "未上市", NetAmountK: 700}},
	}}
	st := newMemStore()

	agg := testAgg(report, nil, &source.MockPriceFetcher{}, st, watchOnly())
	if err := agg.RunDaily(date); err != nil {
		t.Fatalf("run daily: %v", err)
	}

	got, _ := st.get(day, "9999")
	if got.HasPrice || got.HasVolume {
		t.Errorf("unresolvable price must leave both fields unknown, got %+v", got)
	}
	if got.NetAmountK != 700 || got.Direction != model.DirectionBuy {
		t.Errorf("amount and direction must still be written, got %+v", got)
	}
}

func TestRunDailyEmptyReportNeverWipes(t *testing.T) {
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	day := "2026-08-28"

	st := newMemStore()
	st.ReplaceDate(date, []model.DailyRecord{
		{Date: date, TickerID: "3533", NetAmountK: 100, Direction: model.DirectionBuy},
	})

	agg := testAgg(&fakeReport{}, nil, &source.MockPriceFetcher{}, st, watchOnly())
	if err := agg.RunDaily(date); err != nil {
		t.Fatalf("run daily: %v", err)
	}

	if _, ok := st.get(day, "3533"); !ok {
		t.Error("an empty report must not wipe existing rows for the date")
	}
}

func TestRunDailyCookieExpiredAborts(t *testing.T) {
	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	day := "2026-08-28"

	report := &fakeReport{entries: map[string][]source.ReportEntry{
		day: {{TickerID: "3533", TickerName: "嘉澤", NetAmountK: 100}},
	}}
	costs := &fakeCosts{err: source.ErrCookieExpired}
	st := newMemStore()

	agg := testAgg(report, costs, &source.MockPriceFetcher{}, st, watchOnly("3533"))
	err := agg.RunDaily(date)
	if err == nil {
		t.Fatal("expected the cookie error to abort the run")
	}
	if len(st.rows) != 0 {
		t.Error("aborted run must not persist partial rows")
	}
}

func TestRunHistorySkipsWeekends(t *testing.T) {
	// 2026-08-28 is a Friday; a 7-day walk covers Sat/Sun once.
	now := time.Date(2026, 8, 28, 16, 0, 0, 0, time.UTC)

	report := &fakeReport{entries: map[string][]source.ReportEntry{}}
	var fetched []string
	for i := 7; i >= 1; i-- {
		d := now.AddDate(0, 0, -i)
		report.entries[d.Format(model.DateLayout)] = []source.ReportEntry{
			{TickerID: "3533", TickerName: "嘉澤", NetAmountK: 100},
		}
	}
	st := newMemStore()
	prices := &source.MockPriceFetcher{Prices: map[string]float64{"3533": 50}}

	agg := testAgg(report, nil, prices, st, watchOnly())
	agg.now = func() time.Time { return now }
	if err := agg.RunHistory(7); err != nil {
		t.Fatalf("run history: %v", err)
	}

	for day := range st.rows {
		fetched = append(fetched, day)
		d, _ := time.Parse(model.DateLayout, day)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("weekend day %s was written", day)
		}
	}
	if len(fetched) != 5 {
		t.Errorf("expected 5 weekday writes out of 7 days, got %d (%v)", len(fetched), fetched)
	}
}

func TestRunCorrective(t *testing.T) {
	d27 := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	d28 := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	st := newMemStore()
	st.ReplaceDate(d27, []model.DailyRecord{
		{Date: d27, TickerID: "3533", NetAmountK: 5900, Direction: model.DirectionBuy},
		{Date: d27, TickerID: "2330", NetAmountK: 1000, Direction: model.DirectionBuy},
	})
	st.ReplaceDate(d28, []model.DailyRecord{
		{Date: d28, TickerID: "3533", NetAmountK: 100, Direction: model.DirectionBuy},
	})

	costs := &fakeCosts{history: map[string]map[string]source.DayTrace{
		"3533": {
			"2026-08-27": {Date: "2026-08-27", BuyVol: 100, BuyAvg: 50.0, SellVol: 40, SellAvg: 52.0, Close: 51.0},
			"2026-08-28": {Date: "2026-08-28", BuyVol: 10, BuyAvg: 100.0, SellVol: 30, SellAvg: 102.0, Close: 101.0},
			"2026-08-26": {Date: "2026-08-26", BuyVol: 5, BuyAvg: 40.0, SellVol: 0, SellAvg: 0, Close: 41.0}, // no stored row
		},
	}}

	prog, err := LoadProgress(filepath.Join(t.TempDir(), "progress.json"))
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}

	agg := testAgg(&fakeReport{}, costs, &source.MockPriceFetcher{}, st, watchOnly("3533"))
	if err := agg.RunCorrective(prog, 1); err != nil {
		t.Fatalf("run corrective: %v", err)
	}

	// Only the watch-listed ticker was queried.
	for _, id := range costs.calls {
		if id != "3533" {
			t.Errorf("corrective queried %s, want watch-listed only", id)
		}
	}

	got, _ := st.get("2026-08-27", "3533")
	if got.NetAmountK != 2920 || got.Price != 48.7 || got.EstVolume != 60 {
		t.Errorf("corrected row = %+v, want 2920/48.7/60", got)
	}
	got, _ = st.get("2026-08-28", "3533")
	if got.NetAmountK != -2060 || got.EstVolume != -20 {
		t.Errorf("corrected row = %+v, want -2060/-20", got)
	}

	// Trace days without a stored row are skipped, not inserted.
	if _, ok := st.get("2026-08-26", "3533"); ok {
		t.Error("corrective must never insert new rows")
	}
	if st.updates != 2 {
		t.Errorf("updates = %d, want 2", st.updates)
	}

	// A completed run resets the resume cursor.
	if prog.Next() != 0 {
		t.Errorf("progress cursor = %d, want 0 after completion", prog.Next())
	}
}

func TestRunCorrectiveUsesBackfillSource(t *testing.T) {
	d27 := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	st := newMemStore()
	st.ReplaceDate(d27, []model.DailyRecord{
		{Date: d27, TickerID: "3533", NetAmountK: 100, Direction: model.DirectionBuy},
	})

	daily := &fakeCosts{history: map[string]map[string]source.DayTrace{}}
	backfill := &fakeCosts{history: map[string]map[string]source.DayTrace{
		"3533": {"2026-08-27": {Date: "2026-08-27", BuyVol: 10, BuyAvg: 50.0, Close: 50.0}},
	}}

	prog, _ := LoadProgress(filepath.Join(t.TempDir(), "progress.json"))
	agg := testAgg(&fakeReport{}, daily, &source.MockPriceFetcher{}, st, watchOnly("3533"))
	agg.BackfillCosts = backfill

	if err := agg.RunCorrective(prog, 1); err != nil {
		t.Fatalf("run corrective: %v", err)
	}
	if len(daily.calls) != 0 {
		t.Errorf("corrective queried the daily-profile source: %v", daily.calls)
	}
	if len(backfill.calls) != 1 || backfill.calls[0] != "3533" {
		t.Errorf("backfill source calls = %v, want [3533]", backfill.calls)
	}
}

func TestRunCorrectiveWithoutPreciseSource(t *testing.T) {
	prog, _ := LoadProgress(filepath.Join(t.TempDir(), "progress.json"))
	agg := testAgg(&fakeReport{}, nil, &source.MockPriceFetcher{}, newMemStore(), watchOnly())
	if err := agg.RunCorrective(prog, 1); err == nil {
		t.Error("corrective without a precise source must fail")
	}
}

func TestProgressRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	p, err := LoadProgress(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Next() != 0 {
		t.Errorf("fresh progress = %d, want 0", p.Next())
	}

	if err := p.Advance(7); err != nil {
		t.Fatalf("advance: %v", err)
	}

	reloaded, err := LoadProgress(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Next() != 7 {
		t.Errorf("reloaded cursor = %d, want 7", reloaded.Next())
	}

	if err := reloaded.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	again, _ := LoadProgress(path)
	if again.Next() != 0 {
		t.Errorf("cursor after reset = %d, want 0", again.Next())
	}
}
