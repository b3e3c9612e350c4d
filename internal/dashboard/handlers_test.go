package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BranchRadar/internal/model"
	"BranchRadar/internal/store"
)

type stubStore struct {
	records []model.DailyRecord
	err     error
}

func (s *stubStore) ReadAll() ([]model.DailyRecord, error) { return s.records, s.err }
func (s *stubStore) ReplaceDate(time.Time, []model.DailyRecord) error {
	return errors.New("read-only")
}
func (s *stubStore) UpdateMatching(time.Time, string, int64, float64, int64) (bool, error) {
	return false, errors.New("read-only")
}
func (s *stubStore) TickerIDs() ([]string, error) { return nil, nil }
func (s *stubStore) Close() error                 { return nil }

var _ store.Store = (*stubStore)(nil)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

func testRecords(t *testing.T) []model.DailyRecord {
	return []model.DailyRecord{
		{Date: day(t, "2026-08-26"), TickerID: "3533", TickerName: "嘉澤", Direction: model.DirectionBuy,
			NetAmountK: 2000, Price: 1200, HasPrice: true, EstVolume: 2, HasVolume: true},
		{Date: day(t, "2026-08-27"), TickerID: "3533", TickerName: "嘉澤", Direction: model.DirectionBuy,
			NetAmountK: 3000, Price: 1210, HasPrice: true, EstVolume: 2, HasVolume: true},
		{Date: day(t, "2026-08-28"), TickerID: "2317", TickerName: "鴻海", Direction: model.DirectionSell,
			NetAmountK: -500, Price: 190, HasPrice: true, EstVolume: -3, HasVolume: true},
	}
}

func newTestServer(st store.Store) *httptest.Server {
	watch := model.Watchlist{
		"3533": {TickerID: "3533", Name: "嘉澤", Category: "test"},
	}
	return httptest.NewServer(NewServer(st, watch).Handler())
}

func getJSON(t *testing.T, url string, wantStatus int, v interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s: status %d, want %d", url, resp.StatusCode, wantStatus)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestScreenEndpoint(t *testing.T) {
	srv := newTestServer(&stubStore{records: testRecords(t)})
	defer srv.Close()

	var resp screenResponse
	getJSON(t, srv.URL+"/api/screen?days=5&min_days=2&min_amount=1000", http.StatusOK, &resp)

	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	got := resp.Results[0]
	if got.TickerID != "3533" || got.CumAmountK != 5000 || got.AppearDays != 2 {
		t.Errorf("result = %+v, want 3533/5000/2", got)
	}
	// The days shorthand anchors at the latest stored date.
	if resp.End != "2026-08-28" {
		t.Errorf("window end = %s, want latest stored date", resp.End)
	}
}

func TestScreenEndpointSellDirection(t *testing.T) {
	srv := newTestServer(&stubStore{records: testRecords(t)})
	defer srv.Close()

	var resp screenResponse
	getJSON(t, srv.URL+"/api/screen?direction=sell&min_days=1&min_amount=500", http.StatusOK, &resp)

	if resp.Count != 1 || resp.Results[0].TickerID != "2317" {
		t.Fatalf("resp = %+v, want the single sell-side ticker", resp)
	}
	if resp.Results[0].CumAmountK != 500 {
		t.Errorf("cumulative amount = %d, want sign-normalized 500", resp.Results[0].CumAmountK)
	}
}

func TestScreenEndpointEmptyStore(t *testing.T) {
	srv := newTestServer(&stubStore{})
	defer srv.Close()

	var resp screenResponse
	getJSON(t, srv.URL+"/api/screen", http.StatusOK, &resp)
	if resp.Notice == "" {
		t.Error("empty store must carry a notice, not an error")
	}
	if len(resp.Results) != 0 {
		t.Errorf("results = %+v, want none", resp.Results)
	}
}

func TestScreenEndpointStoreFailure(t *testing.T) {
	srv := newTestServer(&stubStore{err: errors.New("disk gone")})
	defer srv.Close()

	var resp map[string]string
	getJSON(t, srv.URL+"/api/screen", http.StatusInternalServerError, &resp)
	if resp["error"] == "" {
		t.Error("expected an error body")
	}
}

func TestScreenEndpointBadParams(t *testing.T) {
	srv := newTestServer(&stubStore{records: testRecords(t)})
	defer srv.Close()

	for _, q := range []string{"?days=0", "?days=x", "?min_days=x", "?min_amount=x", "?end=32-13-2026"} {
		resp, err := http.Get(srv.URL + "/api/screen" + q)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestChartEndpoint(t *testing.T) {
	srv := newTestServer(&stubStore{records: testRecords(t)})
	defer srv.Close()

	var resp chartResponse
	getJSON(t, srv.URL+"/api/tickers/3533/chart?days=5", http.StatusOK, &resp)

	if resp.TickerID != "3533" {
		t.Errorf("ticker = %s", resp.TickerID)
	}
	if len(resp.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(resp.Points))
	}
	// 5-day statistics window, 30-day display window.
	if resp.Start != "2026-07-30" || resp.End != "2026-08-28" {
		t.Errorf("chart window = [%s, %s], want the trailing 30 days", resp.Start, resp.End)
	}
	if resp.TotalLots != 4 {
		t.Errorf("total lots = %d, want 4", resp.TotalLots)
	}
	if resp.AvgCost == nil || *resp.AvgCost != 1250.0 {
		t.Errorf("avg cost = %v, want 1250 (5000/4)", resp.AvgCost)
	}
	if resp.Points[1].CumVolume != 4 {
		t.Errorf("cumulative volume = %d, want 4", resp.Points[1].CumVolume)
	}
}

func TestChartEndpointUnknownTicker(t *testing.T) {
	srv := newTestServer(&stubStore{records: testRecords(t)})
	defer srv.Close()

	var resp chartResponse
	getJSON(t, srv.URL+"/api/tickers/9999/chart", http.StatusOK, &resp)
	if len(resp.Points) != 0 || resp.Notice == "" {
		t.Errorf("unknown ticker should answer with a notice and no points, got %+v", resp)
	}
}

func TestWatchlistEndpoint(t *testing.T) {
	srv := newTestServer(&stubStore{})
	defer srv.Close()

	var entries []model.WatchEntry
	getJSON(t, srv.URL+"/api/watchlist", http.StatusOK, &entries)
	if len(entries) != 1 || entries[0].TickerID != "3533" {
		t.Errorf("watchlist = %+v", entries)
	}
}

func TestHealthAndCORS(t *testing.T) {
	srv := newTestServer(&stubStore{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("cors header = %q, want *", got)
	}
}
