package dashboard

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"BranchRadar/internal/analyzer"
	"BranchRadar/internal/model"
)

// query defaults mirroring the dashboard's sidebar presets.
const (
	defaultLookbackDays = 5
	defaultMinDays      = 1
	defaultMinAmountK   = 1000
)

type screenResponse struct {
	Start     string              `json:"start"`
	End       string              `json:"end"`
	Direction string              `json:"direction"`
	Count     int                 `json:"count"`
	Notice    string              `json:"notice,omitempty"`
	Results   []model.PeriodStats `json:"results"`
}

type chartPointJSON struct {
	Date      string   `json:"date"`
	Price     *float64 `json:"price"`
	DailyVol  int64    `json:"daily_volume"`
	CumVolume int64    `json:"cumulative_volume"`
}

type chartResponse struct {
	TickerID    string           `json:"ticker_id"`
	Start       string           `json:"chart_start"`
	End         string           `json:"chart_end"`
	TotalLots   int64            `json:"window_total_lots"`
	AvgCost     *float64         `json:"window_avg_cost"`
	LatestClose *float64         `json:"latest_close"`
	Notice      string           `json:"notice,omitempty"`
	Points      []chartPointJSON `json:"points"`
}

// parseWindow resolves the statistics window from the query: explicit
// start/end, or a days shorthand ending at the latest stored date.
func parseWindow(r *http.Request, latest time.Time) (start, end time.Time, err error) {
	q := r.URL.Query()

	end = latest
	if v := q.Get("end"); v != "" {
		end, err = time.Parse(model.DateLayout, v)
		if err != nil {
			return
		}
	}

	if v := q.Get("start"); v != "" {
		start, err = time.Parse(model.DateLayout, v)
		return
	}

	days := defaultLookbackDays
	if v := q.Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 1 {
			err = strconv.ErrSyntax
			return
		}
	}
	start = end.AddDate(0, 0, -days)
	return
}

func latestDate(records []model.DailyRecord) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ReadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "data store unavailable: "+err.Error())
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusOK, screenResponse{
			Notice:  "no data yet; check that the daily job has run",
			Results: []model.PeriodStats{},
		})
		return
	}

	q := r.URL.Query()

	dir := model.DirectionBuy
	if q.Get("direction") == "sell" {
		dir = model.DirectionSell
	}

	start, end, err := parseWindow(r, latestDate(records))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date window")
		return
	}

	minDays := defaultMinDays
	if v := q.Get("min_days"); v != "" {
		if minDays, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_days")
			return
		}
	}
	minAmountK := int64(defaultMinAmountK)
	if v := q.Get("min_amount"); v != "" {
		if minAmountK, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_amount")
			return
		}
	}

	stats := analyzer.Screen(records, start, end, dir, minDays, minAmountK)
	resp := screenResponse{
		Start:     start.Format(model.DateLayout),
		End:       end.Format(model.DateLayout),
		Direction: string(dir),
		Count:     len(stats),
		Results:   stats,
	}
	if len(stats) == 0 {
		resp.Notice = "no tickers match; try relaxing the filters"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	tickerID := r.PathValue("id")
	if tickerID == "" {
		writeError(w, http.StatusBadRequest, "missing ticker id")
		return
	}

	records, err := s.store.ReadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "data store unavailable: "+err.Error())
		return
	}

	start, end, err := parseWindow(r, latestDate(records))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date window")
		return
	}

	points, summary := analyzer.Chart(records, tickerID, start, end)
	chartStart, chartEnd := analyzer.ChartWindow(start, end)

	resp := chartResponse{
		TickerID:  tickerID,
		Start:     chartStart.Format(model.DateLayout),
		End:       chartEnd.Format(model.DateLayout),
		TotalLots: summary.TotalLots,
		Points:    make([]chartPointJSON, 0, len(points)),
	}
	if summary.HasAvgCost {
		c := summary.AvgCost
		resp.AvgCost = &c
	}
	if summary.HasClose {
		c := summary.LatestClose
		resp.LatestClose = &c
	}
	for _, p := range points {
		pt := chartPointJSON{
			Date:      p.Date.Format(model.DateLayout),
			DailyVol:  p.DailyVol,
			CumVolume: p.CumVolume,
		}
		if p.HasPrice {
			v := p.Price
			pt.Price = &v
		}
		resp.Points = append(resp.Points, pt)
	}
	if len(points) == 0 {
		resp.Notice = "no rows for this ticker in the window"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	entries := make([]model.WatchEntry, 0, len(s.watch))
	for _, e := range s.watch {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].TickerID < entries[j].TickerID })
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
