package source

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"BranchRadar/internal/model"
)

// listingSuffixes order the two Taiwan listings: TWSE first, then OTC.
var listingSuffixes = []string{".TW", ".TWO"}

// YahooFetcher implements PriceFetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooFetcher creates a Yahoo Finance fetcher with optional proxy support.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

type dayBar struct {
	Time   time.Time
	Close  float64
	Volume float64
}

func (f *YahooFetcher) fetchBars(symbol string, from, to time.Time) ([]dayBar, error) {
	u := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		f.BaseURL, url.PathEscape(symbol), from.Unix(), to.Unix())

	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, ErrNoPrice
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, ErrNoPrice
	}
	quote := result.Indicators.Quote[0]
	bars := make([]dayBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		c := toFloat(quote.Close[i])
		if c == 0 {
			continue // null bars (holidays etc.)
		}
		var v float64
		if i < len(quote.Volume) {
			v = toFloat(quote.Volume[i])
		}
		bars = append(bars, dayBar{Time: time.Unix(ts, 0), Close: c, Volume: v})
	}
	if len(bars) == 0 {
		return nil, ErrNoPrice
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// barsForDate fetches a few days around the target so the previous close is
// available, trying the TWSE listing first and the OTC listing second.
func (f *YahooFetcher) barsForDate(tickerID string, date time.Time) ([]dayBar, error) {
	from := date.AddDate(0, 0, -7)
	to := date.AddDate(0, 0, 1)
	var lastErr error
	for _, suffix := range listingSuffixes {
		bars, err := f.fetchBars(tickerID+suffix, from, to)
		if err == nil {
			return bars, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ClosePrice returns the closing price of the ticker on the given date, or
// ErrNoPrice when neither listing has data for that day.
func (f *YahooFetcher) ClosePrice(tickerID string, date time.Time) (float64, error) {
	bars, err := f.barsForDate(tickerID, date)
	if err != nil {
		return 0, err
	}
	day := date.Format(model.DateLayout)
	for _, b := range bars {
		if b.Time.Format(model.DateLayout) == day {
			return b.Close, nil
		}
	}
	return 0, ErrNoPrice
}

// DaySnapshot returns close, total market volume and day-over-day change for
// the given date. Change is marked unknown when no previous bar exists.
func (f *YahooFetcher) DaySnapshot(tickerID string, date time.Time) (*DayMarket, error) {
	bars, err := f.barsForDate(tickerID, date)
	if err != nil {
		return nil, err
	}
	day := date.Format(model.DateLayout)
	for i, b := range bars {
		if b.Time.Format(model.DateLayout) != day {
			continue
		}
		snap := &DayMarket{Close: b.Close, TotalVolume: b.Volume}
		if i > 0 && bars[i-1].Close > 0 {
			snap.ChangePct = (b.Close - bars[i-1].Close) / bars[i-1].Close * 100
			snap.HasChange = true
		}
		return snap, nil
	}
	return nil, ErrNoPrice
}
