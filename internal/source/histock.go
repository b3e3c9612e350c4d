package source

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DayTrace is one dated row of the secondary source's per-broker trace table:
// buy/sell volumes in lots, average prices and close per share.
type DayTrace struct {
	Date    string // canonical YYYY-MM-DD
	BuyVol  float64
	BuyAvg  float64
	SellVol float64
	SellAvg float64
	Close   float64
}

// CostFetcher abstracts the precise cost source for the aggregator.
type CostFetcher interface {
	FetchHistory(tickerID string) (map[string]DayTrace, error)
}

// Column headers of the trace table. Lookup is header-driven so a reordered
// table still parses; a missing header is schema drift and yields ErrNoData.
const (
	colDate    = "日期"
	colBuyVol  = "買進張數"
	colBuyAvg  = "買進均價"
	colSellVol = "賣出張數"
	colSellAvg = "賣出均價"
	colClose   = "收盤價"
)

// HiStock fetches the per-day precise cost table for one (broker, ticker)
// pair. Access needs a session cookie refreshed out-of-band.
type HiStock struct {
	BaseURL  string
	BrokerID string
	Cookie   string
	Client   *http.Client

	// Politeness contract against upstream rate limiting.
	MinDelay time.Duration
	MaxDelay time.Duration
	Cooldown time.Duration
	Retries  int

	sleep func(time.Duration)
}

// NewHiStock creates a precise cost fetcher with the daily-job politeness
// profile (short jittered delay). Backfill jobs should raise the delays via
// SetDelays.
func NewHiStock(baseURL, brokerID, cookie, proxyURL string) *HiStock {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HiStock{
		BaseURL:  baseURL,
		BrokerID: brokerID,
		Cookie:   cookie,
		Client: &http.Client{
			Timeout: 15 * time.Second,
			// A redirect to the login page means the session died; surface
			// the 302 instead of following it.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		MinDelay: 1 * time.Second,
		MaxDelay: 3 * time.Second,
		Cooldown: 2 * time.Minute,
		Retries:  3,
		sleep:    time.Sleep,
	}
}

// SetDelays adjusts the politeness profile (used by backfill jobs, which hit
// the source far harder than the daily pass).
func (h *HiStock) SetDelays(min, max, cooldown time.Duration) {
	h.MinDelay = min
	h.MaxDelay = max
	h.Cooldown = cooldown
}

// FetchHistory fetches the multi-day trace table for a ticker, keyed by
// canonical date. ErrCookieExpired is fatal for the run; any other failure
// degrades to ErrNoData and the caller falls back to estimation.
func (h *HiStock) FetchHistory(tickerID string) (map[string]DayTrace, error) {
	u := fmt.Sprintf("%s?bno=%s&no=%s", h.BaseURL, h.BrokerID, tickerID)

	for attempt := 0; attempt < h.Retries; attempt++ {
		jitter := h.MinDelay + time.Duration(rand.Int63n(int64(h.MaxDelay-h.MinDelay)+1))
		h.sleep(jitter)

		req, err := http.NewRequest("GET", u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
		req.Header.Set("Cookie", h.Cookie)

		resp, err := h.Client.Do(req)
		if err != nil {
			log.Printf("[WARN] histock %s: %v, retrying", tickerID, err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			traces, err := parseTraceTable(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
			return traces, nil
		case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
			resp.Body.Close()
			log.Printf("[WARN] histock %s: blocked (status %d), cooling down %v", tickerID, resp.StatusCode, h.Cooldown)
			h.sleep(h.Cooldown)
		case http.StatusFound, http.StatusMovedPermanently, http.StatusSeeOther:
			resp.Body.Close()
			return nil, ErrCookieExpired
		default:
			resp.Body.Close()
			return nil, ErrNoData
		}
	}
	return nil, ErrNoData
}

// parseTraceTable finds the table carrying the trace headers and decodes its
// rows. Header-driven: column order is whatever the page says today.
func parseTraceTable(r io.Reader) (map[string]DayTrace, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, ErrNoData
	}

	var traces map[string]DayTrace
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols := map[string]int{}
		table.Find("tr").First().Find("th, td").Each(func(i int, cell *goquery.Selection) {
			cols[strings.TrimSpace(cell.Text())] = i
		})
		if _, ok := cols[colBuyAvg]; !ok {
			return true
		}
		if _, ok := cols[colDate]; !ok {
			return true
		}

		traces = make(map[string]DayTrace)
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td").Map(func(_ int, c *goquery.Selection) string {
				return strings.TrimSpace(c.Text())
			})
			trace, ok := decodeTraceRow(cells, cols)
			if !ok {
				return
			}
			traces[trace.Date] = trace
		})
		return false
	})

	if traces == nil {
		return nil, ErrNoData
	}
	return traces, nil
}

func decodeTraceRow(cells []string, cols map[string]int) (DayTrace, bool) {
	cell := func(name string) (string, bool) {
		idx, ok := cols[name]
		if !ok || idx >= len(cells) {
			return "", false
		}
		return cells[idx], true
	}

	rawDate, ok := cell(colDate)
	if !ok {
		return DayTrace{}, false
	}
	date, ok := NormalizeDate(rawDate)
	if !ok {
		return DayTrace{}, false
	}

	nums := make(map[string]float64, 5)
	for _, name := range []string{colBuyVol, colBuyAvg, colSellVol, colSellAvg, colClose} {
		raw, ok := cell(name)
		if !ok {
			return DayTrace{}, false
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			return DayTrace{}, false
		}
		nums[name] = v
	}

	return DayTrace{
		Date:    date,
		BuyVol:  nums[colBuyVol],
		BuyAvg:  nums[colBuyAvg],
		SellVol: nums[colSellVol],
		SellAvg: nums[colSellAvg],
		Close:   nums[colClose],
	}, true
}

// NormalizeDate canonicalizes a source date to YYYY-MM-DD, tolerating "/"
// separators and missing zero padding.
func NormalizeDate(s string) (string, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return "", false
	}
	y, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	d, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}
