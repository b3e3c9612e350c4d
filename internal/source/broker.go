package source

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"BranchRadar/internal/model"
)

// ReportEntry is one ticker row of the branch daily report. Amounts are in
// thousands of TWD as published by the report.
type ReportEntry struct {
	TickerID   string
	TickerName string
	BuyK       int64
	SellK      int64
	NetAmountK int64
}

// ReportFetcher abstracts the primary scrape for the aggregator.
type ReportFetcher interface {
	FetchDay(date time.Time) ([]ReportEntry, error)
}

// entryPattern matches the per-stock link marker followed by the three
// numeric cells (buy, sell, net amount) of the report table.
var entryPattern = regexp.MustCompile(`(?s)GenLink2stk\('([A-Z0-9]+)','([^']+)'\);.*?>([-0-9,]+)<.*?>([-0-9,]+)<.*?>([-0-9,]+)<`)

// BrokerReport scrapes the branch daily net-buy/sell report. The page is
// cp950-encoded and rendered through script-generated links, so extraction is
// pattern matching, not DOM walking.
type BrokerReport struct {
	BaseURL  string
	BrokerID string
	Client   *http.Client
}

// NewBrokerReport creates a report scraper with optional proxy support.
func NewBrokerReport(baseURL, brokerID, proxyURL string) *BrokerReport {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BrokerReport{
		BaseURL:  baseURL,
		BrokerID: brokerID,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// encodeBranch renders a branch id the way the report URL expects it: each
// character as a 4-digit UTF-16 hex code unit.
func encodeBranch(id string) string {
	var b strings.Builder
	for _, u := range utf16.Encode([]rune(id)) {
		fmt.Fprintf(&b, "%04X", u)
	}
	return b.String()
}

// headOffice maps a branch id to its head-office code (first two characters
// plus "00").
func headOffice(branchID string) string {
	if len(branchID) < 2 {
		return branchID
	}
	return branchID[:2] + "00"
}

// FetchDay scrapes the report for one date. Zero matches means no trading
// day or no report, not an error; the caller must not treat it as data.
func (r *BrokerReport) FetchDay(date time.Time) ([]ReportEntry, error) {
	day := date.Format(model.DateLayout)
	u := fmt.Sprintf("%s?a=%s&b=%s&c=B&e=%s&f=%s",
		r.BaseURL, headOffice(r.BrokerID), encodeBranch(r.BrokerID), day, day)

	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("report: status %d", resp.StatusCode)
	}

	// The report is served as cp950; decode before matching.
	decoded, err := io.ReadAll(transform.NewReader(resp.Body, traditionalchinese.Big5.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("report decode: %w", err)
	}

	return parseEntries(string(decoded)), nil
}

// parseEntries extracts the per-ticker rows from the decoded report page.
// Duplicate tickers keep their first occurrence.
func parseEntries(page string) []ReportEntry {
	matches := entryPattern.FindAllStringSubmatch(page, -1)
	entries := make([]ReportEntry, 0, len(matches))
	seen := make(map[string]bool)
	for _, m := range matches {
		id := strings.TrimPrefix(m[1], "AS")
		if seen[id] {
			continue
		}
		buy, err1 := parseAmount(m[3])
		sell, err2 := parseAmount(m[4])
		net, err3 := parseAmount(m[5])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		seen[id] = true
		entries = append(entries, ReportEntry{
			TickerID:   id,
			TickerName: strings.TrimSpace(m[2]),
			BuyK:       buy,
			SellK:      sell,
			NetAmountK: net,
		})
	}
	return entries
}

func parseAmount(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 10, 64)
}
