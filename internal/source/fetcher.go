package source

import (
	"errors"
	"time"
)

// Sentinel errors shared by all sources. ErrNoData and ErrNoPrice degrade the
// caller to its fallback path; ErrCookieExpired is a credential error and
// fatal for the run.
var (
	ErrNoData        = errors.New("source: no data")
	ErrNoPrice       = errors.New("source: no price data")
	ErrCookieExpired = errors.New("source: session cookie expired")
)

// DayMarket carries best-effort market context for one ticker and day.
// TotalVolume is in shares; ChangePct is day-over-day.
type DayMarket struct {
	Close       float64
	TotalVolume float64
	ChangePct   float64
	HasChange   bool
}

// PriceFetcher resolves closing prices and day-level market snapshots.
type PriceFetcher interface {
	ClosePrice(tickerID string, date time.Time) (float64, error)
	DaySnapshot(tickerID string, date time.Time) (*DayMarket, error)
	Name() string
}

// MockPriceFetcher returns controllable fixed data for development and testing.
type MockPriceFetcher struct {
	Prices    map[string]float64
	Snapshots map[string]*DayMarket
	Err       error
}

func (m *MockPriceFetcher) Name() string { return "mock" }

func (m *MockPriceFetcher) ClosePrice(tickerID string, _ time.Time) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	p, ok := m.Prices[tickerID]
	if !ok {
		return 0, ErrNoPrice
	}
	return p, nil
}

func (m *MockPriceFetcher) DaySnapshot(tickerID string, _ time.Time) (*DayMarket, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.Snapshots[tickerID]
	if !ok {
		return nil, ErrNoData
	}
	return s, nil
}
