package model

import "time"

// PeriodStats is one screened ticker over a statistics window. Ephemeral,
// computed on read. CumAmountK is sign-normalized to a positive magnitude
// under a sell-direction filter.
type PeriodStats struct {
	TickerID   string `json:"ticker_id"`
	TickerName string `json:"ticker_name"`
	AppearDays int    `json:"appear_days"`
	CumAmountK int64  `json:"cumulative_amount_k"`
}

// ChartPoint is one day of a per-ticker chart series. CumVolume is a running
// sum over the chart's display window, which may be wider than the
// statistics window used for average cost.
type ChartPoint struct {
	Date      time.Time
	Price     float64
	HasPrice  bool
	DailyVol  int64
	CumVolume int64
}
