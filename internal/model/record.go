package model

import "time"

// DateLayout is the canonical day format used across the sink and all sources.
const DateLayout = "2006-01-02"

// Direction labels a record by the sign of its net amount.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
	DirectionFlat Direction = "flat"
)

// DailyRecord is one branch net-buy/sell row for a (date, ticker) pair.
// NetAmountK is in thousands of TWD. EstVolume is in thousand-share lots,
// either estimated from the closing price or taken verbatim from the
// precise cost source. HasPrice/HasVolume distinguish real zeroes from the
// "no data" sentinels stored in the sink.
type DailyRecord struct {
	Date       time.Time
	TickerID   string
	TickerName string
	Direction  Direction
	NetAmountK int64
	Price      float64
	HasPrice   bool
	EstVolume  int64
	HasVolume  bool
}

// Day returns the record's date in canonical form.
func (r DailyRecord) Day() string {
	return r.Date.Format(DateLayout)
}
