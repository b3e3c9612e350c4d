package store

import (
	"time"

	"BranchRadar/internal/model"
)

// Header is the fixed first row of the sheet-shaped sink. Every row below it
// is one DailyRecord rendered as seven text cells.
var Header = []string{
	"date", "ticker_id", "ticker_name", "direction",
	"net_amount_thousands", "price", "estimated_volume",
}

// Store persists DailyRecords keyed by (date, ticker_id). At most one row per
// key; the daily job replaces whole dates, the corrective backfill mutates
// price/volume fields in place.
type Store interface {
	// ReadAll returns every record, ordered by date then ticker id.
	ReadAll() ([]model.DailyRecord, error)
	// ReplaceDate deletes all rows for the date and appends the given set in
	// one transaction, making re-runs idempotent.
	ReplaceDate(date time.Time, rows []model.DailyRecord) error
	// UpdateMatching overwrites the amount/price/volume fields (and the
	// direction derived from the new amount) of one (date, ticker) row.
	// Returns false when no such row exists.
	UpdateMatching(date time.Time, tickerID string, netAmountK int64, price float64, estVol int64) (bool, error)
	// TickerIDs returns the distinct tickers present, in stable order.
	TickerIDs() ([]string, error)
	Close() error
}
