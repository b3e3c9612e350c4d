package store

import (
	"time"

	"BranchRadar/internal/model"
)

// NoopStore is a no-op implementation used when SQLite cannot be opened.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) ReadAll() ([]model.DailyRecord, error)                 { return nil, nil }
func (n *NoopStore) ReplaceDate(_ time.Time, _ []model.DailyRecord) error  { return nil }
func (n *NoopStore) UpdateMatching(_ time.Time, _ string, _ int64, _ float64, _ int64) (bool, error) {
	return false, nil
}
func (n *NoopStore) TickerIDs() ([]string, error) { return nil, nil }
func (n *NoopStore) Close() error                 { return nil }
