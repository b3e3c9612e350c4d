package model

// WatchEntry describes one curated ticker eligible for precise cost lookups.
type WatchEntry struct {
	TickerID string `yaml:"id" json:"ticker_id"`
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
}

// Watchlist maps ticker id to its entry. Built once from config and injected;
// never mutated after startup.
type Watchlist map[string]WatchEntry

// Contains reports whether the ticker is watch-listed.
func (w Watchlist) Contains(tickerID string) bool {
	_, ok := w[tickerID]
	return ok
}
