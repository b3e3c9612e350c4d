package store

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"BranchRadar/internal/estimate"
	"BranchRadar/internal/model"
)

// SQLiteStore keeps the sink in a local SQLite database. Cells stay text,
// mirroring the sheet layout; decoding happens once, at this boundary.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the dashboard reads while a job writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			date                 TEXT NOT NULL,
			ticker_id            TEXT NOT NULL,
			ticker_name          TEXT NOT NULL,
			direction            TEXT NOT NULL,
			net_amount_thousands TEXT NOT NULL,
			price                TEXT NOT NULL,
			estimated_volume     TEXT NOT NULL,
			PRIMARY KEY (date, ticker_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_ticker ON records(ticker_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) ReadAll() ([]model.DailyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT date, ticker_id, ticker_name, direction,
		net_amount_thousands, price, estimated_volume
		FROM records ORDER BY date, ticker_id`)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer rows.Close()

	var records []model.DailyRecord
	for rows.Next() {
		cells := make([]string, len(Header))
		dest := make([]interface{}, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(cells)
		if err != nil {
			// Schema drift in stored data is logged, never fatal.
			log.Printf("[WARN] skipping undecodable row: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ReplaceDate(date time.Time, recs []model.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	day := date.Format(model.DateLayout)
	if _, err := tx.Exec(`DELETE FROM records WHERE date = ?`, day); err != nil {
		return fmt.Errorf("clear date %s: %w", day, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO records
		(date, ticker_id, ticker_name, direction, net_amount_thousands, price, estimated_volume)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		cells := encodeRecord(rec)
		args := make([]interface{}, len(cells))
		for i, c := range cells {
			args[i] = c
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert %s/%s: %w", rec.Day(), rec.TickerID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) UpdateMatching(date time.Time, tickerID string, netAmountK int64, price float64, estVol int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE records
		SET net_amount_thousands = ?, price = ?, estimated_volume = ?, direction = ?
		WHERE date = ? AND ticker_id = ?`,
		strconv.FormatInt(netAmountK, 10),
		strconv.FormatFloat(price, 'f', -1, 64),
		strconv.FormatInt(estVol, 10),
		string(estimate.DirectionOf(netAmountK)),
		date.Format(model.DateLayout), tickerID)
	if err != nil {
		return false, fmt.Errorf("update %s/%s: %w", date.Format(model.DateLayout), tickerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) TickerIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT DISTINCT ticker_id FROM records ORDER BY ticker_id`)
	if err != nil {
		return nil, fmt.Errorf("read tickers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite store")
	return s.db.Close()
}
