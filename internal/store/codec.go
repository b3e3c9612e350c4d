package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"BranchRadar/internal/model"
)

// notAvailable is the sentinel text stored for an unresolved price or volume.
const notAvailable = "N/A"

// encodeRecord renders a record as the seven text cells of the sheet layout.
func encodeRecord(r model.DailyRecord) []string {
	price := notAvailable
	if r.HasPrice {
		price = strconv.FormatFloat(r.Price, 'f', -1, 64)
	}
	vol := notAvailable
	if r.HasVolume {
		vol = strconv.FormatInt(r.EstVolume, 10)
	}
	return []string{
		r.Day(),
		r.TickerID,
		r.TickerName,
		string(r.Direction),
		strconv.FormatInt(r.NetAmountK, 10),
		price,
		vol,
	}
}

// decodeRecord parses seven text cells back into a record. Numeric cells may
// carry thousands separators; sentinels map to the Has* flags.
func decodeRecord(cells []string) (model.DailyRecord, error) {
	if len(cells) != len(Header) {
		return model.DailyRecord{}, fmt.Errorf("decode: want %d cells, got %d", len(Header), len(cells))
	}

	date, err := time.Parse(model.DateLayout, cells[0])
	if err != nil {
		return model.DailyRecord{}, fmt.Errorf("decode date %q: %w", cells[0], err)
	}
	amt, err := strconv.ParseInt(stripCommas(cells[4]), 10, 64)
	if err != nil {
		return model.DailyRecord{}, fmt.Errorf("decode amount %q: %w", cells[4], err)
	}

	rec := model.DailyRecord{
		Date:       date,
		TickerID:   cells[1],
		TickerName: cells[2],
		Direction:  model.Direction(cells[3]),
		NetAmountK: amt,
	}

	if c := stripCommas(cells[5]); c != notAvailable && c != "" {
		if p, err := strconv.ParseFloat(c, 64); err == nil {
			rec.Price = p
			rec.HasPrice = true
		}
	}
	if c := stripCommas(cells[6]); c != notAvailable && c != "" {
		if v, err := strconv.ParseInt(c, 10, 64); err == nil {
			rec.EstVolume = v
			rec.HasVolume = true
		}
	}

	return rec, nil
}

func stripCommas(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}
