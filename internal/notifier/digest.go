package notifier

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"BranchRadar/internal/estimate"
	"BranchRadar/internal/model"
	"BranchRadar/internal/source"
)

// LINE caps a text message at 2000 characters; an overlong digest is cut at
// truncateAt and marked.
const (
	maxMessageRunes = 2000
	truncateAt      = 1900
)

// Hit is one watch-listed ticker that moved on the digest's target date,
// optionally enriched with best-effort market context.
type Hit struct {
	Entry  model.WatchEntry
	Record model.DailyRecord

	Concentration    float64
	HasConcentration bool
	ChangePct        float64
	HasChange        bool
}

// BuildHits picks the digest's target date (today when present, else the
// latest date with data) and collects that day's watch-listed rows, sorted
// by descending absolute net amount.
func BuildHits(records []model.DailyRecord, watch model.Watchlist, today time.Time) (time.Time, []Hit) {
	if len(records) == 0 {
		return time.Time{}, nil
	}

	// Today when the sink has it, else the latest date present.
	target := time.Time{}
	todayStr := today.Format(model.DateLayout)
	for _, r := range records {
		if r.Day() == todayStr {
			target = r.Date
			break
		}
		if r.Date.After(target) {
			target = r.Date
		}
	}

	targetStr := target.Format(model.DateLayout)
	var hits []Hit
	for _, r := range records {
		if r.Day() != targetStr {
			continue
		}
		entry, ok := watch[r.TickerID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Entry: entry, Record: r})
	}

	sort.Slice(hits, func(i, j int) bool {
		ai, aj := abs64(hits[i].Record.NetAmountK), abs64(hits[j].Record.NetAmountK)
		if ai != aj {
			return ai > aj
		}
		return hits[i].Record.TickerID < hits[j].Record.TickerID
	})
	return target, hits
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Enrich fills concentration and day-change from the price source. Strictly
// best-effort: each field independently stays unknown on any failure, and no
// hit is ever dropped here.
func Enrich(hits []Hit, prices source.PriceFetcher, date time.Time) []Hit {
	for i := range hits {
		snap, err := prices.DaySnapshot(hits[i].Record.TickerID, date)
		if err != nil {
			log.Printf("[WARN] digest enrich %s: %v", hits[i].Record.TickerID, err)
			continue
		}
		if snap.TotalVolume > 0 && hits[i].Record.HasVolume {
			// Share of the day's market volume: a magnitude either way.
			totalLots := snap.TotalVolume / 1000
			hits[i].Concentration = float64(abs64(hits[i].Record.EstVolume)) / totalLots * 100
			hits[i].HasConcentration = true
		}
		if snap.HasChange {
			hits[i].ChangePct = snap.ChangePct
			hits[i].HasChange = true
		}
	}
	return hits
}

// FormatDigest renders the push message: one templated block per hit,
// truncated to the channel limit.
func FormatDigest(date time.Time, hits []Hit) string {
	var b strings.Builder

	b.WriteString("⚡【連接器供應鏈】主力動向\n")
	b.WriteString(fmt.Sprintf("📅 日期: %s\n", date.Format(model.DateLayout)))
	b.WriteString("----------------------\n")

	for _, h := range hits {
		r := h.Record

		trend := "🔴買超"
		switch estimate.DirectionOf(r.NetAmountK) {
		case model.DirectionSell:
			trend = "🟢賣超"
		case model.DirectionFlat:
			trend = "⚪持平"
		}
		lots := fmt.Sprintf("%d", r.EstVolume)
		if r.EstVolume > 0 {
			lots = "+" + lots
		}
		if !r.HasVolume {
			lots = "N/A"
		}
		price := "查無"
		if r.HasPrice {
			price = fmt.Sprintf("%g", r.Price)
		}

		b.WriteString(h.Entry.Category + "\n")
		b.WriteString(fmt.Sprintf("%s %s(%s): %s張\n", trend, h.Entry.Name, r.TickerID, lots))
		b.WriteString(fmt.Sprintf("💰金額: %s千 | 股價: %s\n", groupDigits(r.NetAmountK), price))
		if h.HasConcentration || h.HasChange {
			conc := "未知"
			if h.HasConcentration {
				conc = fmt.Sprintf("%.1f%%", h.Concentration)
			}
			change := "未知"
			if h.HasChange {
				change = fmt.Sprintf("%+.1f%%", h.ChangePct)
			}
			b.WriteString(fmt.Sprintf("📊 佔量: %s | 漲跌: %s\n", conc, change))
		}
		b.WriteString("----------------------\n")
	}

	b.WriteString("詳細趨勢請查看 App")
	return Truncate(b.String())
}

// Truncate enforces the channel's message limit on rune boundaries.
func Truncate(msg string) string {
	runes := []rune(msg)
	if len(runes) <= maxMessageRunes {
		return msg
	}
	return string(runes[:truncateAt]) + "\n...(以下省略)"
}

// groupDigits renders a signed amount with thousands separators.
func groupDigits(v int64) string {
	s := fmt.Sprintf("%d", abs64(v))
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if v < 0 {
		return "-" + out
	}
	return out
}
