package analyzer

import (
	"math"
	"sort"
	"time"

	"BranchRadar/internal/model"
)

// minChartDays is the floor on the chart display window: a statistics window
// shorter than this still renders the trailing 30 calendar days ending at the
// window's end. Deliberate UX rule, distinct from the statistics window.
const minChartDays = 30

// inWindow reports whether the record date falls in [start, end] inclusive,
// at day precision.
func inWindow(d, start, end time.Time) bool {
	day := d.Format(model.DateLayout)
	return day >= start.Format(model.DateLayout) && day <= end.Format(model.DateLayout)
}

// Screen filters records to the window and direction, groups them by ticker
// and applies the appearance-day and cumulative-amount minimums. Under a sell
// filter the cumulative amount is normalized to a positive magnitude, so both
// thresholds always compare against positive values. Results are sorted by
// descending cumulative amount.
func Screen(records []model.DailyRecord, start, end time.Time, dir model.Direction, minDays int, minAmountK int64) []model.PeriodStats {
	type group struct {
		name string
		days int
		sum  int64
	}
	groups := make(map[string]*group)

	for _, r := range records {
		if !inWindow(r.Date, start, end) {
			continue
		}
		if dir == model.DirectionBuy && r.NetAmountK <= 0 {
			continue
		}
		if dir == model.DirectionSell && r.NetAmountK >= 0 {
			continue
		}
		g, ok := groups[r.TickerID]
		if !ok {
			g = &group{name: r.TickerName}
			groups[r.TickerID] = g
		}
		g.days++
		g.sum += r.NetAmountK
	}

	stats := make([]model.PeriodStats, 0, len(groups))
	for id, g := range groups {
		sum := g.sum
		if dir == model.DirectionSell {
			sum = -sum
		}
		if g.days < minDays || sum < minAmountK {
			continue
		}
		stats = append(stats, model.PeriodStats{
			TickerID:   id,
			TickerName: g.name,
			AppearDays: g.days,
			CumAmountK: sum,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].CumAmountK != stats[j].CumAmountK {
			return stats[i].CumAmountK > stats[j].CumAmountK
		}
		return stats[i].TickerID < stats[j].TickerID
	})
	return stats
}

// AverageCost computes the window-scoped average cost for one ticker: total
// net amount over [start, end] divided by total volume over the same window.
// The window here is the user's statistics window, never the chart's display
// window. Missing volumes count as zero; a zero total volume yields false.
func AverageCost(records []model.DailyRecord, tickerID string, start, end time.Time) (float64, bool) {
	var amtSum, volSum int64
	for _, r := range records {
		if r.TickerID != tickerID || !inWindow(r.Date, start, end) {
			continue
		}
		amtSum += r.NetAmountK
		if r.HasVolume {
			volSum += r.EstVolume
		}
	}
	if volSum == 0 {
		return 0, false
	}
	return math.Round(float64(amtSum)/float64(volSum)*100) / 100, true
}

// ChartWindow widens a statistics window to the chart display window: spans
// shorter than 30 days render the trailing 30 calendar days ending at end.
func ChartWindow(start, end time.Time) (time.Time, time.Time) {
	if end.Sub(start) < minChartDays*24*time.Hour {
		return end.AddDate(0, 0, -(minChartDays - 1)), end
	}
	return start, end
}

// TickerSummary is the per-ticker headline block next to the chart. TotalLots
// and AvgCost are scoped to the statistics window; LatestClose is the last
// known close inside the display window.
type TickerSummary struct {
	TotalLots   int64
	AvgCost     float64
	HasAvgCost  bool
	LatestClose float64
	HasClose    bool
}

// Chart builds the display-window series and the statistics-window summary
// for one ticker. The cumulative volume is a running sum reset at the start
// of the display window.
func Chart(records []model.DailyRecord, tickerID string, start, end time.Time) ([]model.ChartPoint, TickerSummary) {
	chartStart, chartEnd := ChartWindow(start, end)

	var points []model.ChartPoint
	for _, r := range records {
		if r.TickerID != tickerID || !inWindow(r.Date, chartStart, chartEnd) {
			continue
		}
		vol := int64(0)
		if r.HasVolume {
			vol = r.EstVolume
		}
		points = append(points, model.ChartPoint{
			Date:     r.Date,
			Price:    r.Price,
			HasPrice: r.HasPrice,
			DailyVol: vol,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	var cum int64
	for i := range points {
		cum += points[i].DailyVol
		points[i].CumVolume = cum
	}

	var sum TickerSummary
	for _, r := range records {
		if r.TickerID != tickerID || !inWindow(r.Date, start, end) {
			continue
		}
		if r.HasVolume {
			sum.TotalLots += r.EstVolume
		}
	}
	sum.AvgCost, sum.HasAvgCost = AverageCost(records, tickerID, start, end)
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].HasPrice {
			sum.LatestClose = points[i].Price
			sum.HasClose = true
			break
		}
	}

	return points, sum
}
