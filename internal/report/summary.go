// Package report derives portfolio-level figures from a finished run.
package report

import (
	"time"

	"FundPulse/internal/model"
)

// Summary is the portfolio overview shown above the per-fund lines.
type Summary struct {
	Total             int     `json:"total"`
	Buy               int     `json:"buy"`
	Hold              int     `json:"hold"`
	Sell              int     `json:"sell"`
	NoData            int     `json:"no_data"`
	TotalAmount       float64 `json:"total_amount"`
	HasPnL            bool    `json:"has_pnl"`
	PnL               float64 `json:"pnl"`
	EstimatedDailyPnL float64 `json:"estimated_daily_pnl"`
}

// Summarize counts suggestions by direction and aggregates position P&L.
// P&L uses the latest NAV and only funds with both amount and cost set.
func Summarize(res *model.AnalysisResult, holdings map[string]*model.Holding) Summary {
	var s Summary
	if res == nil {
		return s
	}
	s.Total = len(res.Instruments)
	for _, ir := range res.Instruments {
		h := holdings[ir.Code]
		if h != nil {
			s.TotalAmount += h.Amount
		}

		if ir.Indicators == nil || ir.Suggestion == nil {
			s.NoData++
			continue
		}
		switch {
		case ir.Suggestion.Severity > 0:
			s.Buy++
		case ir.Suggestion.Severity == 0:
			s.Hold++
		default:
			s.Sell++
		}

		if h == nil || h.Amount <= 0 {
			continue
		}
		if h.Cost > 0 {
			s.PnL += PositionPnL(h, ir.Indicators.LastValue)
			s.HasPnL = true
		}
		if ir.Quote != nil {
			s.EstimatedDailyPnL += h.Amount * ir.Quote.EstimatedChangePct / 100
		}
	}
	return s
}

// PositionPnL is the unrealised gain of h at nav.
func PositionPnL(h *model.Holding, nav float64) float64 {
	if h == nil || h.Cost <= 0 {
		return 0
	}
	return h.Amount * (nav - h.Cost) / h.Cost
}

var chinaZone = time.FixedZone("CST", 8*60*60)

// TradingOpen reports whether the mainland exchanges are in a trading
// session at t: weekdays 09:30–11:30 and 13:00–15:00 Beijing time.
// Holidays are not considered.
func TradingOpen(t time.Time) bool {
	t = t.In(chinaZone)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	morning := minutes >= 9*60+30 && minutes <= 11*60+30
	afternoon := minutes >= 13*60 && minutes <= 15*60
	return morning || afternoon
}
