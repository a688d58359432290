package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"FundPulse/internal/model"
)

func TestSummarize(t *testing.T) {
	res := &model.AnalysisResult{Instruments: []model.InstrumentResult{
		{
			Code:       "015740",
			Indicators: &model.Indicators{LastValue: 1.2},
			Suggestion: &model.Suggestion{Severity: 1},
			Quote:      &model.Quote{EstimatedChangePct: 1.5},
		},
		{Code: "017470", Indicators: &model.Indicators{LastValue: 2}, Suggestion: &model.Suggestion{Severity: 0}},
		{Code: "161226", Indicators: &model.Indicators{LastValue: 0.9}, Suggestion: &model.Suggestion{Severity: -2}},
		{Code: "023551"},
	}}
	holdings := map[string]*model.Holding{
		"015740": {Code: "015740", Amount: 10000, Cost: 1.0},
		"017470": {Code: "017470", Amount: 5000},
		"161226": {Code: "161226", Amount: 2000, Cost: 1.0},
	}

	s := Summarize(res, holdings)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Buy)
	assert.Equal(t, 1, s.Hold)
	assert.Equal(t, 1, s.Sell)
	assert.Equal(t, 1, s.NoData)
	assert.Equal(t, 17000.0, s.TotalAmount)
	assert.True(t, s.HasPnL)
	assert.InDelta(t, 2000-200, s.PnL, 1e-9)
	assert.InDelta(t, 150, s.EstimatedDailyPnL, 1e-9)
}

func TestSummarize_Nil(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil, nil))
}

func TestTradingOpen(t *testing.T) {
	cst := time.FixedZone("CST", 8*60*60)
	testCases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", time.Date(2026, 3, 20, 9, 29, 0, 0, cst), false},
		{"morning open", time.Date(2026, 3, 20, 9, 30, 0, 0, cst), true},
		{"morning close", time.Date(2026, 3, 20, 11, 30, 0, 0, cst), true},
		{"lunch", time.Date(2026, 3, 20, 12, 0, 0, 0, cst), false},
		{"afternoon", time.Date(2026, 3, 20, 14, 59, 0, 0, cst), true},
		{"close bell", time.Date(2026, 3, 20, 15, 0, 0, 0, cst), true},
		{"after close", time.Date(2026, 3, 20, 15, 1, 0, 0, cst), false},
		{"saturday", time.Date(2026, 3, 21, 10, 0, 0, 0, cst), false},
		{"utc input", time.Date(2026, 3, 20, 2, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TradingOpen(tc.at))
		})
	}
}
