package calculator

import (
	"time"

	"FundPulse/internal/model"
)

// Score weights.
const (
	WeightPeriodReturn = 0.35
	WeightReturn5d     = 0.25
	WeightConsecutive  = 0.8
	WeightROC          = 0.15
	MACrossBonus       = 0.5
)

// Compute filters series to window and derives the indicator set. It returns
// nil when fewer than two points remain after filtering.
func Compute(series model.Series, window model.PeriodWindow, now time.Time) *model.Indicators {
	pts := FilterSeries(series, window, now)
	if len(pts) < 2 {
		return nil
	}
	v := pts.Values()
	n := len(v)

	ind := &model.Indicators{
		PeriodReturn:   PercentChange(v[0], v[n-1]),
		DailyReturn:    PercentChange(v[n-2], v[n-1]),
		ConsecutiveRun: ConsecutiveRun(v),
		Volatility:     Volatility(v),
		MA5:            CalculateSMA(v, 5),
		MA10:           CalculateSMA(v, 10),
		MA20:           CalculateSMA(v, 20),
		LastValue:      v[n-1],
		LastTimestamp:  pts[n-1].Timestamp,
		PreviousValue:  v[n-2],
	}

	ind.Return3d = ind.DailyReturn
	if n >= 4 {
		ind.Return3d = PercentChange(v[n-4], v[n-1])
	}

	// Return5d and the ROC share a lookback but not a fallback.
	ind.Return5d = ind.PeriodReturn
	if n >= 6 {
		ind.Return5d = PercentChange(v[n-6], v[n-1])
	}
	if roc, ok := CalculateROC(v, 5); ok {
		ind.RateOfChange5d = roc
	}

	ind.Score = Score(ind)
	return ind
}

// Score combines the indicator set into the composite score.
func Score(ind *model.Indicators) float64 {
	score := ind.PeriodReturn*WeightPeriodReturn +
		ind.Return5d*WeightReturn5d +
		float64(ind.ConsecutiveRun)*WeightConsecutive +
		ind.RateOfChange5d*WeightROC
	if ind.MA5 != nil && ind.MA20 != nil {
		switch {
		case *ind.MA5 > *ind.MA20:
			score += MACrossBonus
		case *ind.MA5 < *ind.MA20:
			score -= MACrossBonus
		}
	}
	return score
}
