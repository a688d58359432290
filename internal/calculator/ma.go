package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateSMA returns the simple moving average of the last period values,
// or nil if there are fewer than period values.
func CalculateSMA(values []float64, period int) *float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	sma := talib.Sma(values[len(values)-period:], period)
	last := sma[len(sma)-1]
	if math.IsNaN(last) {
		return nil
	}
	return &last
}

// CalculateROC returns the period rate of change in percent using the last
// value against the value period steps earlier. ok is false when there is not
// enough data.
func CalculateROC(values []float64, period int) (roc float64, ok bool) {
	if period <= 0 || len(values) <= period {
		return 0, false
	}
	out := talib.Roc(values[len(values)-period-1:], period)
	return out[len(out)-1], true
}
