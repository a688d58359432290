package calculator

import (
	"gonum.org/v1/gonum/stat"
)

// PercentChange returns (to-from)/from in percent.
func PercentChange(from, to float64) float64 {
	return (to - from) / from * 100
}

// DailyReturns converts a value series into day-over-day percent returns.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns[i-1] = PercentChange(values[i-1], values[i])
	}
	return returns
}

// Volatility is the population standard deviation of the daily percent
// returns of values.
func Volatility(values []float64) float64 {
	returns := DailyReturns(values)
	if len(returns) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(returns, nil)
	return std
}

// ConsecutiveRun counts the trailing same-direction moves. The direction is
// taken from the last step (a flat last step counts as up) and flat steps
// extend the run. The result carries the direction as its sign.
func ConsecutiveRun(values []float64) int {
	n := len(values)
	if n < 2 {
		return 0
	}
	dir := 1.0
	if values[n-1] < values[n-2] {
		dir = -1
	}
	run := 0
	for i := n - 1; i >= 1; i-- {
		if (values[i]-values[i-1])*dir < 0 {
			break
		}
		run++
	}
	return int(dir) * run
}
