package model

// Indicators holds the per-fund signals for one analysis run. A nil
// *Indicators means "insufficient data", never zero.
type Indicators struct {
	PeriodReturn   float64  `json:"period_return"`
	DailyReturn    float64  `json:"daily_return"`
	Return3d       float64  `json:"return_3d"`
	Return5d       float64  `json:"return_5d"`
	ConsecutiveRun int      `json:"consecutive_run"` // sign = direction, magnitude = days
	RateOfChange5d float64  `json:"roc_5d"`
	Volatility     float64  `json:"volatility"` // stddev of daily % returns
	MA5            *float64 `json:"ma5"`
	MA10           *float64 `json:"ma10"`
	MA20           *float64 `json:"ma20"`
	Score          float64  `json:"score"`
	LastValue      float64  `json:"last_value"`
	LastTimestamp  int64    `json:"last_timestamp"`
	PreviousValue  float64  `json:"previous_value"`
}
