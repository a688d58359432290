package model

import "time"

// TimePoint is a single NAV sample.
type TimePoint struct {
	Timestamp int64   `json:"x"` // epoch millis
	Value     float64 `json:"y"`
}

// Time returns the sample time in the local zone.
func (p TimePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// Series is an ascending NAV history for one fund. Callers guarantee order;
// duplicates are kept as-is.
type Series []TimePoint

// Values extracts the NAV column.
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// FundHistory is what the history collaborator returns for one fund.
type FundHistory struct {
	Code             string
	Name             string
	Series           Series
	CumulativeReturn Series // optional, may be nil
}

// Quote is the intraday estimate for one fund.
type Quote struct {
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	NAV                float64   `json:"nav"`       // last published NAV
	NAVDate            string    `json:"nav_date"`  // date of NAV, yyyy-mm-dd
	EstimatedValue     float64   `json:"estimate"`  // intraday estimated NAV
	EstimatedChangePct float64   `json:"change_pct"`
	AsOf               time.Time `json:"as_of"`
}
