package calculator

import (
	"time"

	"FundPulse/internal/model"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// FilterSeries keeps the points whose timestamp is within the trailing window
// ending at now. Order is preserved; a nil or empty series yields an empty one.
func FilterSeries(series model.Series, window model.PeriodWindow, now time.Time) model.Series {
	if len(series) == 0 {
		return model.Series{}
	}
	cutoff := now.UnixMilli() - int64(window.Days())*dayMillis
	out := make(model.Series, 0, len(series))
	for _, p := range series {
		if p.Timestamp >= cutoff {
			out = append(out, p)
		}
	}
	return out
}
