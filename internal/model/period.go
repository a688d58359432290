package model

import "strings"

// PeriodWindow is the trailing window applied before indicator computation.
type PeriodWindow string

const (
	Window1Week  PeriodWindow = "1week"
	Window1Month PeriodWindow = "1month"
	Window3Month PeriodWindow = "3month"
	Window6Month PeriodWindow = "6month"

	DefaultWindow = Window1Month
)

var windowDays = map[PeriodWindow]int{
	Window1Week:  7,
	Window1Month: 30,
	Window3Month: 90,
	Window6Month: 180,
}

// legacy keys used by the original web dashboard
var windowAliases = map[string]PeriodWindow{
	"w1": Window1Week,
	"1w": Window1Week,
	"1m": Window1Month,
	"3m": Window3Month,
	"6m": Window6Month,
}

// Days returns the day count of the window. Unknown windows count as 30 days.
func (w PeriodWindow) Days() int {
	if d, ok := windowDays[w]; ok {
		return d
	}
	return 30
}

// Valid reports whether w is one of the four known windows.
func (w PeriodWindow) Valid() bool {
	_, ok := windowDays[w]
	return ok
}

// ParsePeriodWindow accepts canonical names and legacy aliases. The second
// return is false when the input was not recognised; the window returned in
// that case is DefaultWindow.
func ParsePeriodWindow(s string) (PeriodWindow, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if w := PeriodWindow(s); w.Valid() {
		return w, true
	}
	if w, ok := windowAliases[s]; ok {
		return w, true
	}
	return DefaultWindow, false
}
