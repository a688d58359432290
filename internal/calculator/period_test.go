package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"FundPulse/internal/model"
)

func TestFilterSeries_Windows(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		values[i] = 1 + float64(i)/1000
	}
	s := dailySeries(values...)

	tests := []struct {
		window model.PeriodWindow
		want   int
	}{
		{model.Window1Week, 8}, // cutoff is inclusive: today plus 7 previous days
		{model.Window1Month, 31},
		{model.Window3Month, 91},
		{model.Window6Month, 181},
		{model.PeriodWindow("bogus"), 31},
	}
	for _, tt := range tests {
		t.Run(string(tt.window), func(t *testing.T) {
			got := FilterSeries(s, tt.window, testNow)
			assert.Len(t, got, tt.want)
			assert.Equal(t, s[len(s)-1], got[len(got)-1])
		})
	}
}

func TestFilterSeries_Idempotent(t *testing.T) {
	s := dailySeries(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	for _, w := range []model.PeriodWindow{model.Window1Week, model.Window1Month} {
		once := FilterSeries(s, w, testNow)
		twice := FilterSeries(once, w, testNow)
		assert.Equal(t, once, twice)
	}
}

func TestFilterSeries_Empty(t *testing.T) {
	assert.Empty(t, FilterSeries(nil, model.Window1Month, testNow))
	assert.NotNil(t, FilterSeries(nil, model.Window1Month, testNow))
}

func TestFilterSeries_PreservesOrder(t *testing.T) {
	s := dailySeries(5, 4, 3, 2, 1)
	got := FilterSeries(s, model.Window1Month, testNow)
	assert.Equal(t, []float64{5, 4, 3, 2, 1}, got.Values())
}
