package collector

import (
	"context"
	"fmt"
	"time"

	"FundPulse/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// It implements both HistoryFetcher and QuoteFetcher.
type MockFetcher struct {
	NAV         float64
	Days        int
	Histories   map[string]*model.FundHistory
	Quotes      map[string]*model.Quote
	FailHistory map[string]bool
	FailQuote   map[string]bool
	Delay       time.Duration
	Now         func() time.Time
}

func (m *MockFetcher) FetchHistory(ctx context.Context, code string) (*model.FundHistory, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.FailHistory[code] {
		return nil, fmt.Errorf("mock history failure for %s", code)
	}
	if h, ok := m.Histories[code]; ok {
		return h, nil
	}
	return &model.FundHistory{
		Code:   code,
		Name:   "Mock " + code,
		Series: generateMockSeries(m.NAV, m.days(), m.now()),
	}, nil
}

func (m *MockFetcher) FetchQuote(ctx context.Context, code string) (*model.Quote, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.FailQuote[code] {
		return nil, fmt.Errorf("mock quote failure for %s", code)
	}
	if q, ok := m.Quotes[code]; ok {
		return q, nil
	}
	return &model.Quote{
		Code:           code,
		Name:           "Mock " + code,
		NAV:            m.NAV,
		EstimatedValue: m.NAV,
		AsOf:           m.now(),
	}, nil
}

func (m *MockFetcher) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockFetcher) days() int {
	if m.Days <= 0 {
		return 60
	}
	return m.Days
}

func (m *MockFetcher) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func generateMockSeries(base float64, count int, now time.Time) model.Series {
	if base == 0 {
		base = 1
	}
	series := make(model.Series, count)
	for i := 0; i < count; i++ {
		series[i] = model.TimePoint{
			Timestamp: now.AddDate(0, 0, -(count - 1 - i)).UnixMilli(),
			Value:     base * (1 + float64(i-count/2)*0.001),
		}
	}
	return series
}
