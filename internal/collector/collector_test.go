package collector

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPulse/internal/logger"
	"FundPulse/internal/metrics"
	"FundPulse/internal/model"
)

// stallingFetcher hangs until the request deadline for the codes in stall
// and records when every other code finished.
type stallingFetcher struct {
	MockFetcher
	stall map[string]bool

	mu   sync.Mutex
	done map[string]time.Time
}

func (s *stallingFetcher) FetchHistory(ctx context.Context, code string) (*model.FundHistory, error) {
	if s.stall[code] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	h, err := s.MockFetcher.FetchHistory(ctx, code)
	s.mu.Lock()
	s.done[code] = time.Now()
	s.mu.Unlock()
	return h, err
}

func TestCollectAll_PartialFailure(t *testing.T) {
	mock := &MockFetcher{NAV: 1.5, FailHistory: map[string]bool{"017470": true}}
	c := NewCollector(mock, mock, logger.Nop())
	c.Metrics = metrics.New(prometheus.NewRegistry())

	var calls []int
	got := c.CollectAll(context.Background(), []string{"015740", "017470", "161226"}, func(completed, total int, _ string) {
		assert.Equal(t, 3, total)
		calls = append(calls, completed)
	})

	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, calls)

	assert.Equal(t, "015740", got[0].Code)
	assert.NotEmpty(t, got[0].Series)
	assert.NotNil(t, got[0].Quote)
	assert.NoError(t, got[0].FetchErr)

	assert.Equal(t, "017470", got[1].Code)
	assert.Nil(t, got[1].Series)
	assert.Nil(t, got[1].Quote, "a failed history discards the quote too")
	assert.Error(t, got[1].FetchErr)

	assert.NotEmpty(t, got[2].Series)
}

func TestCollectAll_QuoteFailureCounted(t *testing.T) {
	mock := &MockFetcher{FailQuote: map[string]bool{"023551": true}}
	reg := prometheus.NewRegistry()
	c := NewCollector(mock, mock, logger.Nop())
	c.Metrics = metrics.New(reg)

	got := c.CollectAll(context.Background(), []string{"023551"}, nil)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Series)
	assert.Nil(t, got[0].Quote)

	expected := `
# HELP fundpulse_fetch_failures_total Total number of failed history or quote fetches
# TYPE fundpulse_fetch_failures_total counter
fundpulse_fetch_failures_total{kind="quote"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "fundpulse_fetch_failures_total"))
}

func TestCollectAll_Timeout(t *testing.T) {
	mock := &MockFetcher{Delay: time.Second}
	c := NewCollector(mock, mock, logger.Nop())
	c.Timeout = 20 * time.Millisecond

	start := time.Now()
	got := c.CollectAll(context.Background(), []string{"015740", "017470"}, nil)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	for _, d := range got {
		assert.ErrorIs(t, d.FetchErr, context.DeadlineExceeded)
		assert.Nil(t, d.Series)
	}
}

func TestCollectAll_NamePreference(t *testing.T) {
	mock := &MockFetcher{NAV: 1}
	c := NewCollector(mock, mock, logger.Nop())
	got := c.CollectAll(context.Background(), []string{"161226"}, nil)
	assert.Equal(t, "Mock 161226", got[0].Name)
}

func TestCollectAll_Empty(t *testing.T) {
	mock := &MockFetcher{}
	c := NewCollector(mock, mock, logger.Nop())
	assert.Empty(t, c.CollectAll(context.Background(), nil, nil))
}

func TestCollectAll_StalledFundsDoNotDelayOthers(t *testing.T) {
	f := &stallingFetcher{
		MockFetcher: MockFetcher{NAV: 1},
		stall:       map[string]bool{"000001": true, "000002": true, "000003": true, "000004": true},
		done:        map[string]time.Time{},
	}
	c := NewCollector(f, &f.MockFetcher, logger.Nop())
	c.Timeout = 800 * time.Millisecond

	start := time.Now()
	got := c.CollectAll(context.Background(), []string{"000001", "000002", "000003", "000004", "015740"}, nil)

	require.Len(t, got, 5)
	for _, d := range got[:4] {
		assert.ErrorIs(t, d.FetchErr, context.DeadlineExceeded)
	}
	assert.NoError(t, got[4].FetchErr)
	assert.NotEmpty(t, got[4].Series)

	f.mu.Lock()
	finished, ok := f.done["015740"]
	f.mu.Unlock()
	require.True(t, ok)
	assert.Less(t, finished.Sub(start), 400*time.Millisecond)
}

func TestCollectAll_ConcurrencyCap(t *testing.T) {
	f := &stallingFetcher{
		MockFetcher: MockFetcher{NAV: 1},
		stall:       map[string]bool{"000001": true},
		done:        map[string]time.Time{},
	}
	c := NewCollector(f, &f.MockFetcher, logger.Nop())
	c.Timeout = 300 * time.Millisecond
	c.Concurrency = 1

	start := time.Now()
	got := c.CollectAll(context.Background(), []string{"000001", "015740"}, nil)
	require.Len(t, got, 2)
	assert.NoError(t, got[1].FetchErr)

	f.mu.Lock()
	finished := f.done["015740"]
	f.mu.Unlock()
	assert.GreaterOrEqual(t, finished.Sub(start), 300*time.Millisecond, "a capped pool waits for a free slot")
}
