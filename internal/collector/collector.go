package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"FundPulse/internal/metrics"
	"FundPulse/internal/model"
)

// DefaultFetchTimeout bounds each history or quote request.
const DefaultFetchTimeout = 12 * time.Second

// ProgressFunc is called once per finished instrument. Calls are serialized.
type ProgressFunc func(completed, total int, code string)

// Collector fetches history and quote for many funds concurrently. A failed
// fetch degrades only its own fund.
type Collector struct {
	History     HistoryFetcher
	Quotes      QuoteFetcher
	Timeout     time.Duration
	Concurrency int // max funds in flight, 0 means all at once
	Metrics     *metrics.Recorder
	Logger      zerolog.Logger
}

// NewCollector creates a Collector that fans out every fund at once.
func NewCollector(history HistoryFetcher, quotes QuoteFetcher, logger zerolog.Logger) *Collector {
	return &Collector{
		History: history,
		Quotes:  quotes,
		Timeout: DefaultFetchTimeout,
		Logger:  logger,
	}
}

// CollectAll returns one entry per code, in input order. It never fails as a
// whole; per-fund errors are reported in InstrumentData.FetchErr.
func (c *Collector) CollectAll(ctx context.Context, codes []string, progress ProgressFunc) []model.InstrumentData {
	results := make([]model.InstrumentData, len(codes))

	var (
		mu        sync.Mutex
		completed int
	)
	g := new(errgroup.Group)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}

	for i, code := range codes {
		g.Go(func() error {
			results[i] = c.collectOne(ctx, code)

			mu.Lock()
			completed++
			if progress != nil {
				progress(completed, len(codes), code)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Collector) collectOne(ctx context.Context, code string) model.InstrumentData {
	var (
		history           *model.FundHistory
		quote             *model.Quote
		histErr, quoteErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		fctx, cancel := context.WithTimeout(ctx, c.timeout())
		defer cancel()
		history, histErr = c.History.FetchHistory(fctx, code)
	}()
	go func() {
		defer wg.Done()
		fctx, cancel := context.WithTimeout(ctx, c.timeout())
		defer cancel()
		quote, quoteErr = c.Quotes.FetchQuote(fctx, code)
	}()
	wg.Wait()
	if histErr == nil && history == nil {
		histErr = ErrNoData
	}
	if quoteErr == nil && quote == nil {
		quoteErr = ErrNoData
	}

	data := model.InstrumentData{Code: code, Name: code}

	if histErr != nil {
		c.Metrics.FetchFailed(metrics.KindHistory)
		c.Logger.Warn().Err(histErr).Str("code", code).Msg("history fetch failed")
		data.FetchErr = fmt.Errorf("history: %w", histErr)
	}
	if quoteErr != nil {
		c.Metrics.FetchFailed(metrics.KindQuote)
		c.Logger.Warn().Err(quoteErr).Str("code", code).Msg("quote fetch failed")
		if data.FetchErr == nil {
			data.FetchErr = fmt.Errorf("quote: %w", quoteErr)
		}
	}
	if data.FetchErr != nil {
		return data
	}

	data.Series = history.Series
	data.CumulativeReturn = history.CumulativeReturn
	data.Quote = quote
	switch {
	case history.Name != "":
		data.Name = history.Name
	case quote.Name != "":
		data.Name = quote.Name
	}
	return data
}

func (c *Collector) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultFetchTimeout
	}
	return c.Timeout
}
