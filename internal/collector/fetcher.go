package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"FundPulse/internal/model"
)

// ErrNoData is returned when a source answers but carries nothing usable.
var ErrNoData = errors.New("no data")

// HistoryFetcher loads the full NAV history of one fund.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, code string) (*model.FundHistory, error)
}

// QuoteFetcher loads the intraday estimate of one fund.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, code string) (*model.Quote, error)
}

// newHTTPClient builds a client that optionally routes through proxyURL.
// Deadlines come from the request context.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   60 * time.Second,
		Transport: transport,
	}
}
