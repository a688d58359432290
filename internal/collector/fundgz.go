package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"FundPulse/internal/model"
)

// DefaultQuoteBaseURL serves js/<code>.js JSONP estimates.
const DefaultQuoteBaseURL = "https://fundgz.1234567.com.cn"

// FundgzFetcher implements QuoteFetcher using the fundgz JSONP endpoint.
type FundgzFetcher struct {
	Client  *http.Client
	BaseURL string
	now     func() time.Time
}

// NewFundgzFetcher creates a quote fetcher.
func NewFundgzFetcher(baseURL, proxyURL string) *FundgzFetcher {
	if baseURL == "" {
		baseURL = DefaultQuoteBaseURL
	}
	return &FundgzFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

type fundgzPayload struct {
	Code      string `json:"fundcode"`
	Name      string `json:"name"`
	NAVDate   string `json:"jzrq"`
	NAV       string `json:"dwjz"`
	Estimate  string `json:"gsz"`
	ChangePct string `json:"gszzl"`
	Time      string `json:"gztime"`
}

// FetchQuote downloads and decodes the estimate for code.
func (f *FundgzFetcher) FetchQuote(ctx context.Context, code string) (*model.Quote, error) {
	u := fmt.Sprintf("%s/js/%s.js?rt=%d", f.BaseURL, code, f.now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fundgz returned %d: %s", resp.StatusCode, string(body))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	q, err := ParseFundgz(body)
	if err != nil {
		return nil, fmt.Errorf("parse quote %s: %w", code, err)
	}
	return q, nil
}

// ParseFundgz decodes a jsonpgz({...}); response. An empty callback body,
// which fundgz sends for funds without intraday estimates, is ErrNoData.
func ParseFundgz(body []byte) (*model.Quote, error) {
	b := bytes.TrimSpace(body)
	start := bytes.IndexByte(b, '(')
	end := bytes.LastIndexByte(b, ')')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("not a jsonp response")
	}
	inner := bytes.TrimSpace(b[start+1 : end])
	if len(inner) == 0 {
		return nil, ErrNoData
	}

	var p fundgzPayload
	if err := json.Unmarshal(inner, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	q := &model.Quote{Code: p.Code, Name: p.Name, NAVDate: p.NAVDate}
	var err error
	if q.EstimatedValue, err = parseNumber(p.Estimate); err != nil {
		return nil, fmt.Errorf("gsz: %w", err)
	}
	if q.EstimatedChangePct, err = parseNumber(p.ChangePct); err != nil {
		return nil, fmt.Errorf("gszzl: %w", err)
	}
	if q.NAV, err = parseNumber(p.NAV); err != nil {
		return nil, fmt.Errorf("dwjz: %w", err)
	}
	if p.Time != "" {
		if t, err := time.ParseInLocation("2006-01-02 15:04", p.Time, chinaZone); err == nil {
			q.AsOf = t
		}
	}
	return q, nil
}

var chinaZone = time.FixedZone("CST", 8*60*60)

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
