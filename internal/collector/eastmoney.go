package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"FundPulse/internal/model"
)

// DefaultHistoryBaseURL serves pingzhongdata/<code>.js scripts.
const DefaultHistoryBaseURL = "https://fund.eastmoney.com"

// EastmoneyFetcher implements HistoryFetcher using the eastmoney
// pingzhongdata script, which declares the history as JS globals.
type EastmoneyFetcher struct {
	Client  *http.Client
	BaseURL string
	now     func() time.Time
}

// NewEastmoneyFetcher creates a history fetcher.
func NewEastmoneyFetcher(baseURL, proxyURL string) *EastmoneyFetcher {
	if baseURL == "" {
		baseURL = DefaultHistoryBaseURL
	}
	return &EastmoneyFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

var jsVarPattern = regexp.MustCompile(`var\s+(\w+)\s*=\s*`)

type grandTotalLine struct {
	Name string       `json:"name"`
	Data [][2]float64 `json:"data"`
}

// FetchHistory downloads and decodes the script for code.
func (f *EastmoneyFetcher) FetchHistory(ctx context.Context, code string) (*model.FundHistory, error) {
	u := fmt.Sprintf("%s/pingzhongdata/%s.js?v=%d", f.BaseURL, code, f.now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Referer", "https://fund.eastmoney.com/")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("eastmoney returned %d: %s", resp.StatusCode, string(body))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	h, err := ParsePingzhongdata(body)
	if err != nil {
		return nil, fmt.Errorf("parse history %s: %w", code, err)
	}
	if h.Code == "" {
		h.Code = code
	}
	return h, nil
}

// ParsePingzhongdata extracts fS_name, fS_code, Data_netWorthTrend and the
// first Data_grandTotal line from a pingzhongdata script. Other globals are
// skipped.
func ParsePingzhongdata(script []byte) (*model.FundHistory, error) {
	h := &model.FundHistory{}
	found := false

	for _, m := range jsVarPattern.FindAllSubmatchIndex(script, -1) {
		name := string(script[m[2]:m[3]])
		rest := script[m[1]:]

		switch name {
		case "fS_name":
			if err := decodeFirst(rest, &h.Name); err != nil {
				return nil, fmt.Errorf("decode fS_name: %w", err)
			}
		case "fS_code":
			if err := decodeFirst(rest, &h.Code); err != nil {
				return nil, fmt.Errorf("decode fS_code: %w", err)
			}
		case "Data_netWorthTrend":
			var trend []model.TimePoint
			if err := decodeFirst(rest, &trend); err != nil {
				return nil, fmt.Errorf("decode Data_netWorthTrend: %w", err)
			}
			h.Series = trend
			found = true
		case "Data_grandTotal":
			var lines []grandTotalLine
			if err := decodeFirst(rest, &lines); err != nil {
				return nil, fmt.Errorf("decode Data_grandTotal: %w", err)
			}
			if len(lines) > 0 {
				h.CumulativeReturn = make(model.Series, len(lines[0].Data))
				for i, p := range lines[0].Data {
					h.CumulativeReturn[i] = model.TimePoint{Timestamp: int64(p[0]), Value: p[1]}
				}
			}
		}
	}

	if !found || len(h.Series) == 0 {
		return nil, ErrNoData
	}
	return h, nil
}

// decodeFirst decodes the single JSON value at the start of b, ignoring
// whatever follows it.
func decodeFirst(b []byte, v any) error {
	return json.NewDecoder(bytes.NewReader(b)).Decode(v)
}
