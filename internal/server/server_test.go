package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPulse/internal/analysis"
	"FundPulse/internal/holdings"
	"FundPulse/internal/logger"
	"FundPulse/internal/metrics"
	"FundPulse/internal/model"
)

type fakeRunner struct {
	mu   sync.Mutex
	busy bool
	reqs []analysis.Request
	last *model.AnalysisResult
}

func (f *fakeRunner) Start(_ context.Context, req analysis.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return "", analysis.ErrAnalysisInProgress
	}
	f.reqs = append(f.reqs, req)
	return "session-1", nil
}

func (f *fakeRunner) Phase() model.Phase          { return model.PhaseIdle }
func (f *fakeRunner) Last() *model.AnalysisResult { return f.last }
func (f *fakeRunner) NarrationEnabled() bool      { return true }

func newTestServer(t *testing.T) (*Server, *fakeRunner) {
	t.Helper()
	store, err := holdings.NewStore(filepath.Join(t.TempDir(), "holdings.json"), logger.Nop())
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	metrics.New(reg).RunFinished(metrics.OutcomeCompleted)

	runner := &fakeRunner{}
	s := New(Config{Log: logger.Nop(), Runner: runner, Holdings: store, Gatherer: reg})
	s.now = func() time.Time { return time.Date(2026, 3, 20, 2, 0, 0, 0, time.UTC) }
	return s, runner
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestStartAnalysis(t *testing.T) {
	s, runner := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/analysis", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "session-1", decode(t, rec)["session_id"])
	require.Len(t, runner.reqs, 1)
	assert.Equal(t, holdings.DefaultCodes, runner.reqs[0].Codes)
	assert.True(t, runner.reqs[0].Narrate)

	rec = do(t, s, http.MethodPost, "/api/analysis", `{"codes":["110011"],"window":"6m","narrate":false}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"110011"}, runner.reqs[1].Codes)
	assert.Equal(t, model.Window6Month, runner.reqs[1].Window)
	assert.False(t, runner.reqs[1].Narrate)

	runner.busy = true
	rec = do(t, s, http.MethodPost, "/api/analysis", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "in progress")
}

func TestStartAnalysis_BadInput(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/analysis", `{"codes":["12"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/analysis", `{"window":"2y"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/analysis", `{`).Code)
}

func TestLatest(t *testing.T) {
	s, runner := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/analysis/latest", "").Code)

	runner.last = &model.AnalysisResult{
		SessionID: "s9",
		Window:    model.Window1Month,
		Instruments: []model.InstrumentResult{
			{Code: "015740", Indicators: &model.Indicators{Score: -4}, Suggestion: &model.Suggestion{Label: "buy", Severity: 1}},
		},
	}
	rec := do(t, s, http.MethodGet, "/api/analysis/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "s9", body["result"].(map[string]any)["session_id"])
	assert.Equal(t, 1.0, body["summary"].(map[string]any)["buy"])
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "idle", body["phase"])
	assert.Equal(t, true, body["trading_open"])
	assert.Equal(t, "1month", body["window"])
}

func TestFundsCRUD(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/funds", `{"code":"110011"}`).Code)
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/api/funds", `{"code":"110011"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/api/funds", `{"code":"x"}`).Code)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/funds/017470", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/api/funds/017470", "").Code)

	rec := do(t, s, http.MethodPut, "/api/funds/015740/position", `{"amount":8000,"cost":1.25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8000.0, decode(t, rec)["amount"])
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPut, "/api/funds/999999/position", `{"amount":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/funds/015740/position", `{"amount":-1}`).Code)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPut, "/api/window", `{"window":"1w"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPut, "/api/window", `{"window":"10y"}`).Code)

	rec = do(t, s, http.MethodGet, "/api/funds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "1week", body["window"])
	assert.Len(t, body["funds"], 4)
}

func TestImport(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/funds/import", "买入 110011 1000元")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{"110011"}, body["found"])
	assert.Equal(t, 1.0, body["added"])
}

func TestRunsAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/runs?limit=0", "").Code)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fundpulse_analysis_runs_total")

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
}
