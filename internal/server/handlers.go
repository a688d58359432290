package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"FundPulse/internal/analysis"
	"FundPulse/internal/holdings"
	"FundPulse/internal/model"
	"FundPulse/internal/recorder"
	"FundPulse/internal/report"
)

// RegisterRoutes mounts the API under r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/analysis", func(r chi.Router) {
		r.Post("/", s.handleStartAnalysis)
		r.Get("/latest", s.handleLatest)
	})
	r.Get("/status", s.handleStatus)
	r.Get("/runs", s.handleRuns)

	r.Route("/funds", func(r chi.Router) {
		r.Get("/", s.handleListFunds)
		r.Post("/", s.handleAddFund)
		r.Post("/import", s.handleImport)
		r.Delete("/{code}", s.handleRemoveFund)
		r.Put("/{code}/position", s.handleSetPosition)
	})
	r.Put("/window", s.handleSetWindow)
}

type startRequest struct {
	Codes   []string `json:"codes"`
	Window  string   `json:"window"`
	Narrate *bool    `json:"narrate"`
}

func (s *Server) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := analysis.Request{
		Codes:    body.Codes,
		Window:   s.holdings.Window(),
		Narrate:  true,
		Holdings: s.holdings.Holdings(),
	}
	if len(req.Codes) == 0 {
		req.Codes = s.holdings.Codes()
	}
	for _, code := range req.Codes {
		if !holdings.ValidCode(code) {
			s.writeError(w, http.StatusBadRequest, "invalid fund code: "+code)
			return
		}
	}
	if body.Window != "" {
		win, ok := model.ParsePeriodWindow(body.Window)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown window: "+body.Window)
			return
		}
		req.Window = win
	}
	if body.Narrate != nil {
		req.Narrate = *body.Narrate
	}

	id, err := s.runner.Start(s.ctx, req)
	if errors.Is(err, analysis.ErrAnalysisInProgress) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id": id,
		"codes":      req.Codes,
		"window":     req.Window,
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	last := s.runner.Last()
	if last == nil {
		s.writeError(w, http.StatusNotFound, "no analysis has completed yet")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"result":  last,
		"summary": report.Summarize(last, s.holdings.Holdings()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"phase":             s.runner.Phase(),
		"trading_open":      report.TradingOpen(s.now()),
		"narration_enabled": s.runner.NarrationEnabled(),
		"window":            s.holdings.Window(),
	}
	if last := s.runner.Last(); last != nil {
		status["last_session"] = last.SessionID
		status["last_finished_at"] = last.FinishedAt
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	runs, err := s.recorder.RecentRuns(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("query runs")
		s.writeError(w, http.StatusInternalServerError, "failed to query runs")
		return
	}
	if runs == nil {
		runs = []recorder.RunSummary{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleListFunds(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"window": s.holdings.Window(),
		"funds":  s.holdings.List(),
	})
}

func (s *Server) handleAddFund(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	switch err := s.holdings.Add(body.Code); {
	case errors.Is(err, holdings.ErrInvalidCode):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, holdings.ErrExists):
		s.writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusCreated, map[string]string{"code": body.Code})
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	text, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	found, added, err := s.holdings.ImportText(string(text))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if found == nil {
		found = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"found": found, "added": added})
}

func (s *Server) handleRemoveFund(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := s.holdings.Remove(code); err != nil {
		if errors.Is(err, holdings.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPosition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount float64 `json:"amount"`
		Cost   float64 `json:"cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	code := chi.URLParam(r, "code")
	switch err := s.holdings.SetPosition(code, body.Amount, body.Cost); {
	case errors.Is(err, holdings.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, s.holdings.Holdings()[code])
	}
}

func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Window string `json:"window"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	win, ok := model.ParsePeriodWindow(body.Window)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown window: "+body.Window)
		return
	}
	if err := s.holdings.SetWindow(win); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"window": win})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HTTP helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}
