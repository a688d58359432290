// Package holdings persists the tracked funds, their positions and the
// selected analysis window.
package holdings

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"FundPulse/internal/model"
)

// DefaultCodes seeds a fresh holdings file.
var DefaultCodes = []string{"015740", "017470", "161226", "023551"}

var (
	ErrInvalidCode = errors.New("fund code must be 6 digits")
	ErrExists      = errors.New("fund already tracked")
	ErrNotFound    = errors.New("fund not tracked")
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// ValidCode reports whether code looks like a fund code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Store handles holdings operations with concurrency safety. Every mutation
// is written through to disk.
type Store struct {
	mu       sync.Mutex
	state    *model.HoldingsState
	filePath string
	logger   zerolog.Logger
}

// NewStore loads the holdings file or initializes it with DefaultCodes.
func NewStore(filePath string, logger zerolog.Logger) (*Store, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &model.HoldingsState{
			Codes:  append([]string(nil), DefaultCodes...),
			Window: model.DefaultWindow,
		}
	}
	if state.Funds == nil {
		state.Funds = make(map[string]*model.Holding)
	}
	for _, code := range state.Codes {
		if state.Funds[code] == nil {
			state.Funds[code] = &model.Holding{Code: code, Name: code}
		}
	}
	if !state.Window.Valid() {
		state.Window = model.DefaultWindow
	}

	s := &Store{state: state, filePath: filePath, logger: logger}
	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Codes returns the tracked codes in display order.
func (s *Store) Codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.Codes...)
}

// Holdings returns a copy of every tracked fund keyed by code.
func (s *Store) Holdings() map[string]*model.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*model.Holding, len(s.state.Funds))
	for code, h := range s.state.Funds {
		c := *h
		out[code] = &c
	}
	return out
}

// List returns copies of the tracked funds in display order.
func (s *Store) List() []model.Holding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Holding, 0, len(s.state.Codes))
	for _, code := range s.state.Codes {
		out = append(out, *s.state.Funds[code])
	}
	return out
}

// Window returns the selected analysis window.
func (s *Store) Window() model.PeriodWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Window
}

// SetWindow changes the analysis window.
func (s *Store) SetWindow(w model.PeriodWindow) error {
	if !w.Valid() {
		return fmt.Errorf("unknown window %q", w)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Window = w
	return s.save()
}

// Add starts tracking code with no position.
func (s *Store) Add(code string) error {
	if !ValidCode(code) {
		return ErrInvalidCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.Funds[code]; ok {
		return ErrExists
	}
	s.state.Codes = append(s.state.Codes, code)
	s.state.Funds[code] = &model.Holding{Code: code, Name: code}
	return s.save()
}

// Remove stops tracking the given codes. Unknown codes fail the whole call.
func (s *Store) Remove(codes ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		if _, ok := s.state.Funds[code]; !ok {
			return fmt.Errorf("%s: %w", code, ErrNotFound)
		}
	}
	drop := make(map[string]bool, len(codes))
	for _, code := range codes {
		drop[code] = true
		delete(s.state.Funds, code)
	}
	kept := s.state.Codes[:0]
	for _, code := range s.state.Codes {
		if !drop[code] {
			kept = append(kept, code)
		}
	}
	s.state.Codes = kept
	return s.save()
}

// SetPosition records the held amount and cost NAV of a tracked fund.
func (s *Store) SetPosition(code string, amount, cost float64) error {
	if amount < 0 || cost < 0 {
		return fmt.Errorf("amount and cost must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.state.Funds[code]
	if !ok {
		return ErrNotFound
	}
	h.Amount = amount
	h.Cost = cost
	return s.save()
}

// UpdateNames copies resolved fund names from a finished run.
func (s *Store) UpdateNames(result *model.AnalysisResult) {
	if result == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for _, ir := range result.Instruments {
		h, ok := s.state.Funds[ir.Code]
		if !ok || ir.Name == "" || ir.Name == ir.Code || h.Name == ir.Name {
			continue
		}
		h.Name = ir.Name
		changed = true
	}
	if !changed {
		return
	}
	if err := s.save(); err != nil {
		s.logger.Error().Err(err).Msg("failed to save holdings after name update")
	}
}

var importCodePattern = regexp.MustCompile(`\b\d{6}\b`)

// ImportText extracts every 6-digit code from free text, with the amount
// that follows it when present. New codes are added, known codes get their
// amount updated. It returns the unique codes found and how many were new.
func (s *Store) ImportText(text string) (found []string, added int, err error) {
	seen := make(map[string]bool)
	for _, code := range importCodePattern.FindAllString(text, -1) {
		if !seen[code] {
			seen[code] = true
			found = append(found, code)
		}
	}
	if len(found) == 0 {
		return nil, 0, nil
	}

	amounts := make(map[string]float64, len(found))
	for _, code := range found {
		re := regexp.MustCompile(code + `[^\d]*([\d,]+(?:\.\d+)?)\s*(元|¥)?`)
		if m := re.FindStringSubmatch(text); m != nil {
			if v, perr := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); perr == nil {
				amounts[code] = v
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range found {
		if h, ok := s.state.Funds[code]; ok {
			if amounts[code] > 0 {
				h.Amount = amounts[code]
			}
			continue
		}
		s.state.Codes = append(s.state.Codes, code)
		s.state.Funds[code] = &model.Holding{Code: code, Name: code, Amount: amounts[code]}
		added++
	}
	return found, added, s.save()
}

func (s *Store) save() error {
	return SaveState(s.filePath, s.state)
}
