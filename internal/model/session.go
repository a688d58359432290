package model

import "time"

// Phase is the orchestrator state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCollecting Phase = "collecting"
	PhaseComputing  Phase = "computing"
	PhaseNarrating  Phase = "narrating"
)

// InstrumentData is the per-fund slot of an analysis session. Series and
// Quote are both nil when either fetch failed.
type InstrumentData struct {
	Code             string
	Name             string
	Series           Series
	CumulativeReturn Series
	Quote            *Quote
	Indicators       *Indicators
	FetchErr         error
}

// InstrumentResult is the per-fund part of a finished run. CumulativeReturn
// is the provider's cumulative return curve (percent) cut to the run window.
type InstrumentResult struct {
	Code             string      `json:"code"`
	Name             string      `json:"name"`
	Quote            *Quote      `json:"quote,omitempty"`
	Indicators       *Indicators `json:"indicators"`
	Suggestion       *Suggestion `json:"suggestion,omitempty"`
	CumulativeReturn Series      `json:"cumulative_return,omitempty"`
	FetchError       string      `json:"fetch_error,omitempty"`
}

// AnalysisResult is delivered on completion of a run.
type AnalysisResult struct {
	SessionID    string             `json:"session_id"`
	Window       PeriodWindow       `json:"window"`
	Instruments  []InstrumentResult `json:"instruments"`
	Narrated     bool               `json:"narrated"`
	Narrative    string             `json:"narrative,omitempty"`
	NarrativeErr string             `json:"narrative_error,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
}
