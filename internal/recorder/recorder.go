package recorder

import (
	"time"

	"FundPulse/internal/model"
)

// RunSummary is one row of analysis_runs.
type RunSummary struct {
	SessionID    string             `json:"session_id"`
	Window       model.PeriodWindow `json:"window"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	Instruments  int                `json:"instruments"`
	Failed       int                `json:"failed"`
	Narrated     bool               `json:"narrated"`
	NarrativeErr string             `json:"narrative_error,omitempty"`
}

// Recorder persists analysis history.
type Recorder interface {
	RecordRun(res *model.AnalysisResult) error
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
