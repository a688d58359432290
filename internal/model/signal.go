package model

// Severity orders suggestions from strong-buy (2) to strong-sell (-2).
type Severity int

const (
	SeverityStrongSell Severity = -2
	SeveritySell       Severity = -1
	SeverityHold       Severity = 0
	SeverityBuy        Severity = 1
	SeverityStrongBuy  Severity = 2
)

// Suggestion is derived from a score on demand and never persisted on its own.
type Suggestion struct {
	Label       string   `json:"label"`        // strong-buy, buy, hold, sell, strong-sell
	DisplayName string   `json:"display_name"` // user-facing label
	ActionText  string   `json:"action_text"`
	Severity    Severity `json:"severity"`
}
