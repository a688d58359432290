package model

import "time"

// Holding is one fund the user tracks, with an optional position.
type Holding struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"` // position value in CNY, 0 when not held
	Cost   float64 `json:"cost"`   // cost NAV, 0 when unknown
}

// HoldingsState is the persisted holdings file.
type HoldingsState struct {
	Codes     []string            `json:"codes"` // display order
	Funds     map[string]*Holding `json:"funds"`
	Window    PeriodWindow        `json:"window"`
	UpdatedAt time.Time           `json:"updated_at"`
}
