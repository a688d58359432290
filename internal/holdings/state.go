package holdings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"FundPulse/internal/model"
)

// LoadState reads the holdings file. Returns nil, nil if the file doesn't exist.
func LoadState(filePath string) (*model.HoldingsState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read holdings: %w", err)
	}
	var state model.HoldingsState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse holdings: %w", err)
	}
	return &state, nil
}

// SaveState writes the holdings file, creating its directory if needed.
func SaveState(filePath string, state *model.HoldingsState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create holdings dir: %w", err)
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
