package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"riskgate/internal/observ"
)

// EngineState is the persisted engine state for restart recovery. Only the
// parts that must survive a process restart are written: a tripped kill
// switch stays tripped, its cooldown keeps running from the original trigger
// timestamp, and accumulated system errors and the restart budget carry over.
type EngineState struct {
	TradingDate      string          `json:"trading_date"` // YYYY-MM-DD
	InitialBalance   float64         `json:"initial_balance"`
	KillSwitchState  KillSwitchState `json:"kill_switch_state"`
	TriggerReason    string          `json:"trigger_reason,omitempty"`
	TriggeredAt      time.Time       `json:"triggered_at,omitempty"`
	ResetAttempts    int             `json:"reset_attempts"`
	SystemErrors     int             `json:"system_errors"`
	LastVolatility   VolatilitySnapshot `json:"last_volatility"`
}

// SaveState writes the engine's restart-relevant state atomically
// (temp file then rename).
func (e *Engine) SaveState(path string) error {
	e.mu.Lock()
	ksStatus := e.killSwitch.Status()
	state := EngineState{
		TradingDate:     time.Now().UTC().Format("2006-01-02"),
		InitialBalance:  e.initialBalance,
		KillSwitchState: ksStatus.State,
		TriggerReason:   ksStatus.Reason,
		TriggeredAt:     ksStatus.TriggeredAt,
		ResetAttempts:   ksStatus.ResetAttempts,
		SystemErrors:    e.systemErrors,
		LastVolatility:  e.lastVol,
	}
	e.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal engine state: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp engine state: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename engine state: %w", err)
	}
	return nil
}

// LoadState restores persisted state from the same trading day. A missing
// file or a state file from a previous day is ignored: each session starts
// fresh against its own initial balance.
func (e *Engine) LoadState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read engine state: %w", err)
	}

	var state EngineState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal engine state: %w", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	if state.TradingDate != today {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.systemErrors = state.SystemErrors
	e.lastVol = state.LastVolatility
	if state.InitialBalance > 0 {
		e.initialBalance = state.InitialBalance
		e.lastBalance = state.InitialBalance
	}

	e.killSwitch.mu.Lock()
	e.killSwitch.resetAttempts = state.ResetAttempts
	if state.KillSwitchState == StateTriggered {
		e.killSwitch.state = StateTriggered
		e.killSwitch.reason = state.TriggerReason
		e.killSwitch.triggeredAt = state.TriggeredAt
		observ.SetGauge("kill_switch_triggered", 1, nil)
	}
	e.killSwitch.mu.Unlock()

	observ.IncCounter("engine_state_restored_total", map[string]string{"date": today})
	observ.Log("engine_state_restored", map[string]any{
		"kill_switch":    string(state.KillSwitchState),
		"system_errors":  state.SystemErrors,
		"reset_attempts": state.ResetAttempts,
	})
	return nil
}
