package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"riskgate/internal/observ"
)

// escalationThresholdMin is the remaining-time floor below which a position's
// individual risk score is escalated on each monitor tick.
const escalationThresholdMin = 30.0

// defaultMaxHistoryEntries bounds the snapshot history kept by the engine.
const defaultMaxHistoryEntries = 500

// EngineConfig parameterizes a risk engine. Zero values fall back to the
// documented reference defaults.
type EngineConfig struct {
	Limits            RiskLimits
	Triggers          KillSwitchTriggers
	InitialBalance    float64
	EventLogPath      string
	MaxHistoryEntries int
}

// MonitorResult is the outcome of one monitor tick.
type MonitorResult struct {
	RiskStatus          PortfolioRiskSnapshot `json:"risk_status"`
	Actions             []string              `json:"actions"`
	KillSwitchTriggered bool                  `json:"kill_switch_triggered"`
}

// EngineStatus is the operator-facing status query result.
type EngineStatus struct {
	PortfolioRisk    PortfolioRiskSnapshot `json:"portfolio_risk"`
	KillSwitchActive bool                  `json:"kill_switch_active"`
	KillSwitch       KillSwitchStatus      `json:"kill_switch"`
	PositionCount    int                   `json:"position_count"`
	RecentEvents     []RiskEvent           `json:"recent_events"`
}

// Engine gates admission of new positions and monitors open exposure. The
// admission path and the periodic monitor path can run concurrently; a single
// mutex serializes them so an admission decision and a monitor tick never
// interleave on an inconsistent snapshot.
type Engine struct {
	mu             sync.Mutex
	limits         RiskLimits
	triggers       KillSwitchTriggers
	initialBalance float64
	lastBalance    float64
	registry       *Registry
	killSwitch     *KillSwitch
	events         *EventLog
	history        []PortfolioRiskSnapshot
	maxHistory     int
	systemErrors   int
	lastVol        VolatilitySnapshot
}

// NewEngine constructs an engine with the given configuration, applying the
// documented $25,000-account defaults for any zero-valued section.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Limits == (RiskLimits{}) {
		cfg.Limits = DefaultLimits()
	}
	if cfg.Triggers == (KillSwitchTriggers{}) {
		cfg.Triggers = DefaultTriggers()
	}
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = 25000
	}
	if cfg.MaxHistoryEntries <= 0 {
		cfg.MaxHistoryEntries = defaultMaxHistoryEntries
	}

	events := NewEventLog(cfg.EventLogPath, 0)
	e := &Engine{
		limits:         cfg.Limits,
		triggers:       cfg.Triggers,
		initialBalance: cfg.InitialBalance,
		lastBalance:    cfg.InitialBalance,
		registry:       NewRegistry(cfg.Limits),
		killSwitch:     NewKillSwitch(cfg.Triggers, events),
		events:         events,
		maxHistory:     cfg.MaxHistoryEntries,
		lastVol:        VolatilitySnapshot{Regime: RegimeNormal, Percentile: 50},
	}
	observ.Log("risk_engine_started", map[string]any{
		"initial_balance": cfg.InitialBalance,
		"max_daily_loss":  cfg.Limits.MaxDailyLossUSD,
		"kill_drawdown":   cfg.Triggers.DrawdownPct,
	})
	return e
}

// EvaluateNewPosition runs the admission checks for a candidate against the
// current portfolio state. It mutates nothing except the remembered balance
// and volatility; registering an approved position is the caller's step, via
// AddPosition under the same logical transaction or via OpenPosition.
func (e *Engine) EvaluateNewPosition(c CandidateSignal, balance float64, vol VolatilitySnapshot, vix *float64) EvaluationResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluateLocked(c, balance, vol, vix)
}

// evaluateLocked assumes e.mu is held.
func (e *Engine) evaluateLocked(c CandidateSignal, balance float64, vol VolatilitySnapshot, vix *float64) EvaluationResult {
	start := time.Now()
	e.lastBalance = balance
	e.lastVol = vol

	snap := e.snapshotLocked(balance)
	result := evaluateCandidate(c, balance, vol, vix, snap, e.limits, e.killSwitch.Triggered())
	observ.RecordDuration("admission_latency", time.Since(start), nil)

	if result.Approved {
		observ.IncCounter("risk_admissions_total", map[string]string{"decision": "approved"})
	} else {
		observ.IncCounter("risk_admissions_total", map[string]string{"decision": "rejected"})
		observ.IncCounter("risk_rejections_total", map[string]string{"reason": result.Reason})
		e.events.Append(EventLimitBreach, SeverityMedium, "candidate rejected: "+result.Reason, map[string]any{
			"proposed_size": c.ProposedSize,
			"entry_price":   c.EntryPrice,
		})
	}
	observ.Log("admission_decision", map[string]any{
		"approved":      result.Approved,
		"reason":        result.Reason,
		"adjusted_size": result.AdjustedSize,
		"warnings":      len(result.Warnings),
	})
	return result
}

// AddPosition registers an approved position in the registry.
func (e *Engine) AddPosition(id string, signal CandidateSignal, actualSize int, entryGreeks GreeksSnapshot) PositionRisk {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos := e.registry.Add(id, signal, actualSize, entryGreeks)
	observ.Log("position_opened", map[string]any{
		"id":       id,
		"size":     actualSize,
		"notional": pos.NotionalValue,
		"max_loss": pos.MaxLoss,
	})
	return pos
}

// OpenPosition evaluates a candidate and, if approved, registers the
// resulting position at the adjusted size under one critical section, so no
// concurrent admission or monitor tick can interleave between the read and
// the write.
func (e *Engine) OpenPosition(id string, c CandidateSignal, balance float64, vol VolatilitySnapshot, vix *float64) (EvaluationResult, *PositionRisk) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := e.evaluateLocked(c, balance, vol, vix)
	if !result.Approved {
		return result, nil
	}

	pos := e.registry.Add(id, c, result.AdjustedSize, estimateGreeks(c))
	observ.Log("position_opened", map[string]any{
		"id":       id,
		"size":     result.AdjustedSize,
		"notional": pos.NotionalValue,
		"max_loss": pos.MaxLoss,
	})
	return result, &pos
}

// UpdatePosition refreshes a position with current market data.
func (e *Engine) UpdatePosition(id string, price float64, greeks GreeksSnapshot, timeRemainingMin float64) (PositionRisk, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Update(id, price, greeks, timeRemainingMin)
}

// RemovePosition deletes a closed position. No-op if absent.
func (e *Engine) RemovePosition(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Remove(id)
}

// ObserveVolatility records the latest volatility classification, used by the
// monitor's volatility-spike trigger between admission calls.
func (e *Engine) ObserveVolatility(vol VolatilitySnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastVol = vol
}

// RecordSystemError reports an external pipeline failure. Errors are not
// rejections; they accumulate toward the system-error kill-switch trigger.
func (e *Engine) RecordSystemError(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.systemErrors++
	e.events.Append(EventWarning, SeverityMedium, "system error: "+message, map[string]any{
		"error_count": e.systemErrors,
	})
	observ.IncCounter("risk_system_errors_total", nil)
	observ.SetGauge("risk_system_errors", float64(e.systemErrors), nil)
}

// MonitorRisk runs one periodic monitor tick: recomputes the snapshot,
// appends it to history, evaluates kill-switch triggers and soft warning
// thresholds, and ages open positions by one minute.
func (e *Engine) MonitorRisk(balance float64) MonitorResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastBalance = balance
	var actions []string

	snap := e.snapshotLocked(balance)

	// Hard triggers, first match wins.
	if !e.killSwitch.Triggered() {
		if reason, ok := e.triggerBreached(snap); ok {
			e.killSwitch.Trip(reason, map[string]any{
				"drawdown_pct":  snap.DrawdownPct,
				"daily_pnl":     snap.DailyPnL,
				"system_errors": e.systemErrors,
			})
			actions = append(actions, "kill_switch_triggered:"+reason)
			snap.KillSwitchActive = true
			snap.RiskLevel = LevelEmergency
		}
	}

	// Soft warnings, non-blocking.
	if snap.DrawdownPct >= e.triggers.WarnDrawdownPct {
		snap.ActiveWarnings = append(snap.ActiveWarnings, "drawdown_warning")
		e.events.Append(EventWarning, SeverityLow, fmt.Sprintf("drawdown %.1f%% past warning threshold", snap.DrawdownPct), nil)
		actions = append(actions, "warned:drawdown")
	}
	if math.Abs(snap.DailyPnL) >= e.triggers.WarnDailyLossUSD {
		snap.ActiveWarnings = append(snap.ActiveWarnings, "daily_loss_warning")
		e.events.Append(EventWarning, SeverityLow, fmt.Sprintf("daily P&L $%.0f past warning threshold", snap.DailyPnL), nil)
		actions = append(actions, "warned:daily_loss")
	}

	// Age positions one minute and escalate those near expiry.
	for _, id := range e.registry.tick(escalationThresholdMin) {
		actions = append(actions, "escalated_position_risk:"+id)
	}

	if snap.RiskLevel.AtLeast(LevelCritical) {
		e.events.Append(EventWarning, SeverityCritical, "portfolio risk level "+string(snap.RiskLevel), map[string]any{
			"drawdown_pct": snap.DrawdownPct,
			"daily_pnl":    snap.DailyPnL,
		})
	}

	e.history = append(e.history, snap)
	if len(e.history) > e.maxHistory {
		e.history = e.history[len(e.history)-e.maxHistory:]
	}

	observ.SetGauge("portfolio_drawdown_pct", snap.DrawdownPct, nil)
	observ.SetGauge("portfolio_daily_pnl", snap.DailyPnL, nil)
	observ.SetGauge("portfolio_total_notional", snap.TotalNotional, nil)
	observ.SetGauge("portfolio_risk_level", float64(snap.RiskLevel.severity()), nil)

	return MonitorResult{
		RiskStatus:          snap,
		Actions:             actions,
		KillSwitchTriggered: e.killSwitch.Triggered(),
	}
}

// triggerBreached evaluates the hard kill-switch triggers in fixed priority
// order and returns the first breached trigger's reason.
func (e *Engine) triggerBreached(snap PortfolioRiskSnapshot) (string, bool) {
	switch {
	case snap.DrawdownPct >= e.triggers.DrawdownPct:
		return "drawdown_breach", true
	case math.Abs(snap.DailyPnL) >= e.triggers.DailyLossUSD:
		return "daily_loss_breach", true
	case e.lastVol.Percentile >= e.triggers.VolatilitySpikePctile:
		return "volatility_spike", true
	case e.triggers.SystemErrorCount > 0 && e.systemErrors >= e.triggers.SystemErrorCount:
		return "system_errors", true
	}
	return "", false
}

// ResetKillSwitch attempts to re-arm trading after a trigger. On success the
// accumulated system-error counter is cleared.
func (e *Engine) ResetKillSwitch(manualOverride bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.killSwitch.Reset(manualOverride); err != nil {
		observ.IncCounter("kill_switch_reset_failures_total", nil)
		return err
	}
	e.systemErrors = 0
	observ.SetGauge("risk_system_errors", 0, nil)
	return nil
}

// KillSwitchTriggered reports whether admissions are currently halted.
func (e *Engine) KillSwitchTriggered() bool {
	return e.killSwitch.Triggered()
}

// Status returns the operator status view based on the last reported balance.
func (e *Engine) Status() EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return EngineStatus{
		PortfolioRisk:    e.snapshotLocked(e.lastBalance),
		KillSwitchActive: e.killSwitch.Triggered(),
		KillSwitch:       e.killSwitch.Status(),
		PositionCount:    e.registry.Count(),
		RecentEvents:     e.events.Recent(10),
	}
}

// History returns a copy of the bounded snapshot history.
func (e *Engine) History() []PortfolioRiskSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]PortfolioRiskSnapshot, len(e.history))
	copy(out, e.history)
	return out
}

// Events exposes the engine-owned event log for read access.
func (e *Engine) Events() *EventLog {
	return e.events
}

// snapshotLocked assumes e.mu is held.
func (e *Engine) snapshotLocked(balance float64) PortfolioRiskSnapshot {
	return computeSnapshot(e.initialBalance, balance, e.registry.List(), e.limits, e.killSwitch.Triggered())
}
