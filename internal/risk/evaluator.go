package risk

import "math"

// Rejection reasons returned by the limit evaluator. The first failing check
// wins; checks that pass may still contribute warnings.
const (
	ReasonKillSwitchTriggered     = "kill_switch_triggered"
	ReasonVIXAboveLimit           = "vix_above_limit"
	ReasonVolatilityAboveLimit    = "volatility_percentile_above_limit"
	ReasonExtremeVolatility       = "extreme_volatility_regime"
	ReasonDailyLossExceeded       = "daily_loss_limit_exceeded"
	ReasonDrawdownExceeded        = "drawdown_limit_exceeded"
	ReasonNotionalExceeded        = "total_notional_limit_exceeded"
	ReasonConcentrationExceeded   = "concentration_limit_exceeded"
	ReasonMaxCorrelatedPositions  = "max_correlated_positions_reached"
	ReasonPositionSizeAboveLimit  = "position_size_above_limit"
	ReasonLeverageExceeded        = "leverage_limit_exceeded"
	ReasonStopLossExceedsBudget   = "stop_loss_exceeds_risk_budget"
	ReasonNetDeltaExceeded        = "net_delta_limit_exceeded"
	ReasonNetGammaExceeded        = "net_gamma_limit_exceeded"
	ReasonNetThetaExceeded        = "net_theta_limit_exceeded"
	ReasonNetVegaExceeded         = "net_vega_limit_exceeded"
	ReasonAdjustedSizeBelowMin    = "adjusted_size_below_minimum"
)

// EvaluationResult is the admission decision for one candidate signal.
// Rejections are data, not errors: Approved=false with a reason.
type EvaluationResult struct {
	Approved     bool     `json:"approved"`
	Reason       string   `json:"reason,omitempty"`
	AdjustedSize int      `json:"adjusted_size,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

func reject(reason string, warnings []string) EvaluationResult {
	return EvaluationResult{Approved: false, Reason: reason, Warnings: warnings}
}

// evaluateCandidate runs the ordered fail-fast admission checks against a
// snapshot of current portfolio state. Pure: no shared state is read or
// written, so the same inputs always produce the same result. vix may be nil
// (unknown): the VIX checks are skipped and a warning is attached instead of
// failing closed.
func evaluateCandidate(c CandidateSignal, balance float64, vol VolatilitySnapshot, vix *float64, snap PortfolioRiskSnapshot, limits RiskLimits, killTriggered bool) EvaluationResult {
	var warnings []string

	// 1. Kill-switch gate.
	if killTriggered {
		return reject(ReasonKillSwitchTriggered, nil)
	}

	// 2. Market conditions.
	if vix != nil {
		if *vix > limits.MaxVIXLevel {
			return reject(ReasonVIXAboveLimit, warnings)
		}
		if *vix > 25 {
			warnings = append(warnings, "elevated_vix")
		}
	} else {
		warnings = append(warnings, "vix_unavailable")
	}
	if vol.Percentile > limits.MaxATRPercentile {
		return reject(ReasonVolatilityAboveLimit, warnings)
	}
	if vol.Regime == RegimeExtreme && limits.MaxVolatilityRegime != RegimeExtreme {
		return reject(ReasonExtremeVolatility, warnings)
	}
	if vol.Regime == RegimeHigh {
		warnings = append(warnings, "high_volatility_regime")
	}

	// 3. Portfolio limits.
	if math.Abs(snap.DailyPnL) > limits.MaxDailyLossUSD {
		return reject(ReasonDailyLossExceeded, warnings)
	}
	if snap.DrawdownPct > limits.MaxPortfolioDrawdownPct {
		return reject(ReasonDrawdownExceeded, warnings)
	}
	notional := c.EntryPrice * float64(c.ProposedSize) * limits.ContractMultiplier
	if snap.TotalNotional+notional > limits.MaxTotalNotionalUSD {
		return reject(ReasonNotionalExceeded, warnings)
	}
	if denom := snap.TotalValue + notional; denom > 0 {
		if concentration := notional / denom * 100; concentration > limits.MaxPositionConcentrationPct {
			return reject(ReasonConcentrationExceeded, warnings)
		}
	}
	if snap.PositionCount >= limits.MaxCorrelatedPositions {
		return reject(ReasonMaxCorrelatedPositions, warnings)
	}
	if snap.DrawdownPct >= 0.7*limits.MaxPortfolioDrawdownPct {
		warnings = append(warnings, "approaching_drawdown_limit")
	}
	if math.Abs(snap.DailyPnL) >= 0.7*limits.MaxDailyLossUSD {
		warnings = append(warnings, "approaching_daily_loss_limit")
	}

	// 4. Position limits.
	if c.ProposedSize > limits.MaxPositionSize {
		return reject(ReasonPositionSizeAboveLimit, warnings)
	}
	if balance > 0 && notional/balance > limits.MaxLeverage {
		return reject(ReasonLeverageExceeded, warnings)
	}
	stopLoss := math.Abs(c.EntryPrice-c.StopPrice) * float64(c.ProposedSize) * limits.ContractMultiplier
	if stopLoss > 0.10*balance {
		return reject(ReasonStopLossExceedsBudget, warnings)
	}

	// 5. Greeks limits on the projected book.
	projected := snap.NetGreeks.add(estimateGreeks(c))
	switch {
	case math.Abs(projected.Delta) > limits.MaxNetDelta:
		return reject(ReasonNetDeltaExceeded, warnings)
	case math.Abs(projected.Gamma) > limits.MaxNetGamma:
		return reject(ReasonNetGammaExceeded, warnings)
	case math.Abs(projected.Theta) > limits.MaxNetThetaUSD:
		return reject(ReasonNetThetaExceeded, warnings)
	case math.Abs(projected.Vega) > limits.MaxNetVega:
		return reject(ReasonNetVegaExceeded, warnings)
	}

	// Liquidity proxy from confluence support; advisory only.
	liquidity := 0.5
	if c.ConfluenceZones > 0 {
		liquidity = 0.8
	}
	if liquidity < limits.MinLiquidityScore {
		warnings = append(warnings, "low_liquidity_score")
	}

	adjusted := adjustSize(c, snap.RiskLevel, vol)
	if adjusted < 1 {
		return reject(ReasonAdjustedSizeBelowMin, warnings)
	}

	return EvaluationResult{Approved: true, AdjustedSize: adjusted, Warnings: warnings}
}
