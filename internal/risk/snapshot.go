package risk

import (
	"math"
	"time"
)

// NetGreeks are portfolio-level Greeks summed across open positions.
type NetGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// add returns the net Greeks with a projection layered on top.
func (g NetGreeks) add(s GreeksSnapshot) NetGreeks {
	return NetGreeks{
		Delta: g.Delta + s.Delta,
		Gamma: g.Gamma + s.Gamma,
		Theta: g.Theta + s.Theta,
		Vega:  g.Vega + s.Vega,
	}
}

// PortfolioRiskSnapshot is a derived, point-in-time view of portfolio risk.
// It is recomputed on every call and never used as a source of truth beyond
// the bounded history kept by the engine.
type PortfolioRiskSnapshot struct {
	Timestamp        time.Time `json:"timestamp"`
	TotalValue       float64   `json:"total_value"`
	TotalNotional    float64   `json:"total_notional"`
	TotalMaxLoss     float64   `json:"total_max_loss"`
	CurrentPnL       float64   `json:"current_pnl"`
	DailyPnL         float64   `json:"daily_pnl"`
	DrawdownPct      float64   `json:"drawdown_pct"`
	NetGreeks        NetGreeks `json:"net_greeks"`
	ApproxVaR        float64   `json:"approx_var"`
	ConcentrationRisk float64  `json:"concentration_risk"` // 0-1
	CorrelationRisk  float64   `json:"correlation_risk"`   // 0-1
	LiquidityRisk    float64   `json:"liquidity_risk"`     // 0-1
	TimeDecayRisk    float64   `json:"time_decay_risk"`    // 0-1
	RiskLevel        RiskLevel `json:"risk_level"`
	ActiveWarnings   []string  `json:"active_warnings"`
	PositionCount    int       `json:"position_count"`
	KillSwitchActive bool      `json:"kill_switch_active"`
}

// riskLevelFor maps drawdown percent and daily P&L onto the discrete risk
// bands. Checked from most severe downward; the higher of the two metrics
// drives the band, so the result is monotonic in both.
func riskLevelFor(drawdownPct, dailyPnL float64) RiskLevel {
	loss := math.Abs(dailyPnL)
	switch {
	case drawdownPct > 15 || loss > 7500:
		return LevelEmergency
	case drawdownPct > 10 || loss > 5000:
		return LevelCritical
	case drawdownPct > 7 || loss > 2500:
		return LevelHigh
	case drawdownPct > 3 || loss > 1000:
		return LevelModerate
	default:
		return LevelLow
	}
}

// computeSnapshot aggregates the registry contents and the current account
// balance into a portfolio snapshot. Pure with respect to shared state:
// callable any number of times without side effects.
func computeSnapshot(initialBalance, balance float64, positions []PositionRisk, limits RiskLimits, killSwitchActive bool) PortfolioRiskSnapshot {
	snap := PortfolioRiskSnapshot{
		Timestamp:        time.Now(),
		PositionCount:    len(positions),
		KillSwitchActive: killSwitchActive,
	}

	var largestNotional, corrSum, liqSum, decaySum float64
	for _, pos := range positions {
		snap.TotalNotional += pos.NotionalValue
		snap.TotalMaxLoss += pos.MaxLoss
		snap.CurrentPnL += pos.CurrentPnL
		snap.NetGreeks = snap.NetGreeks.add(pos.Greeks)

		if pos.NotionalValue > largestNotional {
			largestNotional = pos.NotionalValue
		}
		corrSum += pos.CorrelationScore
		liqSum += pos.LiquidityScore
		if limits.MaxTimeInPositionMin > 0 {
			decaySum += 1 - clamp01(pos.TimeRemainingMin/limits.MaxTimeInPositionMin)
		}
	}

	snap.TotalValue = balance + snap.CurrentPnL
	snap.DailyPnL = snap.TotalValue - initialBalance
	if initialBalance > 0 {
		snap.DrawdownPct = math.Max(0, (initialBalance-snap.TotalValue)/initialBalance*100)
	}

	// Composite measures. VaR is approximated from worst-case loss on a
	// fully correlated book, not simulated.
	snap.ApproxVaR = 0.95 * snap.TotalMaxLoss
	if n := float64(len(positions)); n > 0 {
		if snap.TotalNotional > 0 {
			snap.ConcentrationRisk = clamp01(largestNotional / snap.TotalNotional)
		}
		corrLoad := 1.0
		if limits.MaxCorrelatedPositions > 0 {
			corrLoad = clamp01(n / float64(limits.MaxCorrelatedPositions))
		}
		snap.CorrelationRisk = clamp01(corrSum / n * corrLoad)
		snap.LiquidityRisk = clamp01(1 - liqSum/n)
		snap.TimeDecayRisk = clamp01(decaySum / n)
	}

	snap.RiskLevel = riskLevelFor(snap.DrawdownPct, snap.DailyPnL)
	return snap
}
