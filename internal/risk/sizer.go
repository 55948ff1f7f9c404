package risk

import "math"

// riskLevelPenalty scales proposed size down as the portfolio risk band
// worsens.
func riskLevelPenalty(level RiskLevel) float64 {
	switch level {
	case LevelHigh:
		return 0.7
	case LevelCritical:
		return 0.5
	case LevelEmergency:
		return 0.3
	default:
		return 1.0
	}
}

// volatilityPenalty scales proposed size down in elevated volatility regimes.
func volatilityPenalty(regime VolatilityRegime) float64 {
	switch regime {
	case RegimeHigh:
		return 0.8
	case RegimeExtreme:
		return 0.5
	default:
		return 1.0
	}
}

// adjustSize derives the risk-scaled contract count for an approved
// candidate: proposed size discounted by the risk-level penalty, the
// volatility penalty, and the candidate's own confidence, then floored.
// Can return 0; the evaluator rejects sizes below one contract.
func adjustSize(c CandidateSignal, level RiskLevel, vol VolatilitySnapshot) int {
	scaled := float64(c.ProposedSize) *
		riskLevelPenalty(level) *
		volatilityPenalty(vol.Regime) *
		c.Confidence
	return int(math.Floor(scaled))
}

// AdjustedSize is the standalone sizing entry point: same computation as the
// evaluator performs on approval, bounded to a minimum of one contract.
func AdjustedSize(c CandidateSignal, level RiskLevel, vol VolatilitySnapshot) int {
	if n := adjustSize(c, level, vol); n > 1 {
		return n
	}
	return 1
}
