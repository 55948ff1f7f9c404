package risk

// VolatilityRegime classifies current market volatility as reported by the
// upstream volatility analytics.
type VolatilityRegime string

const (
	RegimeLow     VolatilityRegime = "LOW"
	RegimeNormal  VolatilityRegime = "NORMAL"
	RegimeHigh    VolatilityRegime = "HIGH"
	RegimeExtreme VolatilityRegime = "EXTREME"
)

// RiskLevel is the discrete portfolio risk band derived from drawdown and
// daily P&L. Bands are ordered; severity() gives the ordering.
type RiskLevel string

const (
	LevelLow       RiskLevel = "LOW"
	LevelModerate  RiskLevel = "MODERATE"
	LevelHigh      RiskLevel = "HIGH"
	LevelCritical  RiskLevel = "CRITICAL"
	LevelEmergency RiskLevel = "EMERGENCY"
)

func (l RiskLevel) severity() int {
	switch l {
	case LevelLow:
		return 0
	case LevelModerate:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	case LevelEmergency:
		return 4
	default:
		return -1
	}
}

// AtLeast reports whether the level is at or above the given band.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.severity() >= other.severity()
}

// VolatilitySnapshot is the point-in-time volatility classification supplied
// by the upstream indicator pipeline.
type VolatilitySnapshot struct {
	Regime     VolatilityRegime `json:"regime"`
	Percentile float64          `json:"percentile"` // 0-100
}

// GreeksSnapshot holds option sensitivities for a position, supplied at open
// and on each update tick.
type GreeksSnapshot struct {
	Delta           float64 `json:"delta"`
	Gamma           float64 `json:"gamma"`
	Theta           float64 `json:"theta"`
	Vega            float64 `json:"vega"`
	UnderlyingPrice float64 `json:"underlying_price"`
}

// CandidateSignal is a proposed trade produced by the upstream signal engines.
// EstimatedGreeks is optional; when nil the evaluator falls back to fixed
// per-contract coefficients (see estimateGreeks).
type CandidateSignal struct {
	EntryPrice      float64         `json:"entry_price"`
	ProposedSize    int             `json:"proposed_size"`
	StopPrice       float64         `json:"stop_price"`
	Confidence      float64         `json:"confidence"` // 0-1
	ConfluenceZones int             `json:"confluence_zones"`
	EstimatedGreeks *GreeksSnapshot `json:"estimated_greeks,omitempty"`
}

// RiskLimits bounds portfolio, position, Greeks, and market-condition
// exposure. Immutable after engine construction.
type RiskLimits struct {
	MaxPortfolioDrawdownPct     float64          `yaml:"max_portfolio_drawdown_pct" json:"max_portfolio_drawdown_pct"`
	MaxDailyLossUSD             float64          `yaml:"max_daily_loss_usd" json:"max_daily_loss_usd"`
	MaxPositionConcentrationPct float64          `yaml:"max_position_concentration_pct" json:"max_position_concentration_pct"`
	MaxCorrelatedPositions      int              `yaml:"max_correlated_positions" json:"max_correlated_positions"`
	MaxTotalNotionalUSD         float64          `yaml:"max_total_notional_usd" json:"max_total_notional_usd"`
	MaxPositionSize             int              `yaml:"max_position_size" json:"max_position_size"`
	MaxLeverage                 float64          `yaml:"max_leverage" json:"max_leverage"`
	MaxTimeInPositionMin        float64          `yaml:"max_time_in_position_min" json:"max_time_in_position_min"`
	MaxNetDelta                 float64          `yaml:"max_net_delta" json:"max_net_delta"`
	MaxNetGamma                 float64          `yaml:"max_net_gamma" json:"max_net_gamma"`
	MaxNetThetaUSD              float64          `yaml:"max_net_theta_usd" json:"max_net_theta_usd"` // magnitude of allowed daily decay
	MaxNetVega                  float64          `yaml:"max_net_vega" json:"max_net_vega"`
	MaxVolatilityRegime         VolatilityRegime `yaml:"max_volatility_regime" json:"max_volatility_regime"`
	MaxATRPercentile            float64          `yaml:"max_atr_percentile" json:"max_atr_percentile"`
	MaxVIXLevel                 float64          `yaml:"max_vix_level" json:"max_vix_level"`
	MinLiquidityScore           float64          `yaml:"min_liquidity_score" json:"min_liquidity_score"`
	BlockOnNews                 bool             `yaml:"block_on_news" json:"block_on_news"`
	ContractMultiplier          float64          `yaml:"contract_multiplier" json:"contract_multiplier"`
}

// KillSwitchTriggers holds the hard shutdown thresholds, the soft warning
// thresholds, and the recovery policy. Immutable after engine construction.
type KillSwitchTriggers struct {
	DrawdownPct            float64 `yaml:"drawdown_pct" json:"drawdown_pct"`
	DailyLossUSD           float64 `yaml:"daily_loss_usd" json:"daily_loss_usd"`
	VolatilitySpikePctile  float64 `yaml:"volatility_spike_pctile" json:"volatility_spike_pctile"`
	SystemErrorCount       int     `yaml:"system_error_count" json:"system_error_count"`
	WarnDrawdownPct        float64 `yaml:"warn_drawdown_pct" json:"warn_drawdown_pct"`
	WarnDailyLossUSD       float64 `yaml:"warn_daily_loss_usd" json:"warn_daily_loss_usd"`
	CooldownMinutes        int     `yaml:"cooldown_minutes" json:"cooldown_minutes"`
	ManualOverrideRequired bool    `yaml:"manual_override_required" json:"manual_override_required"`
	MaxRestartAttempts     int     `yaml:"max_restart_attempts" json:"max_restart_attempts"`
}

// DefaultLimits returns the documented reference limits for a $25,000
// account trading same-day-expiring contracts.
func DefaultLimits() RiskLimits {
	return RiskLimits{
		MaxPortfolioDrawdownPct:     8.0,
		MaxDailyLossUSD:             500,
		MaxPositionConcentrationPct: 20.0,
		MaxCorrelatedPositions:      3,
		MaxTotalNotionalUSD:         50000,
		MaxPositionSize:             300,
		MaxLeverage:                 4.0,
		MaxTimeInPositionMin:        240,
		MaxNetDelta:                 75,
		MaxNetGamma:                 30,
		MaxNetThetaUSD:              150,
		MaxNetVega:                  75,
		MaxVolatilityRegime:         RegimeHigh,
		MaxATRPercentile:            90,
		MaxVIXLevel:                 30,
		MinLiquidityScore:           0.3,
		BlockOnNews:                 true,
		ContractMultiplier:          100,
	}
}

// DefaultTriggers returns the documented reference kill-switch thresholds
// paired with DefaultLimits.
func DefaultTriggers() KillSwitchTriggers {
	return KillSwitchTriggers{
		DrawdownPct:            12.0,
		DailyLossUSD:           750,
		VolatilitySpikePctile:  95,
		SystemErrorCount:       5,
		WarnDrawdownPct:        5.0,
		WarnDailyLossUSD:       300,
		CooldownMinutes:        30,
		ManualOverrideRequired: true,
		MaxRestartAttempts:     3,
	}
}

// Per-contract Greeks coefficients used when a candidate carries no estimate.
// Chosen so the default Greeks bounds are reached exactly at the default
// 300-contract position cap (delta saturates at 150 contracts).
const (
	approxDeltaPerContract = 0.5
	approxGammaPerContract = 0.1
	approxThetaPerContract = -0.5
	approxVegaPerContract  = 0.25
)

// estimateGreeks derives a coarse Greeks projection for a candidate from its
// size alone. Real estimated Greeks on the candidate take precedence.
func estimateGreeks(c CandidateSignal) GreeksSnapshot {
	if c.EstimatedGreeks != nil {
		return *c.EstimatedGreeks
	}
	n := float64(c.ProposedSize)
	return GreeksSnapshot{
		Delta: n * approxDeltaPerContract,
		Gamma: n * approxGammaPerContract,
		Theta: n * approxThetaPerContract,
		Vega:  n * approxVegaPerContract,
	}
}
