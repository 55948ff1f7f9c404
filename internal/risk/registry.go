package risk

import (
	"math"
	"sync"
	"time"

	"riskgate/internal/observ"
)

// PositionRisk holds the per-position risk attributes tracked for each open
// contract. Entries are owned by the Registry; callers receive copies.
type PositionRisk struct {
	ID               string         `json:"id"`
	EntryPrice       float64        `json:"entry_price"`
	Size             int            `json:"size"`
	NotionalValue    float64        `json:"notional_value"`
	MaxLoss          float64        `json:"max_loss"`
	CurrentPnL       float64        `json:"current_pnl"`
	Greeks           GreeksSnapshot `json:"greeks"`
	CorrelationScore float64        `json:"correlation_score"` // 0-1
	LiquidityScore   float64        `json:"liquidity_score"`   // 0-1
	TimeRemainingMin float64        `json:"time_remaining_min"`
	RiskScore        float64        `json:"risk_score"` // 0-1 composite
	OpenedAt         time.Time      `json:"opened_at"`
}

// Registry owns the set of currently open positions. All mutation goes
// through Add/Update/Remove; reads copy entries out so callers never alias
// registry-owned state.
type Registry struct {
	mu        sync.RWMutex
	positions map[string]*PositionRisk
	limits    RiskLimits
}

// NewRegistry creates an empty position registry bounded by the given limits.
func NewRegistry(limits RiskLimits) *Registry {
	return &Registry{
		positions: make(map[string]*PositionRisk),
		limits:    limits,
	}
}

// Add registers a newly opened position derived from an approved candidate.
// Notional and worst-case loss are computed from the fill; correlation is
// fixed at 1.0 (single-underlying book) and liquidity is inferred from
// whether the signal carried supporting confluence zones.
func (r *Registry) Add(id string, signal CandidateSignal, actualSize int, entryGreeks GreeksSnapshot) PositionRisk {
	r.mu.Lock()
	defer r.mu.Unlock()

	mult := r.limits.ContractMultiplier
	notional := signal.EntryPrice * float64(actualSize) * mult
	maxLoss := math.Abs(signal.EntryPrice-signal.StopPrice) * float64(actualSize) * mult

	liquidity := 0.5
	if signal.ConfluenceZones > 0 {
		liquidity = 0.8
	}

	pos := &PositionRisk{
		ID:               id,
		EntryPrice:       signal.EntryPrice,
		Size:             actualSize,
		NotionalValue:    notional,
		MaxLoss:          maxLoss,
		Greeks:           entryGreeks,
		CorrelationScore: 1.0,
		LiquidityScore:   liquidity,
		TimeRemainingMin: r.limits.MaxTimeInPositionMin,
		RiskScore:        clamp01(1.0 - 0.5*signal.Confidence),
		OpenedAt:         time.Now(),
	}
	r.positions[id] = pos

	observ.IncCounter("positions_opened_total", nil)
	observ.SetGauge("open_positions", float64(len(r.positions)), nil)
	return *pos
}

// Update refreshes a position on a monitor or market-data tick: recomputes
// running P&L against the entry price, replaces the stored Greeks, floors the
// remaining time at zero, and blends the composite risk score with a
// decay/P&L-direction factor. No-op if the position is unknown.
func (r *Registry) Update(id string, price float64, greeks GreeksSnapshot, timeRemainingMin float64) (PositionRisk, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.positions[id]
	if !ok {
		return PositionRisk{}, false
	}

	pos.CurrentPnL = (price - pos.EntryPrice) * float64(pos.Size) * r.limits.ContractMultiplier
	pos.Greeks = greeks
	pos.TimeRemainingMin = math.Max(0, timeRemainingMin)

	timeFactor := 1.0
	if r.limits.MaxTimeInPositionMin > 0 {
		timeFactor = clamp01(pos.TimeRemainingMin / r.limits.MaxTimeInPositionMin)
	}
	pnlFactor := 0.8
	if pos.CurrentPnL < 0 {
		pnlFactor = 1.2
	}
	pos.RiskScore = clamp01(0.7*pos.RiskScore + 0.3*timeFactor*pnlFactor)

	return *pos, true
}

// Remove deletes a closed position. No-op if absent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.positions[id]; !ok {
		return
	}
	delete(r.positions, id)

	observ.IncCounter("positions_closed_total", nil)
	observ.SetGauge("open_positions", float64(len(r.positions)), nil)
}

// Get returns a copy of the position, if present.
func (r *Registry) Get(id string) (PositionRisk, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.positions[id]
	if !ok {
		return PositionRisk{}, false
	}
	return *pos, true
}

// List returns copies of all open positions for snapshot computation.
func (r *Registry) List() []PositionRisk {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PositionRisk, 0, len(r.positions))
	for _, pos := range r.positions {
		out = append(out, *pos)
	}
	return out
}

// Count returns the number of open positions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}

// tick advances the monitor clock by one minute for every open position and
// escalates the risk score of positions close to expiry. Returns the IDs of
// positions whose score was escalated this tick.
func (r *Registry) tick(escalationThresholdMin float64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var escalated []string
	for id, pos := range r.positions {
		pos.TimeRemainingMin = math.Max(0, pos.TimeRemainingMin-1)
		if pos.TimeRemainingMin < escalationThresholdMin {
			prev := pos.RiskScore
			pos.RiskScore = clamp01(pos.RiskScore + 0.2)
			if pos.RiskScore > prev {
				escalated = append(escalated, id)
			}
		}
	}
	return escalated
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
