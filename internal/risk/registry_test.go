package risk

import (
	"math"
	"testing"
)

func TestRegistryAddComputesNotionalAndMaxLoss(t *testing.T) {
	r := NewRegistry(DefaultLimits())

	signal := CandidateSignal{
		EntryPrice:      2.50,
		ProposedSize:    10,
		StopPrice:       1.50,
		Confidence:      0.8,
		ConfluenceZones: 2,
	}
	pos := r.Add("pos-1", signal, 10, estimateGreeks(signal))

	if got, want := pos.NotionalValue, 2.50*10*100; got != want {
		t.Errorf("notional = %v, want %v", got, want)
	}
	if got, want := pos.MaxLoss, 1.00*10*100; got != want {
		t.Errorf("max loss = %v, want %v", got, want)
	}
	if pos.CorrelationScore != 1.0 {
		t.Errorf("correlation score = %v, want 1.0", pos.CorrelationScore)
	}
	if pos.LiquidityScore != 0.8 {
		t.Errorf("liquidity score = %v, want 0.8 with confluence support", pos.LiquidityScore)
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

func TestRegistryLiquidityWithoutConfluence(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	pos := r.Add("pos-1", CandidateSignal{EntryPrice: 1, ProposedSize: 1, StopPrice: 0.5}, 1, GreeksSnapshot{})
	if pos.LiquidityScore != 0.5 {
		t.Errorf("liquidity score = %v, want 0.5 without confluence support", pos.LiquidityScore)
	}
}

func TestRegistryUpdateRecomputesPnL(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	signal := CandidateSignal{EntryPrice: 2.00, ProposedSize: 5, StopPrice: 1.00, Confidence: 0.5}
	r.Add("pos-1", signal, 5, GreeksSnapshot{})

	pos, ok := r.Update("pos-1", 2.40, GreeksSnapshot{Delta: 3}, 120)
	if !ok {
		t.Fatal("expected position to exist")
	}
	if got, want := pos.CurrentPnL, 0.40*5*100; math.Abs(got-want) > 1e-9 {
		t.Errorf("pnl = %v, want %v", got, want)
	}
	if pos.Greeks.Delta != 3 {
		t.Errorf("greeks not replaced: delta = %v", pos.Greeks.Delta)
	}
}

func TestRegistryUpdateFloorsTimeRemaining(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	r.Add("pos-1", CandidateSignal{EntryPrice: 1, ProposedSize: 1, StopPrice: 0.5}, 1, GreeksSnapshot{})

	pos, _ := r.Update("pos-1", 1, GreeksSnapshot{}, -10)
	if pos.TimeRemainingMin != 0 {
		t.Errorf("time remaining = %v, want floored to 0", pos.TimeRemainingMin)
	}
}

func TestRegistryUpdateRiskScoreRisesWhenLosing(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	signal := CandidateSignal{EntryPrice: 2.00, ProposedSize: 5, StopPrice: 1.00, Confidence: 1.0}
	start := r.Add("pos-1", signal, 5, GreeksSnapshot{})

	losing, _ := r.Update("pos-1", 1.50, GreeksSnapshot{}, 240)
	if losing.RiskScore <= start.RiskScore {
		t.Errorf("risk score should rise on a losing update: %v -> %v", start.RiskScore, losing.RiskScore)
	}
	if losing.RiskScore < 0 || losing.RiskScore > 1 {
		t.Errorf("risk score out of range: %v", losing.RiskScore)
	}
}

func TestRegistryUpdateUnknownPosition(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	if _, ok := r.Update("ghost", 1, GreeksSnapshot{}, 60); ok {
		t.Error("update of unknown position should report not found")
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	r.Add("pos-1", CandidateSignal{EntryPrice: 1, ProposedSize: 1, StopPrice: 0.5}, 1, GreeksSnapshot{})

	r.Remove("pos-1")
	r.Remove("pos-1") // second remove must be a no-op
	if r.Count() != 0 {
		t.Errorf("count = %d, want 0", r.Count())
	}
}

func TestRegistryTickDecrementsAndEscalates(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	r.Add("near-expiry", CandidateSignal{EntryPrice: 1, ProposedSize: 1, StopPrice: 0.5, Confidence: 1.0}, 1, GreeksSnapshot{})
	r.Update("near-expiry", 1, GreeksSnapshot{}, 10)

	escalated := r.tick(30)
	if len(escalated) != 1 || escalated[0] != "near-expiry" {
		t.Errorf("escalated = %v, want [near-expiry]", escalated)
	}
	pos, _ := r.Get("near-expiry")
	if pos.TimeRemainingMin != 9 {
		t.Errorf("time remaining = %v, want 9 after one tick", pos.TimeRemainingMin)
	}
}

func TestRegistryTickNoEscalationWithTimeLeft(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	r.Add("fresh", CandidateSignal{EntryPrice: 1, ProposedSize: 1, StopPrice: 0.5}, 1, GreeksSnapshot{})

	if escalated := r.tick(30); len(escalated) != 0 {
		t.Errorf("escalated = %v, want none for a fresh position", escalated)
	}
}

func TestRegistryListReturnsCopies(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	r.Add("pos-1", CandidateSignal{EntryPrice: 1, ProposedSize: 1, StopPrice: 0.5}, 1, GreeksSnapshot{})

	list := r.List()
	list[0].CurrentPnL = -99999

	pos, _ := r.Get("pos-1")
	if pos.CurrentPnL == -99999 {
		t.Error("List must return copies, not aliases into the registry")
	}
}
