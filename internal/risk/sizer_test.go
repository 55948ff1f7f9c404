package risk

import "testing"

func TestAdjustSizePenalties(t *testing.T) {
	base := CandidateSignal{ProposedSize: 100, Confidence: 1.0}

	tests := []struct {
		name  string
		level RiskLevel
		vol   VolatilityRegime
		conf  float64
		want  int
	}{
		{"calm conditions full size", LevelLow, RegimeNormal, 1.0, 100},
		{"moderate level no penalty", LevelModerate, RegimeLow, 1.0, 100},
		{"high risk level", LevelHigh, RegimeNormal, 1.0, 70},
		{"critical risk level", LevelCritical, RegimeNormal, 1.0, 50},
		{"emergency risk level", LevelEmergency, RegimeNormal, 1.0, 30},
		{"high volatility", LevelLow, RegimeHigh, 1.0, 80},
		{"extreme volatility", LevelLow, RegimeExtreme, 1.0, 50},
		{"confidence scaling", LevelLow, RegimeNormal, 0.65, 65},
		{"stacked penalties floor", LevelHigh, RegimeHigh, 0.5, 28}, // 100*0.7*0.8*0.5
		{"zero confidence", LevelLow, RegimeNormal, 0.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			c.Confidence = tt.conf
			got := adjustSize(c, tt.level, VolatilitySnapshot{Regime: tt.vol})
			if got != tt.want {
				t.Errorf("adjustSize = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAdjustSizeIdempotent(t *testing.T) {
	c := CandidateSignal{ProposedSize: 37, Confidence: 0.73}
	vol := VolatilitySnapshot{Regime: RegimeHigh, Percentile: 80}

	first := adjustSize(c, LevelHigh, vol)
	for i := 0; i < 10; i++ {
		if got := adjustSize(c, LevelHigh, vol); got != first {
			t.Fatalf("sizing not idempotent: run %d got %d, first %d", i, got, first)
		}
	}
}

func TestAdjustedSizeMinimumOne(t *testing.T) {
	c := CandidateSignal{ProposedSize: 1, Confidence: 0.1}
	if got := AdjustedSize(c, LevelEmergency, VolatilitySnapshot{Regime: RegimeExtreme}); got != 1 {
		t.Errorf("AdjustedSize = %d, want minimum of 1", got)
	}
}
