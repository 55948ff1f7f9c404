package risk

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"riskgate/internal/observ"
)

// KillSwitchState is the two-state emergency shutdown flag.
type KillSwitchState string

const (
	StateActive    KillSwitchState = "ACTIVE"    // trading permitted
	StateTriggered KillSwitchState = "TRIGGERED" // all new trading blocked
)

// KillSwitchStatus is a point-in-time view of the switch for status queries.
type KillSwitchStatus struct {
	State             KillSwitchState `json:"state"`
	Reason            string          `json:"reason,omitempty"`
	TriggeredAt       time.Time       `json:"triggered_at,omitempty"`
	ResetAttempts     int             `json:"reset_attempts"`
	CooldownRemaining time.Duration   `json:"cooldown_remaining"`
}

// KillSwitch is the emergency shutdown state machine. Once triggered it
// stays triggered until an explicit reset that satisfies the cooldown, the
// manual-override requirement, and the bounded restart budget. Resets are
// additionally rate limited so a misbehaving caller cannot spin the switch.
type KillSwitch struct {
	mu            sync.Mutex
	state         KillSwitchState
	triggers      KillSwitchTriggers
	reason        string
	triggeredAt   time.Time
	resetAttempts int
	resetLimiter  *rate.Limiter
	log           *EventLog
}

// NewKillSwitch creates an armed (ACTIVE) kill switch bound to the given
// trigger thresholds. Events are recorded to log on every transition.
func NewKillSwitch(triggers KillSwitchTriggers, log *EventLog) *KillSwitch {
	ks := &KillSwitch{
		state:        StateActive,
		triggers:     triggers,
		resetLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
		log:          log,
	}
	observ.SetGauge("kill_switch_triggered", 0, nil)
	return ks
}

// Triggered reports whether the switch has fired.
func (ks *KillSwitch) Triggered() bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.state == StateTriggered
}

// Trip fires the kill switch. Idempotent: returns false if already
// triggered, in which case the original reason and timestamp are kept.
func (ks *KillSwitch) Trip(reason string, data map[string]any) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.state == StateTriggered {
		return false
	}

	ks.state = StateTriggered
	ks.reason = reason
	ks.triggeredAt = time.Now()

	ks.log.Append(EventKillSwitch, SeverityCritical, "kill switch triggered: "+reason, data)
	observ.SetGauge("kill_switch_triggered", 1, nil)
	observ.IncCounter("kill_switch_trips_total", map[string]string{"reason": reason})
	observ.Log("kill_switch_triggered", map[string]any{
		"reason":         reason,
		"cooldown_until": ks.triggeredAt.Add(ks.cooldown()).UTC().Format(time.RFC3339),
	})
	return true
}

// Reset re-arms the switch. It fails unless manual override is supplied when
// required, the cooldown window has fully elapsed, the automatic restart
// budget is not exhausted (manual override bypasses the budget), and the
// reset rate limit allows another attempt.
func (ks *KillSwitch) Reset(manualOverride bool) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.state != StateTriggered {
		return fmt.Errorf("kill switch reset rejected: not triggered")
	}

	if ks.triggers.ManualOverrideRequired && !manualOverride {
		return fmt.Errorf("kill switch reset rejected: manual override required")
	}

	if remaining := ks.cooldownRemaining(time.Now()); remaining > 0 {
		return fmt.Errorf("kill switch reset rejected: cooldown active for %s", remaining.Round(time.Second))
	}

	// The restart budget bounds automatic resets; a manual override bypasses it.
	if !manualOverride && ks.resetAttempts >= ks.triggers.MaxRestartAttempts {
		return fmt.Errorf("kill switch reset rejected: max restart attempts (%d) exhausted", ks.triggers.MaxRestartAttempts)
	}

	if !ks.resetLimiter.Allow() {
		return fmt.Errorf("kill switch reset rejected: rate limited")
	}

	ks.resetAttempts++
	ks.state = StateActive
	prevReason := ks.reason
	ks.reason = ""
	ks.triggeredAt = time.Time{}

	ks.log.Append(EventRecovery, SeverityHigh, "kill switch reset", map[string]any{
		"previous_reason": prevReason,
		"reset_attempts":  ks.resetAttempts,
		"manual_override": manualOverride,
	})
	observ.SetGauge("kill_switch_triggered", 0, nil)
	observ.IncCounter("kill_switch_resets_total", nil)
	observ.Log("kill_switch_reset", map[string]any{
		"previous_reason": prevReason,
		"reset_attempts":  ks.resetAttempts,
	})
	return nil
}

// Status returns a snapshot of the switch state.
func (ks *KillSwitch) Status() KillSwitchStatus {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	st := KillSwitchStatus{
		State:         ks.state,
		Reason:        ks.reason,
		TriggeredAt:   ks.triggeredAt,
		ResetAttempts: ks.resetAttempts,
	}
	if ks.state == StateTriggered {
		st.CooldownRemaining = ks.cooldownRemaining(time.Now())
	}
	return st
}

func (ks *KillSwitch) cooldown() time.Duration {
	return time.Duration(ks.triggers.CooldownMinutes) * time.Minute
}

// cooldownRemaining assumes the caller holds ks.mu.
func (ks *KillSwitch) cooldownRemaining(now time.Time) time.Duration {
	elapsed := now.Sub(ks.triggeredAt)
	if remaining := ks.cooldown() - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}
