package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "risk.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeConfig(t, `
initial_balance_usd: 50000
limits:
  max_daily_loss_usd: 1200
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.InitialBalanceUSD != 50000 {
		t.Errorf("initial balance = %v, want 50000", c.InitialBalanceUSD)
	}
	if c.Limits.MaxDailyLossUSD != 1200 {
		t.Errorf("max daily loss = %v, want overridden 1200", c.Limits.MaxDailyLossUSD)
	}
	// Omitted fields keep the documented reference values.
	if c.Limits.MaxPositionSize != 300 {
		t.Errorf("max position size = %v, want default 300", c.Limits.MaxPositionSize)
	}
	if !c.Triggers.ManualOverrideRequired {
		t.Error("manual override default must stay true when omitted")
	}
	if c.MonitorIntervalSeconds != 60 {
		t.Errorf("monitor interval = %v, want default 60", c.MonitorIntervalSeconds)
	}
}

func TestLoadOverridesBooleanDefault(t *testing.T) {
	path := writeConfig(t, `
triggers:
  manual_override_required: false
  max_restart_attempts: 1
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Triggers.ManualOverrideRequired {
		t.Error("explicit false must override the default")
	}
	if c.Triggers.MaxRestartAttempts != 1 {
		t.Errorf("max restart attempts = %v, want 1", c.Triggers.MaxRestartAttempts)
	}
	if c.Triggers.CooldownMinutes != 30 {
		t.Errorf("cooldown = %v, want default 30", c.Triggers.CooldownMinutes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing config file should error")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "limits: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml should error")
	}
}

func TestDefaultMatchesReferenceAccount(t *testing.T) {
	c := Default()
	if c.InitialBalanceUSD != 25000 {
		t.Errorf("initial balance = %v, want 25000", c.InitialBalanceUSD)
	}
	if c.Limits.MaxPortfolioDrawdownPct != 8.0 {
		t.Errorf("max drawdown = %v, want 8.0", c.Limits.MaxPortfolioDrawdownPct)
	}
	if c.Triggers.DrawdownPct != 12.0 {
		t.Errorf("kill drawdown = %v, want 12.0", c.Triggers.DrawdownPct)
	}
}
