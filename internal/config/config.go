package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"riskgate/internal/risk"
)

type Root struct {
	InitialBalanceUSD      float64                 `yaml:"initial_balance_usd"`
	EventLogPath           string                  `yaml:"event_log_path"`
	MonitorIntervalSeconds int                     `yaml:"monitor_interval_seconds"`
	MaxHistoryEntries      int                     `yaml:"max_history_entries"`
	MetricsAddr            string                  `yaml:"metrics_addr"`
	Limits                 risk.RiskLimits         `yaml:"limits"`
	Triggers               risk.KillSwitchTriggers `yaml:"triggers"`
}

// Default returns the reference configuration for a $25,000 account.
func Default() Root {
	return Root{
		InitialBalanceUSD:      25000,
		EventLogPath:           "data/risk-events.jsonl",
		MonitorIntervalSeconds: 60,
		MaxHistoryEntries:      500,
		MetricsAddr:            ":8090",
		Limits:                 risk.DefaultLimits(),
		Triggers:               risk.DefaultTriggers(),
	}
}

// Load reads a YAML config file over the reference defaults, so omitted
// fields keep their documented values (including boolean defaults like
// manual_override_required: true).
func Load(path string) (Root, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	if c.InitialBalanceUSD <= 0 {
		c.InitialBalanceUSD = 25000
	}
	if c.MonitorIntervalSeconds <= 0 {
		c.MonitorIntervalSeconds = 60
	}
	if c.MaxHistoryEntries <= 0 {
		c.MaxHistoryEntries = 500
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":8090"
	}
	return c, nil
}
