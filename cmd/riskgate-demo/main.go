package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"riskgate/internal/config"
	"riskgate/internal/observ"
	"riskgate/internal/risk"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config (defaults: $25k reference account)")
	statePath := flag.String("state", "data/engine_state.json", "engine state file for restart recovery")
	flag.Parse()

	fmt.Println("🛡️  Risk Gate Demo")
	fmt.Println("==================")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
		fmt.Printf("📄 Loaded config from %s\n", *configPath)
	}

	engine := risk.NewEngine(risk.EngineConfig{
		Limits:            cfg.Limits,
		Triggers:          cfg.Triggers,
		InitialBalance:    cfg.InitialBalanceUSD,
		EventLogPath:      cfg.EventLogPath,
		MaxHistoryEntries: cfg.MaxHistoryEntries,
	})
	if err := engine.LoadState(*statePath); err != nil {
		observ.LogError("state_load_failed", err, nil)
	}

	// Metrics and health endpoints.
	mux := http.NewServeMux()
	mux.Handle("/metrics", observ.Handler())
	mux.Handle("/health", observ.HealthHandler())
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			observ.LogError("metrics_server_failed", err, map[string]any{"addr": cfg.MetricsAddr})
		}
	}()
	fmt.Printf("📊 Metrics on %s/metrics, health on %s/health\n\n", cfg.MetricsAddr, cfg.MetricsAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		runScenario(engine, cfg.InitialBalanceUSD)
		close(done)
	}()

	select {
	case <-sigChan:
		fmt.Println("\n🛑 Interrupted")
	case <-done:
	}

	if err := engine.SaveState(*statePath); err != nil {
		observ.LogError("state_save_failed", err, nil)
	}
	printStatus(engine)
	fmt.Println("✅ Demo complete")
}

// runScenario drives the engine through a morning of trading: admissions,
// a losing streak into a kill-switch trip, a rejected early reset, and a
// recovery after the cooldown would have elapsed.
func runScenario(engine *risk.Engine, balance float64) {
	vix := 17.5
	calm := risk.VolatilitySnapshot{Regime: risk.RegimeNormal, Percentile: 55}

	candidates := []risk.CandidateSignal{
		{EntryPrice: 2.10, ProposedSize: 12, StopPrice: 1.60, Confidence: 0.85, ConfluenceZones: 2},
		{EntryPrice: 1.45, ProposedSize: 20, StopPrice: 1.10, Confidence: 0.70, ConfluenceZones: 1},
		{EntryPrice: 3.20, ProposedSize: 8, StopPrice: 2.50, Confidence: 0.90, ConfluenceZones: 3},
		{EntryPrice: 0.95, ProposedSize: 15, StopPrice: 0.70, Confidence: 0.60},
	}

	fmt.Println("💼 Admitting candidates...")
	for i, c := range candidates {
		id := fmt.Sprintf("pos-%d", i+1)
		result, pos := engine.OpenPosition(id, c, balance, calm, &vix)
		printAdmission(id, result, pos)
		time.Sleep(200 * time.Millisecond)
	}

	fmt.Println("\n📉 Simulating a losing streak...")
	losses := []float64{24850, 24600, 24420, 24180}
	for _, bal := range losses {
		res := engine.MonitorRisk(bal)
		printTick(bal, res)
		if res.KillSwitchTriggered {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	fmt.Println("\n🔄 Attempting early reset (inside cooldown)...")
	if err := engine.ResetKillSwitch(true); err != nil {
		fmt.Printf("   ❌ %v\n", err)
	}

	fmt.Println("\n🔍 Evaluations while halted are rejected:")
	res := engine.EvaluateNewPosition(candidates[0], 24180, calm, &vix)
	fmt.Printf("   approved=%v reason=%s\n", res.Approved, res.Reason)
}

func printAdmission(id string, result risk.EvaluationResult, pos *risk.PositionRisk) {
	if result.Approved {
		fmt.Printf("   ✅ %s approved at %d contracts (notional $%.0f)\n", id, result.AdjustedSize, pos.NotionalValue)
	} else {
		fmt.Printf("   ❌ %s rejected: %s\n", id, result.Reason)
	}
	if len(result.Warnings) > 0 {
		fmt.Printf("      ⚠️  warnings: %v\n", result.Warnings)
	}
}

func printTick(balance float64, res risk.MonitorResult) {
	fmt.Printf("   balance $%.0f | pnl $%.0f | drawdown %.2f%% | level %s",
		balance, res.RiskStatus.DailyPnL, res.RiskStatus.DrawdownPct, res.RiskStatus.RiskLevel)
	if res.KillSwitchTriggered {
		fmt.Print(" | 🚨 KILL SWITCH")
	}
	fmt.Println()
	for _, action := range res.Actions {
		fmt.Printf("      ↳ %s\n", action)
	}
}

func printStatus(engine *risk.Engine) {
	st := engine.Status()
	fmt.Println("\n📈 Final Status:")
	fmt.Println("   =============")
	fmt.Printf("   💰 Portfolio value: $%.2f (drawdown %.2f%%)\n", st.PortfolioRisk.TotalValue, st.PortfolioRisk.DrawdownPct)
	fmt.Printf("   📊 Risk level: %s | positions: %d | VaR ≈ $%.0f\n", st.PortfolioRisk.RiskLevel, st.PositionCount, st.PortfolioRisk.ApproxVaR)
	fmt.Printf("   ⚡ Kill switch: %s", st.KillSwitch.State)
	if st.KillSwitchActive {
		fmt.Printf(" (reason: %s, cooldown %s remaining)", st.KillSwitch.Reason, st.KillSwitch.CooldownRemaining.Round(time.Second))
	}
	fmt.Println()
	fmt.Printf("   📜 Recent events:\n")
	for _, ev := range st.RecentEvents {
		fmt.Printf("      [%s/%s] %s\n", ev.Type, ev.Severity, ev.Message)
	}
}
