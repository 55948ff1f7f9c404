package risk

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEventLogDropsOldest(t *testing.T) {
	l := NewEventLog("", 5)

	for i := 0; i < 8; i++ {
		l.Append(EventWarning, SeverityLow, "w", nil)
	}

	if l.Len() != 5 {
		t.Fatalf("len = %d, want capped at 5", l.Len())
	}
	events := l.Recent(0)
	if events[0].ID != "risk_4" {
		t.Errorf("oldest retained = %s, want risk_4 after dropping the first three", events[0].ID)
	}
	if events[len(events)-1].ID != "risk_8" {
		t.Errorf("newest = %s, want risk_8", events[len(events)-1].ID)
	}
}

func TestEventLogRecentLimit(t *testing.T) {
	l := NewEventLog("", 0)
	for i := 0; i < 20; i++ {
		l.Append(EventWarning, SeverityLow, "w", nil)
	}

	recent := l.Recent(10)
	if len(recent) != 10 {
		t.Fatalf("len = %d, want 10", len(recent))
	}
	if recent[9].ID != "risk_20" {
		t.Errorf("newest = %s, want risk_20", recent[9].ID)
	}
}

func TestEventLogPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "risk.jsonl")
	l := NewEventLog(path, 0)

	l.Append(EventKillSwitch, SeverityCritical, "kill switch triggered: daily_loss_breach", map[string]any{"daily_pnl": -800.0})
	l.Append(EventRecovery, SeverityHigh, "kill switch reset", nil)

	// Persistence is asynchronous; poll until both lines land.
	deadline := time.Now().Add(2 * time.Second)
	var loaded []RiskEvent
	for time.Now().Before(deadline) {
		var err error
		loaded, err = LoadEvents(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(loaded) == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(loaded) != 2 {
		t.Fatalf("loaded %d events, want 2", len(loaded))
	}
	if loaded[0].Type != EventKillSwitch || loaded[0].Severity != SeverityCritical {
		t.Errorf("first event = %+v", loaded[0])
	}
}

func TestLoadEventsMissingFile(t *testing.T) {
	events, err := LoadEvents(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if events != nil {
		t.Errorf("events = %v, want nil", events)
	}
}

func TestLoadEventsSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.jsonl")
	content := `{"id":"risk_1","timestamp":"2026-08-21T14:00:00Z","type":"WARNING","severity":"LOW","message":"ok"}
not json at all
{"id":"risk_2","timestamp":"2026-08-21T14:01:00Z","type":"RECOVERY","severity":"HIGH","message":"ok"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	events, err := LoadEvents(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("loaded %d events, want 2 with the bad line skipped", len(events))
	}
	if events[1].ID != "risk_2" {
		t.Errorf("second event = %s, want risk_2", events[1].ID)
	}
}
