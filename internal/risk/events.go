package risk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"riskgate/internal/observ"
)

// Risk event types.
const (
	EventWarning     = "WARNING"
	EventLimitBreach = "LIMIT_BREACH"
	EventKillSwitch  = "KILL_SWITCH"
	EventRecovery    = "RECOVERY"
)

// Risk event severities.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// maxEventLogEntries bounds the in-memory event log; the oldest entry is
// dropped when the cap is reached.
const maxEventLogEntries = 1000

// RiskEvent records a warning, breach, kill-switch transition, or recovery.
type RiskEvent struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventLog is a bounded, append-only record of risk events. The in-memory
// ring is authoritative; when a path is configured each event is also
// appended asynchronously to a JSONL file for post-session analysis.
type EventLog struct {
	mu          sync.RWMutex
	events      []RiskEvent
	lastEventID int64
	path        string
	maxEntries  int
}

// NewEventLog creates an event log. path may be empty to disable file
// persistence. maxEntries <= 0 falls back to the default cap.
func NewEventLog(path string, maxEntries int) *EventLog {
	if maxEntries <= 0 {
		maxEntries = maxEventLogEntries
	}
	return &EventLog{
		events:     make([]RiskEvent, 0, 64),
		path:       path,
		maxEntries: maxEntries,
	}
}

// Append records an event, dropping the oldest entry if the cap is reached,
// and kicks off async file persistence when configured.
func (l *EventLog) Append(eventType, severity, message string, data map[string]any) RiskEvent {
	l.mu.Lock()
	l.lastEventID++
	event := RiskEvent{
		ID:        fmt.Sprintf("risk_%d", l.lastEventID),
		Timestamp: time.Now(),
		Type:      eventType,
		Severity:  severity,
		Message:   message,
		Data:      data,
	}
	l.events = append(l.events, event)
	if len(l.events) > l.maxEntries {
		l.events = l.events[len(l.events)-l.maxEntries:]
	}
	path := l.path
	l.mu.Unlock()

	if path != "" {
		go func() {
			if err := persistEvent(path, event); err != nil {
				observ.IncCounter("risk_event_persist_errors_total", map[string]string{
					"event_type": eventType,
				})
			}
		}()
	}

	observ.IncCounter("risk_events_total", map[string]string{
		"event_type": eventType,
		"severity":   severity,
	})
	return event
}

// Recent returns up to max events, newest last. max <= 0 returns all.
func (l *EventLog) Recent(max int) []RiskEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.events)
	if max > 0 && max < n {
		n = max
	}
	out := make([]RiskEvent, n)
	copy(out, l.events[len(l.events)-n:])
	return out
}

// Len returns the number of events currently retained.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// persistEvent appends one event to the append-only JSONL log.
func persistEvent(path string, event RiskEvent) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create event log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer file.Close()

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(file, "%s\n", eventJSON); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// LoadEvents reads a previously written JSONL event log, skipping malformed
// lines. A missing file is not an error.
func LoadEvents(path string) ([]RiskEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer file.Close()

	var events []RiskEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event RiskEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			observ.IncCounter("risk_event_parse_errors_total", nil)
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading event log: %w", err)
	}
	return events, nil
}
