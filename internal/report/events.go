package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventList   EventType = "list"
	EventDiff   EventType = "diff"
	EventFetch  EventType = "fetch"
	EventUpsert EventType = "upsert"
	EventStats  EventType = "stats"
	EventRetry  EventType = "retry"
	EventSkip   EventType = "skip"
	EventError  EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single step in the sync pipeline
type Event struct {
	Timestamp time.Time  `json:"ts"`
	Level     EventLevel `json:"level"`
	Event     EventType  `json:"event"`
	Series    string     `json:"series,omitempty"`
	Chapter   string     `json:"chapter,omitempty"`
	Panels    int        `json:"panels,omitempty"`
	Expected  int        `json:"expected,omitempty"`
	Status    string     `json:"status,omitempty"`
	Round     int        `json:"round,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Duration  int64      `json:"duration_ms,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level.
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug).
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// NullLogger returns a logger that drops every event. The nil checks
// in Log, Path and Close make this safe.
func NullLogger() *EventLogger {
	return nil
}

// Path returns the path of the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Log writes an event to the log. Events below the minimum level are
// dropped. A nil logger drops everything, so callers don't have to
// guard every call site.
func (l *EventLogger) Log(event Event) {
	if l == nil {
		return
	}
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.encoder.Encode(event)
}

// Close flushes and closes the event log
func (l *EventLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
