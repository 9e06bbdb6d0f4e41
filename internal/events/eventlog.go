// Package events provides the control journal for the board.
// It is an append-only log of everything that changed how the board runs:
// seeding, pause/resume, cadence, sort key and the notices shown to viewers.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a journal entry.
type EventType string

const (
	EventTypeBoardSeeded     EventType = "BOARD_SEEDED"
	EventTypeTick            EventType = "TICK"
	EventTypePaused          EventType = "PAUSED"
	EventTypeResumed         EventType = "RESUMED"
	EventTypeIntervalChanged EventType = "INTERVAL_CHANGED"
	EventTypeSortKeyChanged  EventType = "SORT_KEY_CHANGED"
	EventTypeNotice          EventType = "NOTICE"
)

// BoardSeededPayload records the roster a session started with.
type BoardSeededPayload struct {
	Entities int      `json:"entities"`
	IDs      []string `json:"ids"`
	Names    []string `json:"names"`
}

// IntervalChangedPayload records a cadence change.
type IntervalChangedPayload struct {
	FromMs int `json:"from_ms"`
	ToMs   int `json:"to_ms"`
}

// SortKeyChangedPayload records a sort key change.
type SortKeyChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NoticePayload is the transient message raised for viewers.
type NoticePayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Event is an immutable journal record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Actor     string    `json:"actor"` // "api", "ws", "tui", "system"
	Payload   any       `json:"payload"`
}

// NewEvent stamps a fresh event.
func NewEvent(eventType EventType, actor string, payload any) Event {
	return Event{
		ID:        GenerateEventID(),
		Timestamp: time.Now(),
		Type:      eventType,
		Actor:     actor,
		Payload:   payload,
	}
}

// Persister defines how an event is durably stored.
type Persister interface {
	Append(event Event) error
}

// EventLog is the in-memory append-only journal with optional write-through.
// TICK events are only counted: storing one per beat would grow without bound.
type EventLog struct {
	mu        sync.RWMutex
	events    []Event
	ticks     atomic.Int64
	persister Persister
}

// NewEventLog creates a new journal. persister may be nil.
func NewEventLog(persister Persister) *EventLog {
	return &EventLog{
		events:    make([]Event, 0),
		persister: persister,
	}
}

// Append adds an event. The in-memory append always succeeds; the returned
// error comes from the persister only.
func (el *EventLog) Append(event Event) error {
	if event.Type == EventTypeTick {
		el.ticks.Add(1)
		return nil
	}
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	el.mu.Unlock()

	if el.persister != nil {
		return el.persister.Append(event)
	}
	return nil
}

// TickCount returns how many ticks have been recorded.
func (el *EventLog) TickCount() int64 {
	return el.ticks.Load()
}

// ByActor returns all events caused by a specific actor.
func (el *EventLog) ByActor(actor string) []Event {
	return el.filter(func(e Event) bool { return e.Actor == actor })
}

// ByType returns all events of one type.
func (el *EventLog) ByType(eventType EventType) []Event {
	return el.filter(func(e Event) bool { return e.Type == eventType })
}

// Recent returns the last n events, oldest first. n <= 0 returns everything.
func (el *EventLog) Recent(n int) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	start := 0
	if n > 0 && n < len(el.events) {
		start = len(el.events) - n
	}
	out := make([]Event, len(el.events)-start)
	copy(out, el.events[start:])
	return out
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []Event {
	return el.Recent(0)
}

func (el *EventLog) filter(keep func(Event) bool) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}

// Summary describes the event in one line.
func (e Event) Summary() string {
	switch p := e.Payload.(type) {
	case BoardSeededPayload:
		return fmt.Sprintf("Board seeded with %d entities", p.Entities)
	case IntervalChangedPayload:
		return fmt.Sprintf("Interval %dms -> %dms", p.FromMs, p.ToMs)
	case SortKeyChangedPayload:
		return fmt.Sprintf("Sort key %s -> %s", p.From, p.To)
	case NoticePayload:
		return p.Message
	}
	switch e.Type {
	case EventTypePaused:
		return "Updates paused"
	case EventTypeResumed:
		return "Updates resumed"
	}
	return string(e.Type)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
