// Package storage - reconstructor.go
// Rebuilds the last known controls from the journal: state = f(events).
package storage

import (
	"context"
	"fmt"
	"time"
)

// Reconstructor replays control entries. Used for:
// 1. Restoring pause/cadence/sort on restart (never scores)
// 2. The journal recap served to operators
type Reconstructor struct {
	repo JournalRepository
}

// NewReconstructor creates a new reconstructor.
func NewReconstructor(repo JournalRepository) *Reconstructor {
	return &Reconstructor{repo: repo}
}

// RestoredControls holds the controls found in the journal. Zero values mean
// the journal never recorded that control.
type RestoredControls struct {
	Running    *bool
	IntervalMs int
	SortKey    string
	Entries    int
}

// RecapEntry is a human-readable journal line.
type RecapEntry struct {
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id"`
	EventType string `json:"event_type"`
	Actor     string `json:"actor"`
	Summary   string `json:"summary"`
}

// RestoreControls folds every control entry, oldest first.
func (r *Reconstructor) RestoreControls(ctx context.Context) (*RestoredControls, error) {
	entries, err := r.repo.Recent(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	state := &RestoredControls{}
	for _, e := range entries {
		if r.apply(state, e) {
			state.Entries++
		}
	}
	return state, nil
}

// Recap returns the latest limit entries as readable lines, optionally only
// those of eventType.
func (r *Reconstructor) Recap(ctx context.Context, eventType string, limit int) ([]RecapEntry, error) {
	var entries []JournalEvent
	var err error
	if eventType != "" {
		entries, err = r.repo.ByType(ctx, eventType, limit)
	} else {
		entries, err = r.repo.Recent(ctx, limit)
	}
	if err != nil {
		return nil, err
	}

	recap := make([]RecapEntry, 0, len(entries))
	for _, e := range entries {
		recap = append(recap, RecapEntry{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			SessionID: e.SessionID,
			EventType: e.EventType,
			Actor:     e.Actor,
			Summary:   summarize(e),
		})
	}
	return recap, nil
}

func (r *Reconstructor) apply(state *RestoredControls, e JournalEvent) bool {
	switch e.EventType {
	case "PAUSED":
		running := false
		state.Running = &running
	case "RESUMED":
		running := true
		state.Running = &running
	case "INTERVAL_CHANGED":
		to, ok := e.Payload["to_ms"].(float64)
		if !ok {
			return false
		}
		state.IntervalMs = int(to)
	case "SORT_KEY_CHANGED":
		to, ok := e.Payload["to"].(string)
		if !ok {
			return false
		}
		state.SortKey = to
	default:
		return false
	}
	return true
}

func summarize(e JournalEvent) string {
	switch e.EventType {
	case "BOARD_SEEDED":
		return fmt.Sprintf("Board seeded with %v entities", e.Payload["entities"])
	case "PAUSED":
		return "Updates paused"
	case "RESUMED":
		return "Updates resumed"
	case "INTERVAL_CHANGED":
		return fmt.Sprintf("Interval %vms -> %vms", e.Payload["from_ms"], e.Payload["to_ms"])
	case "SORT_KEY_CHANGED":
		return fmt.Sprintf("Sort key %v -> %v", e.Payload["from"], e.Payload["to"])
	case "NOTICE":
		return fmt.Sprintf("%v", e.Payload["message"])
	}
	return e.EventType
}
