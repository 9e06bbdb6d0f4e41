// Package storage provides the persistence layer for the control journal.
// This package implements the repository pattern to keep the engine pure.
// Scores are never written here: only the controls and notices of each session.
package storage

import (
	"context"
	"time"
)

// JournalEvent mirrors the journal event structure for persistence.
type JournalEvent struct {
	ID        string                 `json:"id" db:"id"`
	SessionID string                 `json:"session_id" db:"session_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	Actor     string                 `json:"actor" db:"actor"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
}

// JournalRepository defines the interface for journal persistence.
type JournalRepository interface {
	// Append adds a new entry to the immutable journal.
	Append(ctx context.Context, event JournalEvent) error

	// BySession retrieves every entry of one server run, oldest first.
	BySession(ctx context.Context, sessionID string) ([]JournalEvent, error)

	// ByType retrieves the latest entries of one type, oldest first.
	ByType(ctx context.Context, eventType string, limit int) ([]JournalEvent, error)

	// Recent retrieves the latest entries across sessions, oldest first.
	Recent(ctx context.Context, limit int) ([]JournalEvent, error)
}
