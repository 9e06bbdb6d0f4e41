package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/LiveSortTable/server/internal/events"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/metrics"
)

const journalColumns = `id, session_id, timestamp, event_type, actor, payload`

// SQLiteJournalRepository implements JournalRepository for SQLite.
type SQLiteJournalRepository struct {
	db *sql.DB
}

func NewSQLiteJournalRepository(db *sql.DB) *SQLiteJournalRepository {
	return &SQLiteJournalRepository{db: db}
}

func (r *SQLiteJournalRepository) Append(ctx context.Context, event JournalEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO control_events (id, session_id, timestamp, event_type, actor, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.SessionID, event.Timestamp.UnixMilli(), event.EventType, event.Actor, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append journal event: %w", err)
	}
	return nil
}

func (r *SQLiteJournalRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]JournalEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEvent
	for rows.Next() {
		var e JournalEvent
		var tsMillis int64
		var payloadStr string
		if err := rows.Scan(&e.ID, &e.SessionID, &tsMillis, &e.EventType, &e.Actor, &payloadStr); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(tsMillis)
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteJournalRepository) BySession(ctx context.Context, sessionID string) ([]JournalEvent, error) {
	query := `SELECT ` + journalColumns + ` FROM control_events WHERE session_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID)
}

func (r *SQLiteJournalRepository) ByType(ctx context.Context, eventType string, limit int) ([]JournalEvent, error) {
	query := `SELECT ` + journalColumns + ` FROM (
		SELECT * FROM control_events WHERE event_type = ? ORDER BY seq DESC LIMIT ?
	) ORDER BY seq ASC`
	return r.getMany(ctx, query, eventType, limitOrAll(limit))
}

func (r *SQLiteJournalRepository) Recent(ctx context.Context, limit int) ([]JournalEvent, error) {
	query := `SELECT ` + journalColumns + ` FROM (
		SELECT * FROM control_events ORDER BY seq DESC LIMIT ?
	) ORDER BY seq ASC`
	return r.getMany(ctx, query, limitOrAll(limit))
}

// limitOrAll maps "no limit" onto SQLite's LIMIT -1.
func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// ---------------------------------------------------------
// JournalPersister
// ---------------------------------------------------------

// JournalPersister adapts the in-memory journal to the repository.
// It satisfies events.Persister.
type JournalPersister struct {
	repo      JournalRepository
	sessionID string
	metrics   *metrics.Collector
	timeout   time.Duration
}

// NewJournalPersister writes every journal entry of sessionID through to repo.
func NewJournalPersister(repo JournalRepository, sessionID string, m *metrics.Collector) *JournalPersister {
	return &JournalPersister{
		repo:      repo,
		sessionID: sessionID,
		metrics:   m,
		timeout:   2 * time.Second,
	}
}

// Append translates a journal event to its storage form and writes it.
func (p *JournalPersister) Append(event events.Event) error {
	payload, err := toPayloadMap(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to convert payload for %s: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err = p.repo.Append(ctx, JournalEvent{
		ID:        event.ID,
		SessionID: p.sessionID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		Actor:     event.Actor,
		Payload:   payload,
	})
	if p.metrics != nil {
		p.metrics.RecordJournalWrite(time.Since(start), err)
	}
	return err
}

func toPayloadMap(payload any) (map[string]interface{}, error) {
	if payload == nil {
		return nil, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		// Non-object payloads are wrapped.
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return map[string]interface{}{"value": v}, nil
	}
	return m, nil
}
