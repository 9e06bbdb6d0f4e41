// Package network - journal.go
// Read-only view of the control journal: who paused, retuned or re-sorted the board.
package network

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/LiveSortTable/server/internal/events"
	"github.com/MRamiBalles/LiveSortTable/server/internal/infra/storage"
	"github.com/MRamiBalles/LiveSortTable/server/internal/platform/logger"
)

// JournalHandler provides the journal API.
type JournalHandler struct {
	journal *events.EventLog
	recon   *storage.Reconstructor
	logger  *logger.Logger
}

// NewJournalHandler creates a journal handler. recon may be nil when the
// server runs without a database.
func NewJournalHandler(el *events.EventLog, recon *storage.Reconstructor, log *logger.Logger) *JournalHandler {
	if log == nil {
		log = logger.NewLogger()
	}
	return &JournalHandler{
		journal: el,
		recon:   recon,
		logger:  log,
	}
}

// JournalEntry is one journal line for operators.
type JournalEntry struct {
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id,omitempty"`
	Type      string `json:"type"`
	Actor     string `json:"actor"`
	Summary   string `json:"summary"`
}

// JournalResponse is the API response for the journal.
type JournalResponse struct {
	Source      string         `json:"source"` // "memory" or "db"
	Total       int            `json:"total"`
	Ticks       int64          `json:"ticks"`
	FilteredBy  string         `json:"filtered_by,omitempty"`
	GeneratedAt string         `json:"generated_at"`
	Entries     []JournalEntry `json:"entries"`
}

// HandleJournal returns journal entries, oldest first.
// GET /api/journal?type=PAUSED&limit=20&source=db
func (jh *JournalHandler) HandleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	eventType := q.Get("type")

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	source := q.Get("source")
	var entries []JournalEntry
	switch source {
	case "", "memory":
		source = "memory"
		entries = jh.fromMemory(eventType, limit)
	case "db":
		if jh.recon == nil {
			jsonError(w, "No durable journal configured", http.StatusBadRequest)
			return
		}
		recap, err := jh.recon.Recap(r.Context(), eventType, limit)
		if err != nil {
			jh.logger.Errorf("Journal read failed: %v", err)
			jsonError(w, "Journal unavailable", http.StatusInternalServerError)
			return
		}
		entries = make([]JournalEntry, 0, len(recap))
		for _, e := range recap {
			entries = append(entries, JournalEntry{
				Timestamp: e.Timestamp,
				SessionID: e.SessionID,
				Type:      e.EventType,
				Actor:     e.Actor,
				Summary:   e.Summary,
			})
		}
	default:
		jsonError(w, "Unknown source "+strconv.Quote(source), http.StatusBadRequest)
		return
	}

	jsonSuccess(w, JournalResponse{
		Source:      source,
		Total:       len(entries),
		Ticks:       jh.journal.TickCount(),
		FilteredBy:  eventType,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Entries:     entries,
	})
}

// HandleStats returns per-type counts for this session.
// GET /api/journal/stats
func (jh *JournalHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]int{}
	all := jh.journal.Replay()
	for _, e := range all {
		stats[string(e.Type)]++
	}

	jsonSuccess(w, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"total":        len(all),
		"ticks":        jh.journal.TickCount(),
		"by_type":      stats,
	})
}

// RegisterRoutes sets up the journal API routes.
func (jh *JournalHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/journal", jh.HandleJournal)
	mux.HandleFunc("/api/journal/stats", jh.HandleStats)
}

func (jh *JournalHandler) fromMemory(eventType string, limit int) []JournalEntry {
	var list []events.Event
	if eventType != "" {
		list = jh.journal.ByType(events.EventType(eventType))
		if limit > 0 && len(list) > limit {
			list = list[len(list)-limit:]
		}
	} else {
		list = jh.journal.Recent(limit)
	}

	entries := make([]JournalEntry, 0, len(list))
	for _, e := range list {
		entries = append(entries, JournalEntry{
			ID:        e.ID,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Type:      string(e.Type),
			Actor:     e.Actor,
			Summary:   e.Summary(),
		})
	}
	return entries
}
